package main

import (
	"fmt"

	"github.com/lnbits/lnurl"

	"github.com/urfave/cli/v2"
)

var decodeCommand = &cli.Command{
	Name:        "decode",
	Usage:       "Decode a LNURL",
	Description: `Decode a bech32 LNURL or a raw scheme identifier into its service URL`,
	ArgsUsage:   "<lnurl>",
	Action:      decodeIdentifier,
}

var encodeCommand = &cli.Command{
	Name:        "encode",
	Usage:       "Encode a URL",
	Description: `Encode a service URL into its bech32 LNURL form`,
	ArgsUsage:   "<url>",
	Action:      encodeURL,
}

func decodeIdentifier(ctx *cli.Context) error {
	identifier := ctx.Args().First()
	if identifier == "" {
		return fmt.Errorf("missing lnurl argument")
	}

	ln, err := lnurl.Parse(identifier)
	if err != nil {
		return err
	}

	fmt.Println(ln.URL().String())

	return nil
}

func encodeURL(ctx *cli.Context) error {
	rawURL := ctx.Args().First()
	if rawURL == "" {
		return fmt.Errorf("missing url argument")
	}

	encoded, err := lnurl.Encode(rawURL)
	if err != nil {
		return err
	}

	fmt.Println(encoded)

	return nil
}
