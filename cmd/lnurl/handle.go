package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var handleCommand = &cli.Command{
	Name:  "handle",
	Usage: "Resolve a LNURL or lightning address",
	Description: `Resolve an identifier into the first protocol message of its flow
and print it. Login identifiers are resolved locally, everything else
costs one service round trip.`,
	ArgsUsage: "<lnurl|address>",
	Action:    handleIdentifier,
}

func handleIdentifier(ctx *cli.Context) error {
	identifier := ctx.Args().First()
	if identifier == "" {
		return fmt.Errorf("missing lnurl or address argument")
	}

	client := newClient(ctx)

	res, err := client.Handle(ctx.Context, identifier)
	if err != nil {
		return err
	}

	return printJSON(res)
}
