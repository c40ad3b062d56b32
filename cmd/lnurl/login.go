package main

import (
	"fmt"

	"github.com/lnbits/lnurl"

	"github.com/urfave/cli/v2"
)

var loginCommand = &cli.Command{
	Name:  "login",
	Usage: "Login to a keyauth service",
	Description: `Answer a login challenge. The linking key is derived from the seed
and the callback domain, so the same seed yields a different identity
on every service.`,
	ArgsUsage: "<lnurl>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "seed",
			Usage: "the passphrase to derive the linking key from",
		},
	},
	Action: loginToService,
}

func loginToService(ctx *cli.Context) error {
	identifier := ctx.Args().First()
	if identifier == "" {
		return fmt.Errorf("missing lnurl argument")
	}

	seed := ctx.String("seed")
	if seed == "" {
		return fmt.Errorf("missing '--seed' flag")
	}

	client := newClient(ctx)

	res, err := client.Handle(ctx.Context, identifier)
	if err != nil {
		return err
	}

	authRes, ok := res.(*lnurl.AuthResponse)
	if !ok {
		return fmt.Errorf("expected a login request, got %T", res)
	}

	final, err := client.ExecuteLogin(
		ctx.Context, authRes, lnurl.LoginKey{Seed: seed},
	)
	if err != nil {
		return err
	}

	return printJSON(final)
}
