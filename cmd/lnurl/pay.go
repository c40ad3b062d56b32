package main

import (
	"fmt"

	"github.com/lnbits/lnurl"

	"github.com/urfave/cli/v2"
)

var payCommand = &cli.Command{
	Name:  "pay",
	Usage: "Request an invoice from a pay link",
	Description: `Resolve a pay link or lightning address and request an invoice over
the given amount. The returned invoice is cross checked against the
requested amount before it is printed, it is never paid.`,
	ArgsUsage: "<lnurl|address>",
	Flags: []cli.Flag{
		&cli.Int64Flag{
			Name:  "amount",
			Usage: "the amount of millisats to request",
		},
		&cli.StringFlag{
			Name:  "comment",
			Usage: "comment to attach to the payment",
		},
	},
	Action: payToIdentifier,
}

func payToIdentifier(ctx *cli.Context) error {
	identifier := ctx.Args().First()
	if identifier == "" {
		return fmt.Errorf("missing lnurl or address argument")
	}

	amount := ctx.Int64("amount")
	if amount <= 0 {
		return fmt.Errorf("missing '--amount' flag")
	}

	client := newClient(ctx)

	res, err := client.Handle(ctx.Context, identifier)
	if err != nil {
		return err
	}

	payRes, ok := res.(*lnurl.PayResponse)
	if !ok {
		return fmt.Errorf("expected a pay request, got %T", res)
	}

	action, err := client.ExecutePayRequest(
		ctx.Context, payRes, lnurl.MilliSatoshi(amount),
		ctx.String("comment"),
	)
	if err != nil {
		return err
	}

	return printJSON(action)
}
