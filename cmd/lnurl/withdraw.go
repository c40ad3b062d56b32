package main

import (
	"fmt"

	"github.com/lnbits/lnurl"

	"github.com/urfave/cli/v2"
)

var withdrawCommand = &cli.Command{
	Name:  "withdraw",
	Usage: "Withdraw from a withdraw link",
	Description: `Resolve a withdraw link and submit the given invoice for the service
to pay.`,
	ArgsUsage: "<lnurl>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "invoice",
			Usage: "the bolt11 invoice the service should pay",
		},
	},
	Action: withdrawToInvoice,
}

func withdrawToInvoice(ctx *cli.Context) error {
	identifier := ctx.Args().First()
	if identifier == "" {
		return fmt.Errorf("missing lnurl argument")
	}

	invoice := ctx.String("invoice")
	if invoice == "" {
		return fmt.Errorf("missing '--invoice' flag")
	}

	client := newClient(ctx)

	ln, err := lnurl.Parse(identifier)
	if err != nil {
		return err
	}

	// Fast withdraw identifiers already carry the full offer, so the
	// first round trip can be skipped (LUD-08).
	var res lnurl.Response
	if ln.IsFastWithdraw() {
		res, err = ln.FastWithdrawResponse()
	} else {
		res, err = client.HandleLnurl(ctx.Context, ln)
	}
	if err != nil {
		return err
	}

	withdrawRes, ok := res.(*lnurl.WithdrawResponse)
	if !ok {
		return fmt.Errorf("expected a withdraw request, got %T", res)
	}

	final, err := client.ExecuteWithdraw(ctx.Context, withdrawRes, invoice)
	if err != nil {
		return err
	}

	return printJSON(final)
}
