package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnbits/lnurl"
	"github.com/lnbits/lnurl/logger"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "lnurl"
	app.Usage = "Cli for the LNURL client protocols"
	app.Flags = []cli.Flag{
		&cli.DurationFlag{
			Name:  "timeout",
			Value: lnurl.DefaultTimeout,
			Usage: "timeout for each service round trip",
		},
		&cli.StringFlag{
			Name:  "user-agent",
			Value: lnurl.DefaultUserAgent,
			Usage: "user agent header to send to services",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip tls certificate verification",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "log requests and responses",
		},
	}
	app.Commands = append(app.Commands,
		decodeCommand,
		encodeCommand,
		handleCommand,
		payCommand,
		withdrawCommand,
		loginCommand,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lnurl] %v\n", err)
	os.Exit(1)
}

func newClient(ctx *cli.Context) *lnurl.Client {
	opts := []lnurl.Option{
		lnurl.WithTimeout(ctx.Duration("timeout")),
		lnurl.WithUserAgent(ctx.String("user-agent")),
	}
	if ctx.Bool("insecure") {
		opts = append(opts, lnurl.WithInsecureSkipVerify())
	}
	if ctx.Bool("debug") {
		opts = append(opts, lnurl.WithLogger(
			logger.NewZapLogger("debug"),
		))
	}

	return lnurl.NewClient(opts...)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))

	return nil
}
