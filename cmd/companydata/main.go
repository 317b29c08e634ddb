package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

const appVersion = "0.1.0"

const defaultPackageRoot = "./company_data"

func main() {
	app := &cli.App{
		Name:  "companydata",
		Usage: "export and verify company data packages",
		Before: func(c *cli.Context) error {
			configureLogging(c.Bool("verbose"))
			return nil
		},
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Minute,
				Usage: "operation timeout",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
		},
		Commands: []*cli.Command{
			verifyCmd(),
			exportCmd(),
			diffCmd(),
			{
				Name:  "version",
				Usage: "print version",
				Action: func(c *cli.Context) error {
					fmt.Println(appVersion)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	))
}

func contextWithTimeout(
	c *cli.Context,
) (context.Context, context.CancelFunc) {
	return context.WithTimeout(
		context.Background(),
		c.Duration("timeout"),
	)
}
