package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/calvoindustrial/companydata/pkg/export"
	"github.com/calvoindustrial/companydata/pkg/source/postgres"
)

func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "export a fresh package from the relational source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "companydata.yaml",
				Usage:   "export config file",
			},
			&cli.StringFlag{
				Name:    "dsn",
				EnvVars: []string{"COMPANYDATA_DSN"},
				Usage:   "source database DSN",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "override the destination package root",
			},
			&cli.BoolFlag{
				Name:  "audit",
				Usage: "append a run record to audit/export_log.jsonl",
			},
		},
		Action: exportAction,
	}
}

func exportAction(c *cli.Context) error {
	cfg, err := loadExportConfig(c)
	if err != nil {
		return err
	}
	if out := c.String("out"); out != "" {
		cfg.Root = out
	}
	if c.Bool("audit") {
		cfg.Audit = true
	}

	dsn := c.String("dsn")
	if dsn == "" {
		return fmt.Errorf(
			"no DSN: set COMPANYDATA_DSN or use --dsn",
		)
	}

	db, err := postgres.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	man, err := export.New(cfg, db, slog.Default()).Export(ctx)
	if err != nil {
		return err
	}

	fmt.Printf(
		"Exported %s: %d files -> %s\n",
		man.PackageName, len(man.Files), cfg.Root,
	)
	return nil
}

// loadExportConfig reads the config file when present. The default path
// missing is fine (built-in defaults apply); an explicit --config that
// does not exist is an error.
func loadExportConfig(c *cli.Context) (*export.Config, error) {
	path := c.String("config")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if c.IsSet("config") {
			return nil, fmt.Errorf("config %s does not exist", path)
		}
		return export.DefaultConfig(), nil
	}
	return export.LoadConfig(path)
}
