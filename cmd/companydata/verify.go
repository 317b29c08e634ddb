package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/calvoindustrial/companydata/pkg/verify"
)

// Exit codes: 0 all files match, 1 any BADHASH/MISSING, 2 manifest
// missing or unreadable.
func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "check package contents against its manifest",
		ArgsUsage: "[packageRoot]",
		Action:    verifyAction,
	}
}

func verifyAction(c *cli.Context) error {
	if c.NArg() > 1 {
		return fmt.Errorf("usage: companydata verify [packageRoot]")
	}
	root := defaultPackageRoot
	if c.NArg() == 1 {
		root = c.Args().Get(0)
	}

	rep, err := verify.Root(root)
	if err != nil {
		// Manifest unavailable or a file unreadable: no report exists.
		return cli.Exit(fmt.Sprintf("error: %v", err), 2)
	}

	var b strings.Builder
	for _, r := range rep.Results {
		switch r.Status {
		case verify.StatusMissing:
			fmt.Fprintf(&b, "MISSING %s\n", r.Entry.Path)
		case verify.StatusBadHash:
			fmt.Fprintf(&b,
				"BADHASH %s expected=%s actual=%s\n",
				r.Entry.Path, r.Entry.SHA256, r.Actual,
			)
		}
	}
	fmt.Fprintf(&b,
		"OK: %d BAD: %d MISSING: %d\n",
		rep.OK, rep.Bad, rep.Missing,
	)
	fmt.Print(b.String())

	if !rep.Valid() {
		return cli.Exit("", 1)
	}
	return nil
}
