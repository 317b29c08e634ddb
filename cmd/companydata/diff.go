package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/calvoindustrial/companydata/pkg/manifest"
)

func diffCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "compare two package generations by manifest",
		ArgsUsage: "<oldRoot> <newRoot>",
		Action:    diffAction,
	}
}

func diffAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: companydata diff <oldRoot> <newRoot>")
	}

	old, err := manifest.Load(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("old package: %w", err)
	}
	cur, err := manifest.Load(c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("new package: %w", err)
	}

	d := manifest.Diff(old, cur)
	if d.Empty() {
		fmt.Println("Packages identical.")
		return nil
	}

	var b strings.Builder
	for _, p := range d.Added {
		fmt.Fprintf(&b, "  + %s\n", p)
	}
	for _, p := range d.Changed {
		fmt.Fprintf(&b, "  ~ %s\n", p)
	}
	for _, p := range d.Removed {
		fmt.Fprintf(&b, "  - %s\n", p)
	}
	fmt.Fprintf(&b, "---\n")
	fmt.Fprintf(&b,
		"%d added, %d changed, %d removed\n",
		len(d.Added), len(d.Changed), len(d.Removed),
	)
	fmt.Print(b.String())
	return nil
}
