package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/sitescan"
)

// Run executes the registry command.
func (c *RegistryCmd) Run(deps *Dependencies) error {
	if c.Reconcile {
		n, err := deps.Registry.ReconcileStale(deps.Ctx)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", sitescan.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "Marked %d interrupted crawls as errored.\n", n)
	}

	entries, err := deps.Registry.ListAll(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitescan.ErrorMessage(err))
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(deps.Stdout, "No crawls found. Use 'sitescan crawl' to start one.")
		return nil
	}

	for _, e := range entries {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %s\n",
			e.Domain, e.Status, e.ScannedAt.Local().Format(time.DateTime), e.StartURL)
	}

	return nil
}
