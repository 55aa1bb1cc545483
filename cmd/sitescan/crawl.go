package main

import (
	"fmt"

	"github.com/fwojciec/sitescan"
	"github.com/fwojciec/sitescan/crawl"
	"golang.org/x/sync/errgroup"
)

// eventBuffer is the number of crawl events queued for the terminal.
const eventBuffer = 64

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	events := make(chan sitescan.Event, eventBuffer)
	publishers := crawl.Publishers{crawl.NewChannelPublisher(events)}
	if deps.Publisher != nil {
		publishers = append(crawl.Publishers{deps.Publisher}, publishers...)
	}
	runner := &crawl.Runner{
		Registry:  deps.Registry,
		Publisher: deps.Publisher,
		NewSession: func() *crawl.Session {
			return deps.NewSession(publishers)
		},
	}

	commands := make(chan sitescan.Command, 1)
	commands <- sitescan.StartCommand{SeedURL: c.URL, Overwrite: c.Overwrite, Concurrency: c.Concurrency}
	close(commands)

	var failure string
	var cancelled bool
	var g errgroup.Group
	g.Go(func() error {
		defer close(events)
		return runner.Run(deps.Ctx, commands)
	})
	g.Go(func() error {
		for evt := range events {
			switch e := evt.(type) {
			case sitescan.ProgressEvent:
				fmt.Fprintf(deps.Stdout, "  [%d/%d] %d %s (%dms)\n",
					e.ScannedCount, e.TotalURLsKnown, e.ResponseStatus, e.CurrentURL, e.ResponseTime)
			case sitescan.CompletedEvent:
				fmt.Fprintf(deps.Stdout, "Crawled %d pages of %s\n", e.ScannedCount, e.Domain)
			case sitescan.CancelledEvent:
				cancelled = true
				fmt.Fprintf(deps.Stdout, "Crawl cancelled after %d pages of %s. Run again without --overwrite to resume.\n",
					e.ScannedCount, e.Domain)
			case sitescan.ErrorEvent:
				failure = e.Message
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitescan.ErrorMessage(err))
		return err
	}
	if failure != "" {
		fmt.Fprintf(deps.Stderr, "error: %s\n", failure)
		return fmt.Errorf("crawl failed: %s", failure)
	}
	if !cancelled && deps.Ctx.Err() != nil {
		fmt.Fprintln(deps.Stdout, "Crawl cancelled. Run again without --overwrite to resume.")
	}
	return nil
}
