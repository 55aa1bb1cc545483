package main

import (
	"fmt"

	"github.com/fwojciec/sitescan"
)

// Run executes the pages command.
func (c *PagesCmd) Run(deps *Dependencies) error {
	filter, err := c.filter()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitescan.ErrorMessage(err))
		return err
	}

	store, err := deps.Sites.ViewSite(deps.Ctx, c.Domain)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitescan.ErrorMessage(err))
		return err
	}
	defer store.Close()

	list, err := store.ListPages(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitescan.ErrorMessage(err))
		return err
	}

	for _, p := range list.Pages {
		fmt.Fprintf(deps.Stdout, "%d  %s  %dms  %s", p.ResponseStatus, p.ContentType, p.ResponseTime, p.URL)
		if p.MetaTitle != "" {
			fmt.Fprintf(deps.Stdout, "  %q", p.MetaTitle)
		}
		fmt.Fprintln(deps.Stdout)

		if !c.Links {
			continue
		}
		for _, h := range p.Headers {
			fmt.Fprintf(deps.Stdout, "    h%d %s\n", h.Level, h.Text)
		}
		for _, u := range p.OutgoingLinks {
			fmt.Fprintf(deps.Stdout, "    -> %s\n", u)
		}
		for _, u := range p.IncomingLinks {
			fmt.Fprintf(deps.Stdout, "    <- %s\n", u)
		}
	}

	fmt.Fprintf(deps.Stdout, "%d of %d pages\n", len(list.Pages), list.Total)
	return nil
}

func (c *PagesCmd) filter() (sitescan.PageFilter, error) {
	sortBy, err := sitescan.ParsePageSortKey(c.Sort)
	if err != nil {
		return sitescan.PageFilter{}, err
	}
	filter := sitescan.PageFilter{
		Search:     c.Search,
		SortBy:     sortBy,
		Descending: c.Desc,
		Page:       c.Page,
		Limit:      c.Limit,
	}
	if c.ContentType != "" {
		ct, err := sitescan.ParseContentType(c.ContentType)
		if err != nil {
			return sitescan.PageFilter{}, err
		}
		filter.ContentType = &ct
	}
	return filter, nil
}
