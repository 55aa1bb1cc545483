package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/sitescan"
	"github.com/fwojciec/sitescan/crawl"
	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Sites    sitescan.SiteService
	Registry sitescan.RegistryService

	// Publisher receives every crawl event (logging and metrics).
	Publisher sitescan.EventPublisher

	// Metrics is served by the serve command.
	Metrics prometheus.Gatherer

	// NewSession builds a crawl session reporting to the given publisher.
	NewSession func(publisher sitescan.EventPublisher) *crawl.Session
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Log every fetch"`

	Crawl    CrawlCmd    `cmd:"" help:"Crawl a website starting from a URL"`
	Pages    PagesCmd    `cmd:"" help:"List stored pages of a crawled domain"`
	Registry RegistryCmd `cmd:"" help:"List all crawled domains"`
	Serve    ServeCmd    `cmd:"" help:"Serve the query API over HTTP"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL         string `arg:"" help:"Seed URL"`
	Overwrite   bool   `short:"o" help:"Discard stored results and start over"`
	Concurrency int    `short:"c" default:"5" help:"Concurrent fetch limit"`
}

// PagesCmd is the "pages" subcommand.
type PagesCmd struct {
	Domain      string `arg:"" help:"Crawled domain"`
	Page        int    `short:"p" default:"1" help:"Result page (1-based)"`
	Limit       int    `short:"n" default:"50" help:"Rows per page"`
	Sort        string `short:"s" default:"url" enum:"url,metaTitle,metaDescription,responseStatus,responseTime" help:"Sort column"`
	Desc        bool   `short:"d" help:"Sort descending"`
	Search      string `short:"q" help:"Case-insensitive match on URL, title and description"`
	ContentType string `short:"t" name:"content-type" help:"Only pages of this classification (HTML_PAGE, NON_HTML_OR_ERROR, DISALLOWED, INTERNAL_ERROR)"`
	Links       bool   `short:"l" help:"Show headings and links"`
}

// RegistryCmd is the "registry" subcommand.
type RegistryCmd struct {
	Reconcile bool `help:"Mark crawls left pending or scanning as errored first. Use only when no crawl is running."`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `short:"a" default:"localhost:8080" help:"Listen address"`
}
