// Package slog provides logging decorators built on log/slog.
package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/sitescan"
)

// Ensure LoggingFetcher implements sitescan.Fetcher.
var _ sitescan.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   sitescan.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next sitescan.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the outcome.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) *sitescan.FetchResult {
	result := f.next.Fetch(ctx, url)

	attrs := []any{
		"url", url,
		"status", result.Status,
		"bytes", len(result.Body),
		"duration", result.Elapsed,
	}
	if result.Redirected() {
		attrs = append(attrs, "final_url", result.FinalURL)
	}
	if result.Err != nil {
		f.logger.Warn("fetch", append(attrs, "err", result.Err)...)
		return result
	}
	f.logger.Debug("fetch", attrs...)
	return result
}
