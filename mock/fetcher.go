package mock

import (
	"context"

	"github.com/fwojciec/sitescan"
)

var (
	_ sitescan.Fetcher   = (*Fetcher)(nil)
	_ sitescan.Extractor = (*Extractor)(nil)
)

// Fetcher is a mock implementation of sitescan.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) *sitescan.FetchResult
}

func (f *Fetcher) Fetch(ctx context.Context, url string) *sitescan.FetchResult {
	return f.FetchFn(ctx, url)
}

// Extractor is a mock implementation of sitescan.Extractor.
type Extractor struct {
	ExtractFn func(html string, baseURL string) (*sitescan.Extraction, error)
}

func (e *Extractor) Extract(html string, baseURL string) (*sitescan.Extraction, error) {
	return e.ExtractFn(html, baseURL)
}
