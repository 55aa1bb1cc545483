package sitescan

import (
	"context"
	"time"
)

// FetchResult is the outcome of a single fetch attempt.
type FetchResult struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after following redirects.
	// It equals URL when no redirect occurred or no response was received.
	FinalURL string

	// Status is the HTTP status, or a sentinel status for transport failures.
	Status int

	// ContentType is the raw Content-Type response header.
	ContentType string

	// Body holds the document only for successful text/html responses.
	Body string

	Elapsed time.Duration

	// Err is the transport failure, if any. It is informational only:
	// Status already carries its classification.
	Err error
}

// Redirected reports whether the fetch ended on a different URL.
func (r *FetchResult) Redirected() bool {
	return r.FinalURL != "" && r.FinalURL != r.URL
}

// IsHTML reports whether the fetch produced an HTML document.
func (r *FetchResult) IsHTML() bool {
	return r.Err == nil && r.Status >= 200 && r.Status < 300 && r.Body != ""
}

// ElapsedMillis returns the elapsed time in milliseconds.
func (r *FetchResult) ElapsedMillis() int64 {
	return r.Elapsed.Milliseconds()
}

// Fetcher retrieves pages over HTTP.
type Fetcher interface {
	// Fetch issues a GET for url, following redirects. Transport failures
	// are never returned as errors; they are classified into FetchResult.Status.
	Fetch(ctx context.Context, url string) *FetchResult
}
