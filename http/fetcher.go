// Package http provides the network side of sitescan: a page fetcher that
// classifies transport failures, robots.txt policy loading and sitemap
// discovery.
package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/fwojciec/sitescan"
)

// DefaultFetchTimeout is the default timeout for a single fetch,
// redirects included.
const DefaultFetchTimeout = 10 * time.Second

// maxBodyBytes caps how much of an HTML response is read.
const maxBodyBytes = 10 << 20

// Ensure Fetcher implements sitescan.Fetcher at compile time.
var _ sitescan.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages with plain HTTP requests. JavaScript is not executed.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
// Defaults to sitescan.DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: sitescan.DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}

	// The default redirect policy follows up to 10 hops.
	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves rawURL. The body is kept only for successful text/html
// responses; every other outcome is reported through the status.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *sitescan.FetchResult {
	result := &sitescan.FetchResult{URL: rawURL, FinalURL: rawURL}

	if !isFetchableURL(rawURL) {
		result.Status = sitescan.StatusInvalidURL
		result.Err = sitescan.Errorf(sitescan.EINVALID, "invalid URL %q", rawURL)
		return result
	}

	begin := time.Now()
	defer func() { result.Elapsed = time.Since(begin) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.Status = sitescan.StatusInvalidURL
		result.Err = err
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		result.Status = ClassifyError(err)
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	result.ContentType = resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !isHTML(result.ContentType) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return result
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		result.Err = err
		return result
	}
	result.Body = string(body)

	return result
}

// ClassifyError maps a transport error to a sentinel status.
func ClassifyError(err error) int {
	var dnsErr *net.DNSError
	var urlErr *url.Error
	switch {
	case errors.As(err, &dnsErr):
		return sitescan.StatusDNSFailure
	case errors.Is(err, syscall.ECONNREFUSED):
		return sitescan.StatusConnectionRefused
	case errors.As(err, &urlErr) && strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme"):
		return sitescan.StatusInvalidURL
	default:
		return sitescan.StatusNetworkError
	}
}

func isFetchableURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
