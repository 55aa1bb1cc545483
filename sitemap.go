package sitescan

import (
	"context"
	"time"
)

// RobotsPolicy is a loaded robots.txt for one origin.
type RobotsPolicy interface {
	// IsAllowed reports whether the crawler's user agent may fetch url.
	IsAllowed(url string) bool

	// IsAllowedFor reports whether the given user agent may fetch url.
	IsAllowedFor(url string, userAgent string) bool

	// CrawlDelay returns the Crawl-delay directive for the crawler's
	// user agent, or zero.
	CrawlDelay() time.Duration

	// Sitemaps returns the Sitemap: directives.
	Sitemaps() []string
}

// PolicyGate decides which URLs of a domain may be crawled and supplies
// sitemap-derived seed URLs.
type PolicyGate interface {
	// Load fetches robots.txt for the origin of seedURL. A missing or
	// unreadable robots.txt yields a policy that allows everything; the
	// returned policy is never nil and the error only explains why it
	// fell open.
	Load(ctx context.Context, seedURL string) (RobotsPolicy, error)

	// Seed returns the sitemap URLs that share the seed's hostname and are
	// allowed by policy.
	Seed(ctx context.Context, seedURL string, policy RobotsPolicy) ([]string, error)
}

// SitemapService reads URLs from sitemap documents.
type SitemapService interface {
	// DiscoverURLs fetches each sitemap and returns the listed page URLs.
	// Sitemap indexes are resolved recursively.
	DiscoverURLs(ctx context.Context, sitemapURLs []string) ([]string, error)
}
