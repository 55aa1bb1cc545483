package mock

import (
	"context"
	"time"

	"github.com/fwojciec/sitescan"
)

// Compile-time interface verification.
var (
	_ sitescan.PolicyGate     = (*PolicyGate)(nil)
	_ sitescan.RobotsPolicy   = (*RobotsPolicy)(nil)
	_ sitescan.SitemapService = (*SitemapService)(nil)
	_ sitescan.DomainLimiter  = (*DomainLimiter)(nil)
)

// PolicyGate is a mock implementation of sitescan.PolicyGate.
type PolicyGate struct {
	LoadFn func(ctx context.Context, seedURL string) (sitescan.RobotsPolicy, error)
	SeedFn func(ctx context.Context, seedURL string, policy sitescan.RobotsPolicy) ([]string, error)
}

func (g *PolicyGate) Load(ctx context.Context, seedURL string) (sitescan.RobotsPolicy, error) {
	return g.LoadFn(ctx, seedURL)
}

func (g *PolicyGate) Seed(ctx context.Context, seedURL string, policy sitescan.RobotsPolicy) ([]string, error) {
	return g.SeedFn(ctx, seedURL, policy)
}

// RobotsPolicy is a mock implementation of sitescan.RobotsPolicy.
type RobotsPolicy struct {
	IsAllowedFn    func(url string) bool
	IsAllowedForFn func(url, userAgent string) bool
	CrawlDelayFn   func() time.Duration
	SitemapsFn     func() []string
}

func (p *RobotsPolicy) IsAllowed(url string) bool {
	return p.IsAllowedFn(url)
}

func (p *RobotsPolicy) IsAllowedFor(url, userAgent string) bool {
	return p.IsAllowedForFn(url, userAgent)
}

func (p *RobotsPolicy) CrawlDelay() time.Duration {
	return p.CrawlDelayFn()
}

func (p *RobotsPolicy) Sitemaps() []string {
	return p.SitemapsFn()
}

// SitemapService is a mock implementation of sitescan.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, sitemapURLs []string) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, sitemapURLs []string) ([]string, error) {
	return s.DiscoverURLsFn(ctx, sitemapURLs)
}

// DomainLimiter is a mock implementation of sitescan.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
