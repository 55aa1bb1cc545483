package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/sitescan"
	"github.com/temoto/robotstxt"
)

// maxRobotsBytes limits the size of robots.txt responses we will read.
const maxRobotsBytes = 512 << 10

// Ensure PolicyGate implements sitescan.PolicyGate.
var _ sitescan.PolicyGate = (*PolicyGate)(nil)

// PolicyGate loads robots.txt and sitemap seeds for a domain via HTTP.
type PolicyGate struct {
	client    *http.Client
	userAgent string
	sitemaps  sitescan.SitemapService
}

// NewPolicyGate creates a PolicyGate. If client is nil, a client with
// DefaultFetchTimeout is used. An empty userAgent means sitescan.DefaultUserAgent.
func NewPolicyGate(client *http.Client, userAgent string, sitemaps sitescan.SitemapService) *PolicyGate {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	if userAgent == "" {
		userAgent = sitescan.DefaultUserAgent
	}
	return &PolicyGate{client: client, userAgent: userAgent, sitemaps: sitemaps}
}

// Load fetches {origin}/robots.txt. Anything but a readable 2xx response
// yields an allow-all policy.
func (g *PolicyGate) Load(ctx context.Context, seedURL string) (sitescan.RobotsPolicy, error) {
	allowAll := &Policy{userAgent: g.userAgent}

	origin, err := originOf(seedURL)
	if err != nil {
		return allowAll, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin.String()+"/robots.txt", nil)
	if err != nil {
		return allowAll, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return allowAll, fmt.Errorf("fetch robots: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return allowAll, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return allowAll, fmt.Errorf("read robots body: %w", err)
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return allowAll, fmt.Errorf("parse robots: %w", err)
	}

	return &Policy{data: data, userAgent: g.userAgent}, nil
}

// Seed returns sitemap URLs on the seed's host that policy allows. It reads
// {origin}/sitemap.xml and every sitemap declared in robots.txt.
func (g *PolicyGate) Seed(ctx context.Context, seedURL string, policy sitescan.RobotsPolicy) ([]string, error) {
	origin, err := originOf(seedURL)
	if err != nil {
		return nil, err
	}

	candidates := []string{origin.String() + "/sitemap.xml"}
	for _, s := range policy.Sitemaps() {
		if s != candidates[0] {
			candidates = append(candidates, s)
		}
	}

	urls, err := g.sitemaps.DiscoverURLs(ctx, candidates)
	if err != nil {
		return nil, err
	}

	seeds := []string{}
	seen := make(map[string]bool)
	for _, u := range urls {
		if seen[u] || !SameHost(u, origin.Hostname()) || !policy.IsAllowed(u) {
			continue
		}
		seen[u] = true
		seeds = append(seeds, u)
	}
	return seeds, nil
}

// Ensure Policy implements sitescan.RobotsPolicy.
var _ sitescan.RobotsPolicy = (*Policy)(nil)

// Policy is a parsed robots.txt. A Policy without data allows everything.
type Policy struct {
	data      *robotstxt.RobotsData
	userAgent string
}

// ParsePolicy parses robots.txt content for the given user agent.
func ParsePolicy(robots string, userAgent string) (*Policy, error) {
	data, err := robotstxt.FromString(robots)
	if err != nil {
		return nil, err
	}
	return &Policy{data: data, userAgent: userAgent}, nil
}

// IsAllowed reports whether the policy's user agent may fetch rawURL.
func (p *Policy) IsAllowed(rawURL string) bool {
	return p.IsAllowedFor(rawURL, p.userAgent)
}

// IsAllowedFor reports whether userAgent may fetch rawURL.
// Unparseable URLs are allowed; the fetcher classifies them.
func (p *Policy) IsAllowedFor(rawURL string, userAgent string) bool {
	if p.data == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.data.TestAgent(path, userAgent)
}

// CrawlDelay returns the Crawl-delay for the policy's user agent.
func (p *Policy) CrawlDelay() time.Duration {
	if p.data == nil {
		return 0
	}
	group := p.data.FindGroup(p.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

// Sitemaps returns the Sitemap: directives of the robots.txt.
func (p *Policy) Sitemaps() []string {
	if p.data == nil {
		return nil
	}
	return p.data.Sitemaps
}

// SameHost reports whether rawURL's hostname equals host, ignoring case.
func SameHost(rawURL string, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), host)
}

// originOf returns the scheme and host of rawURL with an empty path.
func originOf(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, sitescan.Errorf(sitescan.EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, sitescan.Errorf(sitescan.EINVALID, "invalid URL %q", rawURL)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}
