// Package crawl provides single-domain crawl orchestration. It coordinates
// robots.txt and sitemap seeding, bounded concurrent fetching, extraction
// and storage of pages, and resumption from stored state.
package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitescan"
	"github.com/google/uuid"
)

// Frontier configuration.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate of the pre-check.
	frontierFalsePositiveRate = 0.01
)

// Session crawls one domain. Dependencies are set by the caller; the crawl
// state is created by Start. A Session runs at most one crawl.
type Session struct {
	Sites     sitescan.SiteService
	Registry  sitescan.RegistryService
	Policies  sitescan.PolicyGate
	Fetcher   sitescan.Fetcher
	Extractor sitescan.Extractor
	Publisher sitescan.EventPublisher

	// Limiter throttles fetches. When nil, a robots.txt Crawl-delay
	// installs a DomainLimiter.
	Limiter sitescan.DomainLimiter

	id       string
	domain   string
	store    sitescan.SiteStore
	policy   sitescan.RobotsPolicy
	limiter  sitescan.DomainLimiter
	frontier *Frontier
	active   int
	scanned  int
	started  bool
}

// taskResult is what a worker hands back to the session loop.
type taskResult struct {
	url        string
	disallowed bool
	fetch      *sitescan.FetchResult
	extraction *sitescan.Extraction
	err        error
}

// ID returns the session identifier, assigned by Start.
func (s *Session) ID() string {
	return s.id
}

// Start crawls the seed URL's domain until the frontier is exhausted or ctx
// is canceled. It returns nil on completion and on cancellation; failures of
// individual URLs are recorded as pages and never abort the crawl.
func (s *Session) Start(ctx context.Context, cmd sitescan.StartCommand) error {
	s.id = uuid.NewString()

	seed, err := parseSeed(cmd.SeedURL)
	if err != nil {
		s.publish(ctx, sitescan.ErrorEvent{SessionID: s.id, Message: err.Error()})
		return err
	}
	seedURL := seed.String()
	s.domain = strings.ToLower(seed.Hostname())

	if err := s.Registry.Upsert(ctx, s.domain, s.domain, seedURL, sitescan.ScanPending); err != nil {
		err = fmt.Errorf("register crawl: %w", err)
		s.publish(ctx, sitescan.ErrorEvent{SessionID: s.id, Message: err.Error()})
		return err
	}

	store, err := s.Sites.OpenSite(ctx, s.domain, cmd.Overwrite)
	if err != nil {
		return s.fail(ctx, fmt.Errorf("open site store: %w", err))
	}
	s.store = store
	defer func() { _ = store.Close() }()

	s.frontier = NewFrontier(s.domain, frontierExpectedURLs, frontierFalsePositiveRate)
	if err := s.resume(ctx); err != nil {
		return s.fail(ctx, fmt.Errorf("resume: %w", err))
	}

	s.policy, err = s.Policies.Load(ctx, seedURL)
	if err != nil {
		s.log(ctx, sitescan.LogWarn, fmt.Sprintf("robots.txt unavailable, allowing all: %v", err))
	}
	s.limiter = s.Limiter
	if s.limiter == nil {
		if delay := s.policy.CrawlDelay(); delay > 0 {
			s.limiter = NewDelayLimiter(delay)
			s.log(ctx, sitescan.LogInfo, fmt.Sprintf("honouring crawl delay of %s", delay))
		}
	}

	if s.frontier.Len() == 0 {
		if err := s.seed(ctx, seedURL); err != nil {
			return s.fail(ctx, err)
		}
	}

	concurrency := cmd.Concurrency
	if concurrency <= 0 {
		concurrency = sitescan.DefaultConcurrency
	}

	if err := s.loop(ctx, concurrency); err != nil {
		if ctx.Err() != nil {
			return s.cancel(ctx)
		}
		return s.fail(ctx, err)
	}

	if err := s.Registry.UpdateStatus(ctx, s.domain, sitescan.ScanCompleted); err != nil {
		err = fmt.Errorf("mark completed: %w", err)
		s.publish(ctx, sitescan.ErrorEvent{SessionID: s.id, Message: err.Error()})
		return err
	}
	s.publish(ctx, sitescan.CompletedEvent{SessionID: s.id, Domain: s.domain, ScannedCount: s.scanned})
	return nil
}

// resume rebuilds the frontier from stored pages and links.
func (s *Session) resume(ctx context.Context) error {
	scanned, err := s.store.ScannedURLs(ctx)
	if err != nil {
		return err
	}
	destinations, err := s.store.DestinationURLs(ctx)
	if err != nil {
		return err
	}

	s.frontier.MarkVisited(scanned...)
	s.scanned = len(scanned)
	for _, u := range destinations {
		s.frontier.Discover(u)
	}

	if len(scanned) > 0 {
		s.log(ctx, sitescan.LogInfo, fmt.Sprintf("resuming: %d scanned, %d queued", len(scanned), s.frontier.Len()))
	}
	return nil
}

// seed fills an empty frontier from sitemaps, falling back to the seed URL
// on a fresh crawl.
func (s *Session) seed(ctx context.Context, seedURL string) error {
	urls, err := s.Policies.Seed(ctx, seedURL, s.policy)
	if err != nil {
		s.log(ctx, sitescan.LogWarn, fmt.Sprintf("sitemap unavailable: %v", err))
	}
	if n := s.frontier.Seed(urls...); n > 0 {
		s.log(ctx, sitescan.LogInfo, fmt.Sprintf("seeded %d URLs from sitemap", n))
		return nil
	}
	if s.frontier.VisitedCount() > 0 {
		// Resumed crawl with nothing left to do.
		return nil
	}

	if s.policy.IsAllowed(seedURL) {
		s.frontier.Seed(seedURL)
		return nil
	}
	return sitescan.Errorf(sitescan.EINVALID, "no URLs to crawl")
}

// loop dispatches frontier URLs to workers and processes their results.
// It is the only goroutine touching the frontier and the store.
func (s *Session) loop(ctx context.Context, concurrency int) error {
	results := make(chan taskResult, concurrency)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		for s.active < concurrency {
			u, ok := s.frontier.Next()
			if !ok {
				break
			}
			if !s.started {
				s.started = true
				if err := s.Registry.UpdateStatus(ctx, s.domain, sitescan.ScanScanning); err != nil {
					return fmt.Errorf("mark scanning: %w", err)
				}
			}
			s.active++
			go func(u string) {
				r := s.process(ctx, u)
				select {
				case results <- r:
				case <-ctx.Done():
				}
			}(u)
		}

		if s.active == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-results:
			s.active--
			if r.err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			s.handle(ctx, r)
		}
	}
}

// process runs on a worker goroutine: policy check, rate limit, fetch and
// extraction. It must not touch session state.
func (s *Session) process(ctx context.Context, u string) taskResult {
	r := taskResult{url: u}

	if !s.policy.IsAllowed(u) {
		r.disallowed = true
		return r
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.domain); err != nil {
			r.err = err
			return r
		}
	}

	r.fetch = s.Fetcher.Fetch(ctx, u)
	if r.fetch.IsHTML() {
		r.extraction, r.err = s.Extractor.Extract(r.fetch.Body, r.fetch.FinalURL)
	}
	return r
}

// handle persists a worker result and feeds discovered URLs to the frontier.
func (s *Session) handle(ctx context.Context, r taskResult) {
	page := pageFromResult(r)

	inserted, err := s.store.SavePage(ctx, page)
	if err != nil {
		s.log(ctx, sitescan.LogError, fmt.Sprintf("save %s: %v", r.url, err))
		page = internalErrorPage(r.url)
		if inserted, err = s.store.SavePage(ctx, page); err != nil {
			s.log(ctx, sitescan.LogError, fmt.Sprintf("save %s: %v", r.url, err))
		}
	}

	if inserted && page.ContentType == sitescan.ContentTypeHTML && r.extraction != nil {
		for _, h := range r.extraction.Headings {
			if err := s.store.SaveHeader(ctx, page.ID, h); err != nil {
				s.log(ctx, sitescan.LogWarn, fmt.Sprintf("save header of %s: %v", r.url, err))
			}
		}
		for _, link := range r.extraction.Links {
			if err := s.store.SaveOutgoingLink(ctx, page.ID, link); err != nil {
				s.log(ctx, sitescan.LogWarn, fmt.Sprintf("save link of %s: %v", r.url, err))
			}
		}
	}

	if r.extraction != nil {
		for _, link := range r.extraction.Links {
			s.frontier.Discover(link)
		}
	}
	if r.fetch != nil && r.fetch.Redirected() {
		s.frontier.Discover(r.fetch.FinalURL)
	}

	s.scanned++
	s.publish(ctx, sitescan.ProgressEvent{
		SessionID:      s.id,
		Message:        fmt.Sprintf("scanned %s", r.url),
		CurrentURL:     r.url,
		TotalURLsKnown: s.frontier.Known(),
		ScannedCount:   s.scanned,
		ResponseStatus: page.ResponseStatus,
		ContentType:    page.ContentType,
		ResponseTime:   page.ResponseTime,
	})
}

// fail marks the crawl as errored and reports err.
func (s *Session) fail(ctx context.Context, err error) error {
	if uerr := s.Registry.UpdateStatus(context.WithoutCancel(ctx), s.domain, sitescan.ScanError); uerr != nil {
		s.log(ctx, sitescan.LogError, fmt.Sprintf("mark error: %v", uerr))
	}
	s.publish(ctx, sitescan.ErrorEvent{SessionID: s.id, Message: err.Error()})
	return err
}

// cancel marks the crawl as cancelled. In-flight workers are abandoned;
// their results are discarded.
func (s *Session) cancel(ctx context.Context) error {
	if err := s.Registry.UpdateStatus(context.WithoutCancel(ctx), s.domain, sitescan.ScanCancelled); err != nil {
		err = fmt.Errorf("mark cancelled: %w", err)
		s.publish(ctx, sitescan.ErrorEvent{SessionID: s.id, Message: err.Error()})
		return err
	}
	s.publish(ctx, sitescan.CancelledEvent{SessionID: s.id, Domain: s.domain, ScannedCount: s.scanned})
	return nil
}

func (s *Session) log(ctx context.Context, level sitescan.LogLevel, msg string) {
	s.publish(ctx, sitescan.LogEvent{SessionID: s.id, Level: level, Message: msg})
}

func (s *Session) publish(ctx context.Context, evt sitescan.Event) {
	if s.Publisher != nil {
		s.Publisher.Publish(ctx, evt)
	}
}

// pageFromResult classifies a worker result into the page to store.
func pageFromResult(r taskResult) *sitescan.Page {
	switch {
	case r.disallowed:
		return &sitescan.Page{
			URL:            r.url,
			ContentType:    sitescan.ContentTypeDisallowed,
			ResponseStatus: sitescan.StatusDisallowed,
			ResponseTime:   sitescan.NoResponseTime,
		}
	case r.fetch == nil || r.err != nil:
		return internalErrorPage(r.url)
	case r.extraction != nil:
		return &sitescan.Page{
			URL:             r.url,
			MetaTitle:       r.extraction.Title,
			MetaDescription: r.extraction.Description,
			ContentType:     sitescan.ContentTypeHTML,
			ResponseStatus:  r.fetch.Status,
			ResponseTime:    r.fetch.ElapsedMillis(),
			ContentHash:     ComputeHash(r.fetch.Body),
		}
	default:
		return &sitescan.Page{
			URL:            r.url,
			ContentType:    sitescan.ContentTypeNonHTML,
			ResponseStatus: r.fetch.Status,
			ResponseTime:   r.fetch.ElapsedMillis(),
		}
	}
}

func internalErrorPage(u string) *sitescan.Page {
	return &sitescan.Page{
		URL:            u,
		ContentType:    sitescan.ContentTypeInternalError,
		ResponseStatus: sitescan.StatusInternalError,
		ResponseTime:   sitescan.NoResponseTime,
	}
}

// ComputeHash computes a hash of the content using xxhash.
func ComputeHash(content string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(content))
}

// parseSeed validates a seed URL.
func parseSeed(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, sitescan.Errorf(sitescan.EINVALID, "invalid seed URL %q: %v", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, sitescan.Errorf(sitescan.EINVALID, "invalid seed URL %q", raw)
	}
	return u, nil
}
