package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/sitescan"
	"golang.org/x/time/rate"
)

var _ sitescan.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter provides per-domain rate limiting using token buckets.
// It creates a separate rate limiter for each domain, so concurrent workers
// on one domain share a single budget.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
}

// NewDomainLimiter creates a new DomainLimiter with the specified requests per second limit.
// Each domain gets its own limiter with a burst of 1 (no bursting allowed).
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(rps),
	}
}

// NewDelayLimiter creates a DomainLimiter allowing one request per delay,
// as requested by a robots.txt Crawl-delay. Returns nil for a non-positive delay.
func NewDelayLimiter(delay time.Duration) *DomainLimiter {
	if delay <= 0 {
		return nil
	}
	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(delay),
	}
}

// Wait blocks until the rate limit allows a request to the domain.
// Returns an error if the context is canceled before the wait completes.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	d.mu.Lock()
	limiter, ok := d.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(d.limit, 1)
		d.limiters[domain] = limiter
	}
	d.mu.Unlock()

	return limiter.Wait(ctx)
}
