package crawl

import (
	"net/url"
	"strings"

	"github.com/fwojciec/sitescan/bloom"
)

// Frontier is a FIFO queue of URLs on a single host, with visited and queued
// sets keyed by the exact URL string. A Bloom filter answers the common
// "never seen" case before the exact sets are consulted.
//
// Frontier is not safe for concurrent use; it is owned by the session loop.
type Frontier struct {
	host    string
	seen    *bloom.Filter
	queue   []string
	queued  map[string]bool
	visited map[string]bool
}

// NewFrontier creates a Frontier scoped to host, with its Bloom filter sized
// for n expected URLs at the given false positive rate.
func NewFrontier(host string, n uint, fpRate float64) *Frontier {
	return &Frontier{
		host:    host,
		seen:    bloom.NewFilter(n, fpRate),
		queued:  make(map[string]bool),
		visited: make(map[string]bool),
	}
}

// Host returns the hostname the frontier is scoped to.
func (f *Frontier) Host() string {
	return f.host
}

// Seed enqueues urls that are neither visited nor queued, without host
// scoping. Returns the number of URLs added.
func (f *Frontier) Seed(urls ...string) int {
	var n int
	for _, u := range urls {
		if f.push(u) {
			n++
		}
	}
	return n
}

// Discover enqueues rawURL if it is on the frontier's host and has not been
// visited or queued. Reports whether the URL was added.
func (f *Frontier) Discover(rawURL string) bool {
	if !f.InScope(rawURL) {
		return false
	}
	return f.push(rawURL)
}

// InScope reports whether rawURL's hostname equals the frontier's host.
func (f *Frontier) InScope(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), f.host)
}

// Next dequeues the oldest URL and marks it visited.
// The bool result is false if the frontier is empty.
func (f *Frontier) Next() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	delete(f.queued, u)
	f.visited[u] = true
	return u, true
}

// MarkVisited records urls as visited without queueing them.
func (f *Frontier) MarkVisited(urls ...string) {
	for _, u := range urls {
		f.seen.Add(u)
		f.visited[u] = true
	}
}

// Visited reports whether rawURL has been dispatched or marked visited.
func (f *Frontier) Visited(rawURL string) bool {
	return f.seen.Test(rawURL) && f.visited[rawURL]
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	return len(f.queue)
}

// VisitedCount returns the number of visited URLs.
func (f *Frontier) VisitedCount() int {
	return len(f.visited)
}

// Known returns the number of URLs visited or queued.
func (f *Frontier) Known() int {
	return len(f.visited) + len(f.queue)
}

func (f *Frontier) push(u string) bool {
	if u == "" {
		return false
	}
	// A negative Bloom answer means u is in neither set.
	if f.seen.TestAndAdd(u) && (f.visited[u] || f.queued[u]) {
		return false
	}
	f.queued[u] = true
	f.queue = append(f.queue, u)
	return true
}
