// Package sitescan provides a single-domain crawler that builds a
// structural snapshot of a website: per-page metadata, headings and the
// directed link graph between pages, persisted so crawls can be resumed.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, http/).
package sitescan

// DefaultUserAgent is the user agent sent with every crawler request.
const DefaultUserAgent = "sitescan/1.0 (+https://github.com/fwojciec/sitescan)"

// DefaultConcurrency is the number of in-flight fetches when none is configured.
const DefaultConcurrency = 5
