package sitescan

import (
	"context"
	"time"
)

// ContentType classifies the outcome of a page attempt.
type ContentType string

// Page classifications.
const (
	ContentTypeHTML          ContentType = "HTML_PAGE"
	ContentTypeNonHTML       ContentType = "NON_HTML_OR_ERROR"
	ContentTypeDisallowed    ContentType = "DISALLOWED"
	ContentTypeInternalError ContentType = "INTERNAL_ERROR"
)

// Valid reports whether c is one of the known classifications.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeHTML, ContentTypeNonHTML, ContentTypeDisallowed, ContentTypeInternalError:
		return true
	}
	return false
}

// ParseContentType converts a raw classification into a ContentType.
// Returns EINVALID for unknown values.
func ParseContentType(s string) (ContentType, error) {
	c := ContentType(s)
	if !c.Valid() {
		return "", Errorf(EINVALID, "unknown content type %q", s)
	}
	return c, nil
}

// Sentinel response statuses stored in place of an HTTP status when no
// HTTP response was received.
const (
	StatusDisallowed        = 0
	StatusDNSFailure        = 0
	StatusNetworkError      = -1
	StatusInternalError     = -1
	StatusConnectionRefused = -2
	StatusInvalidURL        = -3
)

// NoResponseTime is stored as the response time of attempts that never
// reached the network (disallowed or internally failed pages).
const NoResponseTime = -1

// Header is a heading element (h1..h6) extracted from a page.
type Header struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Page is a single URL attempted during a crawl.
type Page struct {
	ID              int64       `json:"id"`
	URL             string      `json:"url"`
	MetaTitle       string      `json:"metaTitle"`
	MetaDescription *string     `json:"metaDescription"`
	ScannedAt       time.Time   `json:"scannedAt"`
	ContentType     ContentType `json:"contentType"`
	ResponseStatus  int         `json:"responseStatus"`
	ResponseTime    int64       `json:"responseTime"` // milliseconds
	ContentHash     string      `json:"contentHash,omitempty"`

	// Populated by ListPages only.
	Headers       []Header `json:"headers"`
	OutgoingLinks []string `json:"outgoingLinks"`
	IncomingLinks []string `json:"incomingLinks"`
}

// Validate returns an error if the page contains invalid fields.
func (p *Page) Validate() error {
	if p.URL == "" {
		return Errorf(EINVALID, "page URL required")
	}
	if !p.ContentType.Valid() {
		return Errorf(EINVALID, "invalid page content type %q", p.ContentType)
	}
	return nil
}

// PageSortKey is a column pages may be ordered by.
type PageSortKey string

// Sortable page columns.
const (
	SortByURL             PageSortKey = "url"
	SortByMetaTitle       PageSortKey = "metaTitle"
	SortByMetaDescription PageSortKey = "metaDescription"
	SortByResponseStatus  PageSortKey = "responseStatus"
	SortByResponseTime    PageSortKey = "responseTime"
)

// ParsePageSortKey validates a user-supplied sort key against the allow-list.
// An empty key sorts by URL.
func ParsePageSortKey(s string) (PageSortKey, error) {
	switch k := PageSortKey(s); k {
	case "":
		return SortByURL, nil
	case SortByURL, SortByMetaTitle, SortByMetaDescription, SortByResponseStatus, SortByResponseTime:
		return k, nil
	}
	return "", Errorf(EINVALID, "unsupported sort key %q", s)
}

// Pagination limits for ListPages.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// PageFilter represents a filter for ListPages.
type PageFilter struct {
	// Search matches case-insensitively against url, title and description.
	Search string `json:"searchQuery"`

	// ContentType restricts results to one classification.
	ContentType *ContentType `json:"contentType"`

	SortBy     PageSortKey `json:"sortKey"`
	Descending bool        `json:"descending"`

	// Page is 1-based.
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Normalize applies defaults and bounds to the pagination and sort fields.
func (f *PageFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.SortBy == "" {
		f.SortBy = SortByURL
	}
}

// Offset returns the row offset of the filter's page.
func (f *PageFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// PageList is one page of ListPages results.
type PageList struct {
	Pages []*Page `json:"pages"`
	Total int     `json:"total"`
}

// PageService represents the per-domain store of pages, headers and links.
type PageService interface {
	// SavePage inserts the page unless a page with the same URL exists.
	// On insert the page ID is set and inserted is true. When the URL was
	// already stored nothing is written and the existing ID is set.
	SavePage(ctx context.Context, page *Page) (inserted bool, err error)

	// SaveHeader records a heading of the page.
	SaveHeader(ctx context.Context, pageID int64, header Header) error

	// SaveOutgoingLink records a link from the page. Saving the same
	// destination twice for one page is a no-op.
	SaveOutgoingLink(ctx context.Context, pageID int64, destinationURL string) error

	// ListPages returns one page of results with headers, outgoing and
	// incoming links attached, plus the total number of matching pages.
	ListPages(ctx context.Context, filter PageFilter) (*PageList, error)

	// ScannedURLs returns the URL of every stored page.
	ScannedURLs(ctx context.Context) ([]string, error)

	// DestinationURLs returns every distinct outgoing link destination.
	DestinationURLs(ctx context.Context) ([]string, error)
}

// SiteStore is an open per-domain store.
type SiteStore interface {
	PageService
	Close() error
}

// SiteService opens per-domain stores.
type SiteService interface {
	// OpenSite opens the store for domain, creating it if needed.
	// When overwrite is true any existing store is removed first.
	OpenSite(ctx context.Context, domain string, overwrite bool) (SiteStore, error)

	// ViewSite opens the store for domain for queries only. Writes through
	// the returned store fail. Returns ENOTFOUND if no store exists.
	ViewSite(ctx context.Context, domain string) (SiteStore, error)

	// SiteExists reports whether a store exists for domain.
	SiteExists(domain string) bool
}
