package sitescan

// Extraction holds the structural metadata of an HTML page.
type Extraction struct {
	Title string

	// Description is nil when the page declares none.
	Description *string

	// Headings in document order.
	Headings []Header

	// Links are absolute, deduplicated, in first-occurrence order.
	Links []string
}

// Extractor parses HTML into structural metadata.
type Extractor interface {
	// Extract parses html. Relative links are resolved against baseURL.
	Extract(html string, baseURL string) (*Extraction, error)
}
