// Package goquery extracts page metadata and links from HTML documents.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sitescan"
	"golang.org/x/net/html/atom"
)

// Ensure Extractor implements sitescan.Extractor at compile time.
var _ sitescan.Extractor = (*Extractor)(nil)

// headingLevels maps heading elements to their level.
var headingLevels = map[atom.Atom]int{
	atom.H1: 1,
	atom.H2: 2,
	atom.H3: 3,
	atom.H4: 4,
	atom.H5: 5,
	atom.H6: 6,
}

// Extractor reads title, description, headings and links from HTML.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses html fetched from baseURL. Links are absolute http(s) URLs
// in first-occurrence order; external links are included.
func (e *Extractor) Extract(html string, baseURL string) (*sitescan.Extraction, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, sitescan.Errorf(sitescan.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, sitescan.Errorf(sitescan.EINVALID, "failed to parse HTML: %v", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	return &sitescan.Extraction{
		Title:       extractTitle(doc),
		Description: extractDescription(doc),
		Headings:    extractHeadings(doc),
		Links:       extractLinks(doc, base),
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	if title := collapseSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return metaContent(doc, "property", "og:title")
}

// extractDescription returns nil when the page has no usable description.
func extractDescription(doc *goquery.Document) *string {
	desc := metaContent(doc, "name", "description")
	if desc == "" {
		desc = metaContent(doc, "property", "og:description")
	}
	if desc == "" {
		return nil
	}
	return &desc
}

// metaContent returns the trimmed content of the first meta element whose
// attr equals value, ignoring case.
func metaContent(doc *goquery.Document, attr, value string) string {
	var content string
	doc.Find("meta[" + attr + "]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(sel.AttrOr(attr, "")), value) {
			return true
		}
		content = strings.TrimSpace(sel.AttrOr("content", ""))
		return content == ""
	})
	return content
}

func extractHeadings(doc *goquery.Document) []sitescan.Header {
	headings := []sitescan.Header{}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		level, ok := headingLevels[sel.Nodes[0].DataAtom]
		if !ok {
			return
		}
		text := collapseSpace(sel.Text())
		if text == "" {
			return
		}
		headings = append(headings, sitescan.Header{Level: level, Text: text})
	})
	return headings
}

func extractLinks(doc *goquery.Document, base *url.URL) []string {
	links := []string{}
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})
	return links
}

// resolveURL resolves href against base. Returns empty string if href cannot
// be parsed or does not resolve to an http(s) URL with a host.
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	if resolved.Host == "" {
		return ""
	}
	return resolved.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
