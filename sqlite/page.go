package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/sitescan"
	"golang.org/x/sync/errgroup"
)

// Compile-time interface verification.
var _ sitescan.PageService = (*PageService)(nil)

// PageService implements sitescan.PageService using SQLite.
type PageService struct {
	db *DB
}

// NewPageService creates a new PageService.
func NewPageService(db *DB) *PageService {
	return &PageService{db: db}
}

// pageOrderClauses maps each sortable key and direction to a fixed ORDER BY
// clause. User input only selects a key; it never reaches query text.
var pageOrderClauses = map[sitescan.PageSortKey][2]string{
	sitescan.SortByURL:             {"ORDER BY url ASC, id ASC", "ORDER BY url DESC, id DESC"},
	sitescan.SortByMetaTitle:       {"ORDER BY meta_title ASC, id ASC", "ORDER BY meta_title DESC, id DESC"},
	sitescan.SortByMetaDescription: {"ORDER BY meta_description ASC, id ASC", "ORDER BY meta_description DESC, id DESC"},
	sitescan.SortByResponseStatus:  {"ORDER BY response_status ASC, id ASC", "ORDER BY response_status DESC, id DESC"},
	sitescan.SortByResponseTime:    {"ORDER BY response_time ASC, id ASC", "ORDER BY response_time DESC, id DESC"},
}

// SavePage inserts the page unless its URL is already stored.
func (s *PageService) SavePage(ctx context.Context, page *sitescan.Page) (bool, error) {
	if err := page.Validate(); err != nil {
		return false, err
	}

	if page.ScannedAt.IsZero() {
		page.ScannedAt = time.Now().UTC()
	}

	var description sql.NullString
	if page.MetaDescription != nil {
		description = sql.NullString{String: *page.MetaDescription, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (url, meta_title, meta_description, scanned_at, content_type, response_status, response_time, content_hash, search_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (url) DO NOTHING
	`, page.URL, page.MetaTitle, description, formatTime(page.ScannedAt), string(page.ContentType),
		page.ResponseStatus, page.ResponseTime, page.ContentHash, searchText(page))
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rows == 0 {
		if err := s.db.QueryRowContext(ctx, "SELECT id FROM pages WHERE url = ?", page.URL).Scan(&page.ID); err != nil {
			return false, fmt.Errorf("failed to look up existing page: %w", err)
		}
		return false, nil
	}

	page.ID, err = result.LastInsertId()
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveHeader records a heading of a page.
func (s *PageService) SaveHeader(ctx context.Context, pageID int64, header sitescan.Header) error {
	if header.Level < 1 || header.Level > 6 {
		return sitescan.Errorf(sitescan.EINVALID, "invalid header level %d", header.Level)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO headers (page_id, level, text) VALUES (?, ?, ?)
	`, pageID, header.Level, header.Text)
	return err
}

// SaveOutgoingLink records a link from a page, ignoring duplicates.
func (s *PageService) SaveOutgoingLink(ctx context.Context, pageID int64, destinationURL string) error {
	if destinationURL == "" {
		return sitescan.Errorf(sitescan.EINVALID, "destination URL required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outgoing_links (page_id, destination_url) VALUES (?, ?)
		ON CONFLICT (page_id, destination_url) DO NOTHING
	`, pageID, destinationURL)
	return err
}

// ListPages returns one page of results from the read-only pool.
func (s *PageService) ListPages(ctx context.Context, filter sitescan.PageFilter) (*sitescan.PageList, error) {
	filter.Normalize()

	clauses, ok := pageOrderClauses[filter.SortBy]
	if !ok {
		return nil, sitescan.Errorf(sitescan.EINVALID, "unsupported sort key %q", filter.SortBy)
	}
	order := clauses[0]
	if filter.Descending {
		order = clauses[1]
	}

	var where strings.Builder
	var args []any
	where.WriteString(" WHERE 1=1")

	if filter.Search != "" {
		where.WriteString(` AND search_text LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(foldCase(filter.Search)))
	}
	if filter.ContentType != nil {
		where.WriteString(" AND content_type = ?")
		args = append(args, string(*filter.ContentType))
	}

	list := &sitescan.PageList{Pages: []*sitescan.Page{}}

	if err := s.db.ReadQueryRowContext(ctx, "SELECT COUNT(*) FROM pages"+where.String(), args...).Scan(&list.Total); err != nil {
		return nil, err
	}
	if list.Total == 0 {
		return list, nil
	}

	query := `SELECT id, url, meta_title, meta_description, scanned_at, content_type, response_status, response_time, content_hash
		FROM pages` + where.String() + " " + order + " LIMIT ? OFFSET ?"
	rows, err := s.db.ReadQueryContext(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		list.Pages = append(list.Pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.attachRelations(ctx, list.Pages); err != nil {
		return nil, err
	}

	return list, nil
}

// attachRelations loads headers, outgoing and incoming links for pages with
// one batched query each, run concurrently on the read-only pool.
func (s *PageService) attachRelations(ctx context.Context, pages []*sitescan.Page) error {
	if len(pages) == 0 {
		return nil
	}

	ids := make([]any, len(pages))
	urls := make([]any, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
		urls[i] = p.URL
	}

	var (
		headers  map[int64][]sitescan.Header
		outgoing map[int64][]string
		incoming map[string][]string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		headers, err = s.findHeaders(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		outgoing, err = s.findOutgoingLinks(gctx, ids)
		return err
	})
	g.Go(func() (err error) {
		incoming, err = s.findIncomingLinks(gctx, urls)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range pages {
		p.Headers = headers[p.ID]
		if p.Headers == nil {
			p.Headers = []sitescan.Header{}
		}
		p.OutgoingLinks = outgoing[p.ID]
		if p.OutgoingLinks == nil {
			p.OutgoingLinks = []string{}
		}
		p.IncomingLinks = incoming[p.URL]
		if p.IncomingLinks == nil {
			p.IncomingLinks = []string{}
		}
	}
	return nil
}

func (s *PageService) findHeaders(ctx context.Context, ids []any) (map[int64][]sitescan.Header, error) {
	rows, err := s.db.ReadQueryContext(ctx, `
		SELECT page_id, level, text FROM headers
		WHERE page_id IN (`+placeholders(len(ids))+`)
		ORDER BY id
	`, ids...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[int64][]sitescan.Header)
	for rows.Next() {
		var pageID int64
		var h sitescan.Header
		if err := rows.Scan(&pageID, &h.Level, &h.Text); err != nil {
			return nil, err
		}
		m[pageID] = append(m[pageID], h)
	}
	return m, rows.Err()
}

func (s *PageService) findOutgoingLinks(ctx context.Context, ids []any) (map[int64][]string, error) {
	rows, err := s.db.ReadQueryContext(ctx, `
		SELECT page_id, destination_url FROM outgoing_links
		WHERE page_id IN (`+placeholders(len(ids))+`)
		ORDER BY id
	`, ids...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[int64][]string)
	for rows.Next() {
		var pageID int64
		var dest string
		if err := rows.Scan(&pageID, &dest); err != nil {
			return nil, err
		}
		m[pageID] = append(m[pageID], dest)
	}
	return m, rows.Err()
}

// findIncomingLinks derives incoming links by joining outgoing links to the
// pages that declared them.
func (s *PageService) findIncomingLinks(ctx context.Context, urls []any) (map[string][]string, error) {
	rows, err := s.db.ReadQueryContext(ctx, `
		SELECT o.destination_url, p.url FROM outgoing_links o
		JOIN pages p ON p.id = o.page_id
		WHERE o.destination_url IN (`+placeholders(len(urls))+`)
		GROUP BY o.destination_url, p.url
		ORDER BY MIN(o.id)
	`, urls...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string][]string)
	for rows.Next() {
		var dest, source string
		if err := rows.Scan(&dest, &source); err != nil {
			return nil, err
		}
		m[dest] = append(m[dest], source)
	}
	return m, rows.Err()
}

// ScannedURLs returns the URL of every stored page.
func (s *PageService) ScannedURLs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, "SELECT url FROM pages ORDER BY id")
}

// DestinationURLs returns every distinct outgoing link destination in
// first-discovered order.
func (s *PageService) DestinationURLs(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `
		SELECT destination_url FROM outgoing_links
		GROUP BY destination_url
		ORDER BY MIN(id)
	`)
}

func (s *PageService) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// searchText is the case-folded text matched by ListPages searches. Fields
// are separated by a newline so a match cannot span two of them.
func searchText(page *sitescan.Page) string {
	fields := []string{page.URL, page.MetaTitle}
	if page.MetaDescription != nil {
		fields = append(fields, *page.MetaDescription)
	}
	return foldCase(strings.Join(fields, "\n"))
}

func scanPage(rows *sql.Rows) (*sitescan.Page, error) {
	var page sitescan.Page
	var description sql.NullString
	var scannedAt, contentType string

	if err := rows.Scan(&page.ID, &page.URL, &page.MetaTitle, &description, &scannedAt, &contentType,
		&page.ResponseStatus, &page.ResponseTime, &page.ContentHash); err != nil {
		return nil, err
	}

	if description.Valid {
		page.MetaDescription = &description.String
	}
	page.ContentType = sitescan.ContentType(contentType)

	var err error
	page.ScannedAt, err = parseTime(scannedAt, "scanned_at")
	if err != nil {
		return nil, err
	}
	return &page, nil
}
