package chi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/sitescan"
	sitescanchi "github.com/fwojciec/sitescan/chi"
	"github.com/fwojciec/sitescan/mock"
	"github.com/fwojciec/sitescan/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	workspace *sqlite.Workspace
	registry  *sqlite.RegistryService
	handler   http.Handler
}

func newTestServer(t *testing.T, opts ...sitescanchi.Option) *testServer {
	t.Helper()

	ws := sqlite.NewWorkspace(t.TempDir())
	db, err := ws.OpenRegistry()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := sqlite.NewRegistryService(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]sitescanchi.Option{sitescanchi.WithLogger(logger)}, opts...)

	return &testServer{
		workspace: ws,
		registry:  registry,
		handler:   sitescanchi.NewServer(ws, registry, opts...).Handler(),
	}
}

// seed stores n pages for domain; every fifth page is HTML with a response
// time that varies with its index.
func (s *testServer) seed(t *testing.T, domain string, n int) {
	t.Helper()

	ctx := context.Background()
	store, err := s.workspace.OpenSite(ctx, domain, true)
	require.NoError(t, err)
	defer store.Close()

	for i := range n {
		page := &sitescan.Page{
			URL:            fmt.Sprintf("https://%s/p%02d", domain, i),
			ScannedAt:      time.Now(),
			ContentType:    sitescan.ContentTypeNonHTML,
			ResponseStatus: http.StatusNotFound,
			ResponseTime:   int64(i),
		}
		if i%5 == 0 {
			page.ContentType = sitescan.ContentTypeHTML
			page.ResponseStatus = http.StatusOK
			page.ResponseTime = int64((i * 37) % 101)
			page.MetaTitle = fmt.Sprintf("Page %d", i)
		}
		_, err := store.SavePage(ctx, page)
		require.NoError(t, err)
		if i == 0 {
			require.NoError(t, store.SaveHeader(ctx, page.ID, sitescan.Header{Level: 1, Text: "Home"}))
			require.NoError(t, store.SaveOutgoingLink(ctx, page.ID, fmt.Sprintf("https://%s/p01", domain)))
		}
	}
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestServer_ListPages(t *testing.T) {
	t.Parallel()

	t.Run("filters and sorts HTML pages by response time", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		srv.seed(t, "example.test", 50)

		rec := srv.get(t, "/api/sites/example.test/pages?sortKey=responseTime&sortDirection=descending&contentType=HTML_PAGE")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		list := decode[sitescan.PageList](t, rec)
		assert.Equal(t, 10, list.Total)
		require.Len(t, list.Pages, 10)
		for i, p := range list.Pages {
			assert.Equal(t, sitescan.ContentTypeHTML, p.ContentType)
			if i > 0 {
				assert.LessOrEqual(t, p.ResponseTime, list.Pages[i-1].ResponseTime)
			}
		}
	})

	t.Run("paginates", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		srv.seed(t, "example.test", 50)

		rec := srv.get(t, "/api/sites/example.test/pages?page=2&limit=20")
		require.Equal(t, http.StatusOK, rec.Code)

		list := decode[sitescan.PageList](t, rec)
		assert.Equal(t, 50, list.Total)
		require.Len(t, list.Pages, 20)
		assert.Equal(t, "https://example.test/p20", list.Pages[0].URL)
	})

	t.Run("includes headers and links", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		srv.seed(t, "example.test", 5)

		rec := srv.get(t, "/api/sites/example.test/pages?searchQuery=P01")
		require.Equal(t, http.StatusOK, rec.Code)

		list := decode[sitescan.PageList](t, rec)
		require.Len(t, list.Pages, 1)
		assert.Equal(t, []string{"https://example.test/p00"}, list.Pages[0].IncomingLinks)

		rec = srv.get(t, "/api/sites/example.test/pages?limit=1")
		list = decode[sitescan.PageList](t, rec)
		require.Len(t, list.Pages, 1)
		assert.Equal(t, []sitescan.Header{{Level: 1, Text: "Home"}}, list.Pages[0].Headers)
		assert.Equal(t, []string{"https://example.test/p01"}, list.Pages[0].OutgoingLinks)
	})

	t.Run("returns 404 for unknown domain", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)

		rec := srv.get(t, "/api/sites/missing.test/pages")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, decode[map[string]string](t, rec)["error"], "missing.test")
	})

	t.Run("reads through a read-only store", func(t *testing.T) {
		t.Parallel()

		var closed bool
		sites := &mock.SiteService{
			OpenSiteFn: func(context.Context, string, bool) (sitescan.SiteStore, error) {
				t.Error("listing opened a writable store")
				return nil, sitescan.Errorf(sitescan.EINTERNAL, "unexpected open")
			},
			ViewSiteFn: func(_ context.Context, domain string) (sitescan.SiteStore, error) {
				assert.Equal(t, "example.test", domain)
				return &mock.SiteStore{
					ListPagesFn: func(context.Context, sitescan.PageFilter) (*sitescan.PageList, error) {
						return &sitescan.PageList{Pages: []*sitescan.Page{}}, nil
					},
					CloseFn: func() error {
						closed = true
						return nil
					},
				}, nil
			},
		}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := sitescanchi.NewServer(sites, &mock.RegistryService{}, sitescanchi.WithLogger(logger)).Handler()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sites/example.test/pages", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, closed)
	})

	t.Run("rejects invalid parameters", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		srv.seed(t, "example.test", 1)

		for _, query := range []string{
			"sortKey=contentHash",
			"sortKey=url%20DESC",
			"sortDirection=sideways",
			"contentType=IMAGE",
			"page=two",
			"limit=-x",
		} {
			rec := srv.get(t, "/api/sites/example.test/pages?"+query)
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})
}

func TestServer_ListRegistry(t *testing.T) {
	t.Parallel()

	t.Run("returns entries", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)
		ctx := context.Background()
		require.NoError(t, srv.registry.Upsert(ctx, "a.test", "a.test", "https://a.test/", sitescan.ScanCompleted))

		rec := srv.get(t, "/api/registry")
		require.Equal(t, http.StatusOK, rec.Code)

		entries := decode[[]sitescan.RegistryEntry](t, rec)
		require.Len(t, entries, 1)
		assert.Equal(t, "a.test", entries[0].Domain)
		assert.Equal(t, sitescan.ScanCompleted, entries[0].Status)
	})

	t.Run("returns empty array", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)

		rec := srv.get(t, "/api/registry")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("hides internal error details", func(t *testing.T) {
		t.Parallel()

		registry := &mock.RegistryService{
			ListAllFn: func(context.Context) ([]*sitescan.RegistryEntry, error) {
				return nil, fmt.Errorf("disk on fire")
			},
		}
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := sitescanchi.NewServer(&mock.SiteService{}, registry, sitescanchi.WithLogger(logger)).Handler()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/registry", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "disk on fire")
	})
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	t.Run("serves gatherer when configured", func(t *testing.T) {
		t.Parallel()

		reg := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "sitescan_test_total", Help: "test"})
		reg.MustRegister(counter)
		counter.Inc()

		srv := newTestServer(t, sitescanchi.WithMetrics(reg))

		rec := srv.get(t, "/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "sitescan_test_total 1")
	})

	t.Run("absent by default", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t)

		assert.Equal(t, http.StatusNotFound, srv.get(t, "/metrics").Code)
	})
}
