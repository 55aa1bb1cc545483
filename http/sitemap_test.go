package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sitescanhttp "github.com/fwojciec/sitescan/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapService_DiscoverURLs(t *testing.T) {
	t.Parallel()

	t.Run("reads urlset", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/docs/intro</loc></url>
  <url><loc> {{BASE}}/docs/guide </loc></url>
  <url><lastmod>2024-01-01</lastmod></url>
</urlset>`,
		})
		defer srv.Close()

		svc := sitescanhttp.NewSitemapService(srv.Client(), "")
		urls, err := svc.DiscoverURLs(context.Background(), []string{srv.URL + "/sitemap.xml"})

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/docs/guide"}, urls)
	})

	t.Run("follows sitemap index", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{{BASE}}/sitemap-a.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/sitemap-b.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/sitemap.xml</loc></sitemap>
</sitemapindex>`,
			"/sitemap-a.xml": `<urlset><url><loc>{{BASE}}/a</loc></url></urlset>`,
			"/sitemap-b.xml": `<urlset><url><loc>{{BASE}}/b</loc></url><url><loc>{{BASE}}/a</loc></url></urlset>`,
		})
		defer srv.Close()

		svc := sitescanhttp.NewSitemapService(srv.Client(), "")
		urls, err := svc.DiscoverURLs(context.Background(), []string{srv.URL + "/sitemap.xml"})

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b"}, urls)
	})

	t.Run("skips broken sitemaps when others succeed", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/good.xml":   `<urlset><url><loc>{{BASE}}/page</loc></url></urlset>`,
			"/broken.xml": `this is not xml`,
		})
		defer srv.Close()

		svc := sitescanhttp.NewSitemapService(srv.Client(), "")
		urls, err := svc.DiscoverURLs(context.Background(), []string{
			srv.URL + "/missing.xml",
			srv.URL + "/broken.xml",
			srv.URL + "/good.xml",
		})

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/page"}, urls)
	})

	t.Run("returns error when nothing was found", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{})
		defer srv.Close()

		svc := sitescanhttp.NewSitemapService(srv.Client(), "")
		urls, err := svc.DiscoverURLs(context.Background(), []string{srv.URL + "/sitemap.xml"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")
		assert.Empty(t, urls)
	})

	t.Run("returns empty slice for no sitemaps", func(t *testing.T) {
		t.Parallel()

		svc := sitescanhttp.NewSitemapService(nil, "")
		urls, err := svc.DiscoverURLs(context.Background(), nil)

		require.NoError(t, err)
		assert.NotNil(t, urls)
		assert.Empty(t, urls)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := sitescanhttp.NewSitemapService(nil, "")
		_, err := svc.DiscoverURLs(ctx, []string{"http://example.com/sitemap.xml"})

		require.ErrorIs(t, err, context.Canceled)
	})
}

func newTestServer(t *testing.T, content map[string]string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body = strings.ReplaceAll(body, "{{BASE}}", srv.URL)

		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
		} else {
			w.Header().Set("Content-Type", "application/xml")
		}
		_, _ = w.Write([]byte(body))
	}))

	return srv
}
