package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sitescanhttp "github.com/fwojciec/sitescan/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyGate_Load(t *testing.T) {
	t.Parallel()

	t.Run("parses robots.txt rules", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/robots.txt": `User-agent: *
Disallow: /private/
Crawl-delay: 2
Sitemap: {{BASE}}/extra-sitemap.xml
`,
		})
		defer srv.Close()

		gate := sitescanhttp.NewPolicyGate(srv.Client(), "TestBot/1.0", nil)
		policy, err := gate.Load(context.Background(), srv.URL+"/start")

		require.NoError(t, err)
		assert.True(t, policy.IsAllowed(srv.URL+"/public"))
		assert.False(t, policy.IsAllowed(srv.URL+"/private/secret"))
		assert.Equal(t, 2*time.Second, policy.CrawlDelay())
		assert.Equal(t, []string{srv.URL + "/extra-sitemap.xml"}, policy.Sitemaps())
	})

	t.Run("applies agent specific groups", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/robots.txt": `User-agent: TestBot
Disallow: /

User-agent: *
Allow: /
`,
		})
		defer srv.Close()

		gate := sitescanhttp.NewPolicyGate(srv.Client(), "TestBot/1.0", nil)
		policy, err := gate.Load(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.False(t, policy.IsAllowed(srv.URL+"/page"))
		assert.True(t, policy.IsAllowedFor(srv.URL+"/page", "OtherBot"))
	})

	t.Run("allows everything when robots.txt is missing", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{})
		defer srv.Close()

		gate := sitescanhttp.NewPolicyGate(srv.Client(), "", nil)
		policy, err := gate.Load(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.True(t, policy.IsAllowed(srv.URL+"/anything"))
		assert.Zero(t, policy.CrawlDelay())
		assert.Empty(t, policy.Sitemaps())
	})

	t.Run("allows everything when robots.txt errors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		gate := sitescanhttp.NewPolicyGate(srv.Client(), "", nil)
		policy, err := gate.Load(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.True(t, policy.IsAllowed(srv.URL+"/private/"))
	})

	t.Run("allows everything when host is unreachable", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		gate := sitescanhttp.NewPolicyGate(nil, "", nil)
		policy, err := gate.Load(context.Background(), addr)

		require.Error(t, err)
		require.NotNil(t, policy)
		assert.True(t, policy.IsAllowed(addr+"/page"))
	})
}

func TestPolicy_IsAllowed(t *testing.T) {
	t.Parallel()

	policy, err := sitescanhttp.ParsePolicy(`User-agent: *
Disallow: /search?
Disallow: /admin
`, "TestBot")
	require.NoError(t, err)

	assert.True(t, policy.IsAllowed("https://example.com"))
	assert.True(t, policy.IsAllowed("https://example.com/search"))
	assert.False(t, policy.IsAllowed("https://example.com/search?q=go"))
	assert.False(t, policy.IsAllowed("https://example.com/admin/users"))
	assert.True(t, policy.IsAllowed("https://example.com/docs#admin"))
}

func TestPolicyGate_Seed(t *testing.T) {
	t.Parallel()

	t.Run("combines default and declared sitemaps and filters", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/robots.txt": `User-agent: *
Disallow: /private/
Sitemap: {{BASE}}/sitemap.xml
Sitemap: {{BASE}}/news.xml
`,
			"/sitemap.xml": `<urlset>
  <url><loc>{{BASE}}/a</loc></url>
  <url><loc>{{BASE}}/private/b</loc></url>
  <url><loc>https://elsewhere.example.com/c</loc></url>
</urlset>`,
			"/news.xml": `<urlset>
  <url><loc>{{BASE}}/d</loc></url>
  <url><loc>{{BASE}}/a</loc></url>
</urlset>`,
		})
		defer srv.Close()

		sitemaps := sitescanhttp.NewSitemapService(srv.Client(), "")
		gate := sitescanhttp.NewPolicyGate(srv.Client(), "", sitemaps)

		policy, err := gate.Load(context.Background(), srv.URL)
		require.NoError(t, err)

		seeds, err := gate.Seed(context.Background(), srv.URL, policy)
		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/d"}, seeds)
	})

	t.Run("returns error when no sitemap exists", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{})
		defer srv.Close()

		sitemaps := sitescanhttp.NewSitemapService(srv.Client(), "")
		gate := sitescanhttp.NewPolicyGate(srv.Client(), "", sitemaps)

		policy, err := gate.Load(context.Background(), srv.URL)
		require.NoError(t, err)

		seeds, err := gate.Seed(context.Background(), srv.URL, policy)
		require.Error(t, err)
		assert.Empty(t, seeds)
	})
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	assert.True(t, sitescanhttp.SameHost("https://Example.com/a", "example.com"))
	assert.True(t, sitescanhttp.SameHost("http://example.com:8080/a", "example.com"))
	assert.False(t, sitescanhttp.SameHost("https://sub.example.com/a", "example.com"))
	assert.False(t, sitescanhttp.SameHost("::bad", "example.com"))
}
