package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fwojciec/sitescan"
	"github.com/fwojciec/sitescan/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_OpenSite(t *testing.T) {
	t.Parallel()

	t.Run("keeps stored pages when reopened without overwrite", func(t *testing.T) {
		t.Parallel()

		ws := sqlite.NewWorkspace(t.TempDir())
		ctx := context.Background()

		site, err := ws.OpenSite(ctx, "example.com", true)
		require.NoError(t, err)
		_, err = site.SavePage(ctx, htmlPage("https://example.com/"))
		require.NoError(t, err)
		require.NoError(t, site.Close())

		assert.True(t, ws.SiteExists("example.com"))

		site, err = ws.OpenSite(ctx, "example.com", false)
		require.NoError(t, err)
		defer site.Close()

		urls, err := site.ScannedURLs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/"}, urls)
	})

	t.Run("removes stored pages on overwrite", func(t *testing.T) {
		t.Parallel()

		ws := sqlite.NewWorkspace(t.TempDir())
		ctx := context.Background()

		site, err := ws.OpenSite(ctx, "example.com", false)
		require.NoError(t, err)
		_, err = site.SavePage(ctx, htmlPage("https://example.com/"))
		require.NoError(t, err)
		require.NoError(t, site.Close())

		site, err = ws.OpenSite(ctx, "example.com", true)
		require.NoError(t, err)
		defer site.Close()

		urls, err := site.ScannedURLs(ctx)
		require.NoError(t, err)
		assert.Empty(t, urls)
	})

	t.Run("rejects domains that escape the data directory", func(t *testing.T) {
		t.Parallel()

		ws := sqlite.NewWorkspace(t.TempDir())

		_, err := ws.OpenSite(context.Background(), "../etc", false)

		assert.Equal(t, sitescan.EINVALID, sitescan.ErrorCode(err))
		assert.False(t, ws.SiteExists("../etc"))
	})
}

func TestWorkspace_ViewSite(t *testing.T) {
	t.Parallel()

	t.Run("reads stored pages", func(t *testing.T) {
		t.Parallel()

		ws := sqlite.NewWorkspace(t.TempDir())
		ctx := context.Background()

		site, err := ws.OpenSite(ctx, "example.com", true)
		require.NoError(t, err)
		_, err = site.SavePage(ctx, htmlPage("https://example.com/"))
		require.NoError(t, err)
		require.NoError(t, site.Close())

		view, err := ws.ViewSite(ctx, "example.com")
		require.NoError(t, err)
		defer view.Close()

		list, err := view.ListPages(ctx, sitescan.PageFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, list.Total)
		require.Len(t, list.Pages, 1)
		assert.Equal(t, "https://example.com/", list.Pages[0].URL)
	})

	t.Run("rejects writes", func(t *testing.T) {
		t.Parallel()

		ws := sqlite.NewWorkspace(t.TempDir())
		ctx := context.Background()

		site, err := ws.OpenSite(ctx, "example.com", true)
		require.NoError(t, err)
		require.NoError(t, site.Close())

		view, err := ws.ViewSite(ctx, "example.com")
		require.NoError(t, err)
		defer view.Close()

		_, err = view.SavePage(ctx, htmlPage("https://example.com/new"))
		require.Error(t, err)
	})

	t.Run("does not create a missing database", func(t *testing.T) {
		t.Parallel()

		ws := sqlite.NewWorkspace(t.TempDir())

		_, err := ws.ViewSite(context.Background(), "missing.com")

		assert.Equal(t, sitescan.ENOTFOUND, sitescan.ErrorCode(err))
		assert.False(t, ws.SiteExists("missing.com"))
	})
}

func TestWorkspace_SitePath(t *testing.T) {
	t.Parallel()

	ws := sqlite.NewWorkspace(t.TempDir())

	path, err := ws.SitePath("example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com.db", filepath.Base(path))
}

func TestWorkspace_OpenRegistry(t *testing.T) {
	t.Parallel()

	ws := sqlite.NewWorkspace(t.TempDir())

	db, err := ws.OpenRegistry()
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ws.RegistryPath(), db.Path())
}
