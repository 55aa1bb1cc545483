package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/sitescan"
)

// Compile-time interface verification.
var _ sitescan.SiteService = (*Workspace)(nil)

// Workspace lays out databases under a data directory: the registry at
// registry.db and one database per domain under sites/.
type Workspace struct {
	dir string
}

// NewWorkspace creates a Workspace rooted at dir.
func NewWorkspace(dir string) *Workspace {
	return &Workspace{dir: dir}
}

// Dir returns the data directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// RegistryPath returns the path of the registry database.
func (w *Workspace) RegistryPath() string {
	return filepath.Join(w.dir, "registry.db")
}

// SitePath returns the path of the database for domain.
func (w *Workspace) SitePath(domain string) (string, error) {
	if domain == "" || domain == "." || domain == ".." || strings.ContainsAny(domain, `/\`) {
		return "", sitescan.Errorf(sitescan.EINVALID, "invalid domain %q", domain)
	}
	return filepath.Join(w.dir, "sites", domain+".db"), nil
}

// OpenRegistry opens the registry database, creating the directory if needed.
func (w *Workspace) OpenRegistry() (*DB, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db := NewRegistryDB(w.RegistryPath())
	if err := db.Open(); err != nil {
		return nil, err
	}
	return db, nil
}

// SiteExists reports whether a database exists for domain.
func (w *Workspace) SiteExists(domain string) bool {
	path, err := w.SitePath(domain)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// OpenSite opens the database for domain. With overwrite, the database
// and its WAL files are removed first.
func (w *Workspace) OpenSite(_ context.Context, domain string, overwrite bool) (sitescan.SiteStore, error) {
	path, err := w.SitePath(domain)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create site directory: %w", err)
	}

	if overwrite {
		for _, p := range []string{path, path + "-wal", path + "-shm"} {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to remove %s: %w", p, err)
			}
		}
	}

	db := NewSiteDB(path)
	if err := db.Open(); err != nil {
		return nil, err
	}
	return &Site{PageService: NewPageService(db), db: db}, nil
}

// ViewSite opens the database for domain through the read-only pool only.
// Returns ENOTFOUND if no database exists for domain.
func (w *Workspace) ViewSite(_ context.Context, domain string) (sitescan.SiteStore, error) {
	path, err := w.SitePath(domain)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, sitescan.Errorf(sitescan.ENOTFOUND, "no crawl data for %q", domain)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	db := NewReadOnlySiteDB(path)
	if err := db.Open(); err != nil {
		return nil, err
	}
	return &Site{PageService: NewPageService(db), db: db}, nil
}

// Site is an open per-domain store.
type Site struct {
	*PageService
	db *DB
}

// Close closes the site database.
func (s *Site) Close() error {
	return s.db.Close()
}
