// Package sqlite provides SQLite-based storage implementations for sitescan
// services: one database per crawled domain plus a cross-domain registry.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database with a single writer connection and a
// separate read-only pool for queries.
type DB struct {
	db       *sql.DB
	ro       *sql.DB
	path     string
	schema   string
	readOnly bool
}

// NewSiteDB creates a DB holding the pages, headers and links of one domain.
// Use ":memory:" for an in-memory database.
func NewSiteDB(path string) *DB {
	return &DB{path: path, schema: siteSchema}
}

// NewReadOnlySiteDB creates a DB over an existing site database that only
// opens the read-only pool. Writes through it fail.
func NewReadOnlySiteDB(path string) *DB {
	return &DB{path: path, schema: siteSchema, readOnly: true}
}

// NewRegistryDB creates a DB holding the cross-domain scan registry.
func NewRegistryDB(path string) *DB {
	return &DB{path: path, schema: registrySchema}
}

// Open opens the database connections and creates the schema if needed.
func (db *DB) Open() error {
	if db.readOnly {
		return db.openReadOnly()
	}

	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Wait on lock contention instead of failing with "database is locked".
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL lets the read-only pool query while the crawl loop writes.
	// Not supported for in-memory databases.
	if !db.inMemory() {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	if _, err := conn.Exec(db.schema); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	// An in-memory database is private to its connection, so reads share it.
	if db.inMemory() {
		db.ro = conn
		return nil
	}

	ro, err := openReadPool(db.path)
	if err != nil {
		conn.Close()
		return err
	}
	db.ro = ro

	return nil
}

// openReadOnly opens only the read-only pool. Schema and pragmas are left
// to the writer that created the database.
func (db *DB) openReadOnly() error {
	if db.inMemory() {
		return fmt.Errorf("read-only in-memory database is not supported")
	}
	ro, err := openReadPool(db.path)
	if err != nil {
		return err
	}
	db.db, db.ro = ro, ro
	return nil
}

func openReadPool(path string) (*sql.DB, error) {
	ro, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open read-only connection: %w", err)
	}
	if err := ro.Ping(); err != nil {
		ro.Close()
		return nil, fmt.Errorf("failed to connect read-only: %w", err)
	}
	return ro, nil
}

// Close closes the database connections.
func (db *DB) Close() error {
	var err error
	if db.ro != nil && db.ro != db.db {
		err = db.ro.Close()
	}
	if db.db != nil {
		if cerr := db.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Path returns the database path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) inMemory() bool {
	return db.path == ":memory:"
}

// QueryRowContext executes a query that returns a single row on the writer connection.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows on the writer connection.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// ReadQueryRowContext executes a single-row query on the read-only pool.
func (db *DB) ReadQueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.ro.QueryRowContext(ctx, query, args...)
}

// ReadQueryContext executes a query on the read-only pool.
func (db *DB) ReadQueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.ro.QueryContext(ctx, query, args...)
}

// Stats returns writer connection statistics.
func (db *DB) Stats() sql.DBStats {
	return db.db.Stats()
}

const siteSchema = `
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		meta_title TEXT NOT NULL DEFAULT '',
		meta_description TEXT,
		scanned_at TEXT NOT NULL,
		content_type TEXT NOT NULL,
		response_status INTEGER NOT NULL,
		response_time INTEGER NOT NULL,
		content_hash TEXT NOT NULL DEFAULT '',
		search_text TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_pages_response_status ON pages(response_status);
	CREATE INDEX IF NOT EXISTS idx_pages_response_time ON pages(response_time);
	CREATE INDEX IF NOT EXISTS idx_pages_meta_title ON pages(meta_title);
	CREATE INDEX IF NOT EXISTS idx_pages_meta_description ON pages(meta_description);
	CREATE INDEX IF NOT EXISTS idx_pages_content_type ON pages(content_type);

	CREATE TABLE IF NOT EXISTS headers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
		level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 6),
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_headers_page_id ON headers(page_id);

	CREATE TABLE IF NOT EXISTS outgoing_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
		destination_url TEXT NOT NULL,
		UNIQUE (page_id, destination_url)
	);

	CREATE INDEX IF NOT EXISTS idx_outgoing_links_page_id ON outgoing_links(page_id);
	CREATE INDEX IF NOT EXISTS idx_outgoing_links_destination_url ON outgoing_links(destination_url);
`

const registrySchema = `
	CREATE TABLE IF NOT EXISTS scan_registry (
		db_name TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		start_url TEXT NOT NULL,
		status TEXT NOT NULL,
		scanned_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scan_registry_scanned_at ON scan_registry(scanned_at);
`
