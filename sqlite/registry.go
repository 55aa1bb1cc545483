package sqlite

import (
	"context"
	"time"

	"github.com/fwojciec/sitescan"
)

// Compile-time interface verification.
var _ sitescan.RegistryService = (*RegistryService)(nil)

// RegistryService implements sitescan.RegistryService using SQLite.
type RegistryService struct {
	db *DB
}

// NewRegistryService creates a new RegistryService.
func NewRegistryService(db *DB) *RegistryService {
	return &RegistryService{db: db}
}

// Upsert creates the entry for dbName or replaces all of its fields.
func (s *RegistryService) Upsert(ctx context.Context, dbName, domain, startURL string, status sitescan.ScanStatus) error {
	if dbName == "" {
		return sitescan.Errorf(sitescan.EINVALID, "registry db name required")
	}
	if !status.Valid() {
		return sitescan.Errorf(sitescan.EINVALID, "invalid scan status %q", status)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_registry (db_name, domain, start_url, status, scanned_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (db_name) DO UPDATE SET
			domain = excluded.domain,
			start_url = excluded.start_url,
			status = excluded.status,
			scanned_at = excluded.scanned_at
	`, dbName, domain, startURL, string(status), formatTime(time.Now()))
	return err
}

// UpdateStatus changes the status of an existing entry.
func (s *RegistryService) UpdateStatus(ctx context.Context, dbName string, status sitescan.ScanStatus) error {
	if !status.Valid() {
		return sitescan.Errorf(sitescan.EINVALID, "invalid scan status %q", status)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE scan_registry SET status = ?, scanned_at = ? WHERE db_name = ?
	`, string(status), formatTime(time.Now()), dbName)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sitescan.Errorf(sitescan.ENOTFOUND, "registry entry %q not found", dbName)
	}
	return nil
}

// ListAll returns every entry, most recently changed first.
func (s *RegistryService) ListAll(ctx context.Context) ([]*sitescan.RegistryEntry, error) {
	rows, err := s.db.ReadQueryContext(ctx, `
		SELECT db_name, domain, start_url, status, scanned_at
		FROM scan_registry
		ORDER BY scanned_at DESC, db_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*sitescan.RegistryEntry{}
	for rows.Next() {
		var entry sitescan.RegistryEntry
		var status, scannedAt string

		if err := rows.Scan(&entry.DBName, &entry.Domain, &entry.StartURL, &status, &scannedAt); err != nil {
			return nil, err
		}
		entry.Status = sitescan.ScanStatus(status)
		if entry.ScannedAt, err = parseTime(scannedAt, "scanned_at"); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// ReconcileStale marks entries left pending or scanning by a dead session as errored.
func (s *RegistryService) ReconcileStale(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE scan_registry SET status = ?, scanned_at = ?
		WHERE status IN (?, ?)
	`, string(sitescan.ScanError), formatTime(time.Now()), string(sitescan.ScanPending), string(sitescan.ScanScanning))
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
