package sitescan

import (
	"context"
	"time"
)

// ScanStatus is the lifecycle state of a crawl.
type ScanStatus string

// Crawl lifecycle states.
const (
	ScanPending   ScanStatus = "pending"
	ScanScanning  ScanStatus = "scanning"
	ScanCompleted ScanStatus = "completed"
	ScanError     ScanStatus = "error"
	ScanCancelled ScanStatus = "cancelled"
)

// IsTerminal reports whether no further transitions leave the status.
func (s ScanStatus) IsTerminal() bool {
	return s == ScanCompleted || s == ScanError || s == ScanCancelled
}

// Valid reports whether s is a known status.
func (s ScanStatus) Valid() bool {
	switch s {
	case ScanPending, ScanScanning, ScanCompleted, ScanError, ScanCancelled:
		return true
	}
	return false
}

// RegistryEntry records the latest crawl of one domain.
type RegistryEntry struct {
	// DBName keys the entry. Crawls are keyed by domain, so it equals Domain.
	DBName    string     `json:"dbName"`
	Domain    string     `json:"domain"`
	StartURL  string     `json:"startUrl"`
	Status    ScanStatus `json:"status"`
	ScannedAt time.Time  `json:"scannedAt"`
}

// RegistryService represents the cross-domain registry of crawls.
type RegistryService interface {
	// Upsert creates or replaces the entry for dbName.
	Upsert(ctx context.Context, dbName, domain, startURL string, status ScanStatus) error

	// UpdateStatus changes only the status (and timestamp) of an entry.
	// Returns ENOTFOUND if no entry exists.
	UpdateStatus(ctx context.Context, dbName string, status ScanStatus) error

	// ListAll returns every entry, most recently changed first.
	ListAll(ctx context.Context) ([]*RegistryEntry, error)

	// ReconcileStale moves every pending or scanning entry to error and
	// returns how many were changed. Call it when no session is live.
	ReconcileStale(ctx context.Context) (int, error)
}
