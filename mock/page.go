package mock

import (
	"context"

	"github.com/fwojciec/sitescan"
)

// Compile-time interface verification.
var (
	_ sitescan.SiteStore       = (*SiteStore)(nil)
	_ sitescan.SiteService     = (*SiteService)(nil)
	_ sitescan.RegistryService = (*RegistryService)(nil)
)

// SiteStore is a mock implementation of sitescan.SiteStore.
type SiteStore struct {
	SavePageFn         func(ctx context.Context, page *sitescan.Page) (bool, error)
	SaveHeaderFn       func(ctx context.Context, pageID int64, header sitescan.Header) error
	SaveOutgoingLinkFn func(ctx context.Context, pageID int64, destinationURL string) error
	ListPagesFn        func(ctx context.Context, filter sitescan.PageFilter) (*sitescan.PageList, error)
	ScannedURLsFn      func(ctx context.Context) ([]string, error)
	DestinationURLsFn  func(ctx context.Context) ([]string, error)
	CloseFn            func() error
}

func (s *SiteStore) SavePage(ctx context.Context, page *sitescan.Page) (bool, error) {
	return s.SavePageFn(ctx, page)
}

func (s *SiteStore) SaveHeader(ctx context.Context, pageID int64, header sitescan.Header) error {
	return s.SaveHeaderFn(ctx, pageID, header)
}

func (s *SiteStore) SaveOutgoingLink(ctx context.Context, pageID int64, destinationURL string) error {
	return s.SaveOutgoingLinkFn(ctx, pageID, destinationURL)
}

func (s *SiteStore) ListPages(ctx context.Context, filter sitescan.PageFilter) (*sitescan.PageList, error) {
	return s.ListPagesFn(ctx, filter)
}

func (s *SiteStore) ScannedURLs(ctx context.Context) ([]string, error) {
	return s.ScannedURLsFn(ctx)
}

func (s *SiteStore) DestinationURLs(ctx context.Context) ([]string, error) {
	return s.DestinationURLsFn(ctx)
}

func (s *SiteStore) Close() error {
	return s.CloseFn()
}

// SiteService is a mock implementation of sitescan.SiteService.
type SiteService struct {
	OpenSiteFn   func(ctx context.Context, domain string, overwrite bool) (sitescan.SiteStore, error)
	ViewSiteFn   func(ctx context.Context, domain string) (sitescan.SiteStore, error)
	SiteExistsFn func(domain string) bool
}

func (s *SiteService) OpenSite(ctx context.Context, domain string, overwrite bool) (sitescan.SiteStore, error) {
	return s.OpenSiteFn(ctx, domain, overwrite)
}

func (s *SiteService) ViewSite(ctx context.Context, domain string) (sitescan.SiteStore, error) {
	return s.ViewSiteFn(ctx, domain)
}

func (s *SiteService) SiteExists(domain string) bool {
	return s.SiteExistsFn(domain)
}

// RegistryService is a mock implementation of sitescan.RegistryService.
type RegistryService struct {
	UpsertFn         func(ctx context.Context, dbName, domain, startURL string, status sitescan.ScanStatus) error
	UpdateStatusFn   func(ctx context.Context, dbName string, status sitescan.ScanStatus) error
	ListAllFn        func(ctx context.Context) ([]*sitescan.RegistryEntry, error)
	ReconcileStaleFn func(ctx context.Context) (int, error)
}

func (s *RegistryService) Upsert(ctx context.Context, dbName, domain, startURL string, status sitescan.ScanStatus) error {
	return s.UpsertFn(ctx, dbName, domain, startURL, status)
}

func (s *RegistryService) UpdateStatus(ctx context.Context, dbName string, status sitescan.ScanStatus) error {
	return s.UpdateStatusFn(ctx, dbName, status)
}

func (s *RegistryService) ListAll(ctx context.Context) ([]*sitescan.RegistryEntry, error) {
	return s.ListAllFn(ctx)
}

func (s *RegistryService) ReconcileStale(ctx context.Context) (int, error) {
	return s.ReconcileStaleFn(ctx)
}
