// Package replica serves read-only copies of remote views. A fetch that
// succeeds refreshes the local cache; a fetch that fails falls back to the
// cached copy, labeled as a replica. Replica data is for display and
// reconciliation only — it is never written into authoritative local
// records.
package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/tillworks/till/internal/db"
	"github.com/tillworks/till/internal/models"
)

// View names used as cache keys.
const (
	viewInventory  = "inventory"
	viewLedger     = "ledger"
	viewSyncStatus = "sync_status"
)

// Fetcher reads remote views. Satisfied by *syncclient.Client.
type Fetcher interface {
	InventoryView(ctx context.Context, tenantID string) (*models.InventoryView, error)
	LedgerView(ctx context.Context, tenantID string, limit int) (*models.LedgerView, error)
	SyncStatus(ctx context.Context, tenantID string) (*models.RemoteSyncStatus, error)
}

// Service is the fetch-through replica cache.
type Service struct {
	fetcher Fetcher
	store   *db.DB
	clock   clockwork.Clock
	logger  *slog.Logger
}

// New creates a replica service.
func New(fetcher Fetcher, store *db.DB, clock clockwork.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, store: store, clock: clock, logger: logger}
}

// Inventory returns the remote inventory view, or its cached replica when
// the fetch fails.
func (s *Service) Inventory(ctx context.Context, tenantID string) (*models.InventoryView, error) {
	view, err := s.fetcher.InventoryView(ctx, tenantID)
	if err == nil {
		view.CachedAt = s.clock.Now().UTC()
		view.Source = models.SourceRemote
		s.cache(viewInventory, tenantID, view)
		return view, nil
	}
	s.logger.Debug("inventory fetch failed, trying replica", "tenant", tenantID, "err", err)

	cached, cacheErr := s.store.GetReplica(viewInventory, tenantID)
	if cacheErr != nil || cached == nil {
		return nil, fmt.Errorf("inventory view unavailable: %w", err)
	}
	var replica models.InventoryView
	if err := json.Unmarshal(cached.Payload, &replica); err != nil {
		return nil, fmt.Errorf("decode cached inventory view: %w", err)
	}
	replica.CachedAt = cached.CachedAt
	replica.Source = models.SourceReplica
	return &replica, nil
}

// Ledger returns the remote ledger view, or its cached replica when the
// fetch fails. The limit only applies to a live fetch; the replica serves
// whatever was cached.
func (s *Service) Ledger(ctx context.Context, tenantID string, limit int) (*models.LedgerView, error) {
	view, err := s.fetcher.LedgerView(ctx, tenantID, limit)
	if err == nil {
		view.CachedAt = s.clock.Now().UTC()
		view.Source = models.SourceRemote
		s.cache(viewLedger, tenantID, view)
		return view, nil
	}
	s.logger.Debug("ledger fetch failed, trying replica", "tenant", tenantID, "err", err)

	cached, cacheErr := s.store.GetReplica(viewLedger, tenantID)
	if cacheErr != nil || cached == nil {
		return nil, fmt.Errorf("ledger view unavailable: %w", err)
	}
	var replica models.LedgerView
	if err := json.Unmarshal(cached.Payload, &replica); err != nil {
		return nil, fmt.Errorf("decode cached ledger view: %w", err)
	}
	replica.CachedAt = cached.CachedAt
	replica.Source = models.SourceReplica
	return &replica, nil
}

// SyncStatus returns the remote sync status, or its cached replica when the
// fetch fails.
func (s *Service) SyncStatus(ctx context.Context, tenantID string) (*models.RemoteSyncStatus, error) {
	status, err := s.fetcher.SyncStatus(ctx, tenantID)
	if err == nil {
		status.CachedAt = s.clock.Now().UTC()
		status.Source = models.SourceRemote
		s.cache(viewSyncStatus, tenantID, status)
		return status, nil
	}
	s.logger.Debug("sync status fetch failed, trying replica", "tenant", tenantID, "err", err)

	cached, cacheErr := s.store.GetReplica(viewSyncStatus, tenantID)
	if cacheErr != nil || cached == nil {
		return nil, fmt.Errorf("remote sync status unavailable: %w", err)
	}
	var replica models.RemoteSyncStatus
	if err := json.Unmarshal(cached.Payload, &replica); err != nil {
		return nil, fmt.Errorf("decode cached sync status: %w", err)
	}
	replica.CachedAt = cached.CachedAt
	replica.Source = models.SourceReplica
	return &replica, nil
}

// cache stores a fetched view. Cache write failures are logged, not
// returned: a successful fetch should never fail because the cache did.
func (s *Service) cache(view, tenantID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal replica payload", "view", view, "err", err)
		return
	}
	if err := s.store.SaveReplica(view, tenantID, data, s.clock.Now().UTC()); err != nil {
		s.logger.Warn("save replica", "view", view, "err", err)
	}
}
