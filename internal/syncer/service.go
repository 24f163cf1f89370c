package syncer

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/discogs"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/metrics"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

// ErrSyncInProgress is returned when a sync is requested while another
// run is still in flight.
var ErrSyncInProgress = errors.New("sync already in progress")

// Stats reports what one reconciliation pass changed.
type Stats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// InventorySource fetches the seller's live marketplace listings.
type InventorySource interface {
	FetchAllListings(ctx context.Context) ([]discogs.RawListing, error)
}

// ListingStore is the storage surface sync needs.
type ListingStore interface {
	AllListingIDs() (map[string]bool, error)
	ApplySyncBatch(batch *storage.SyncBatch) error
}

// Service reconciles the local listings table against the live Discogs
// inventory.
type Service struct {
	source  InventorySource
	store   ListingStore
	logger  *zap.Logger
	running atomic.Bool
}

// NewService creates a sync service
func NewService(source InventorySource, store ListingStore, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		store:  store,
		logger: logger,
	}
}

// SyncAll fetches the full live inventory and applies adds, updates,
// and removals in a single transaction. Listings present locally but
// missing from the marketplace are deleted outright. An empty live
// inventory changes nothing rather than deleting the whole table.
func (s *Service) SyncAll(ctx context.Context) (*Stats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	metrics.SyncRunsTotal.Inc()

	stats := &Stats{}

	listings, err := s.source.FetchAllListings(ctx)
	if err != nil {
		metrics.SyncFailuresTotal.Inc()
		return stats, err
	}
	if len(listings) == 0 {
		s.logger.Warn("live inventory is empty, skipping reconciliation")
		return stats, nil
	}
	stats.Total = len(listings)

	existing, err := s.store.AllListingIDs()
	if err != nil {
		metrics.SyncFailuresTotal.Inc()
		return &Stats{}, err
	}

	batch := &storage.SyncBatch{}
	seen := make(map[string]bool, len(listings))
	now := time.Now().UTC()

	for _, raw := range listings {
		flat := discogs.Flatten(raw, now)
		if flat == nil {
			s.logger.Warn("skipping listing without id")
			continue
		}
		seen[flat.ListingID] = true
		if existing[flat.ListingID] {
			batch.Updates = append(batch.Updates, flat)
		} else {
			batch.Inserts = append(batch.Inserts, flat)
		}
	}

	for id := range existing {
		if !seen[id] {
			batch.DeleteIDs = append(batch.DeleteIDs, id)
		}
	}
	sort.Strings(batch.DeleteIDs)

	if err := s.store.ApplySyncBatch(batch); err != nil {
		metrics.SyncFailuresTotal.Inc()
		s.logger.Error("sync batch failed, rolled back", zap.Error(err))
		return &Stats{}, err
	}

	stats.Added = len(batch.Inserts)
	stats.Updated = len(batch.Updates)
	stats.Removed = len(batch.DeleteIDs)

	metrics.ListingsSynced.WithLabelValues(metrics.OpAdded).Add(float64(stats.Added))
	metrics.ListingsSynced.WithLabelValues(metrics.OpUpdated).Add(float64(stats.Updated))
	metrics.ListingsSynced.WithLabelValues(metrics.OpRemoved).Add(float64(stats.Removed))
	metrics.SyncLastRunTimestamp.SetToCurrentTime()

	s.logger.Info("sync completed",
		zap.Int("added", stats.Added),
		zap.Int("updated", stats.Updated),
		zap.Int("removed", stats.Removed),
		zap.Int("total", stats.Total))

	return stats, nil
}

// Running reports whether a sync is currently in flight
func (s *Service) Running() bool {
	return s.running.Load()
}
