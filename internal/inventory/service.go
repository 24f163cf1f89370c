package inventory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/zpalmquist/freakinbeats-web-poc/internal/discogs"
	"github.com/zpalmquist/freakinbeats-web-poc/internal/storage"
)

const (
	videoCacheSize = 512
	videoCacheTTL  = time.Hour
)

// Store is the storage surface the inventory service reads and writes.
type Store interface {
	AllListings(onlyActive bool) ([]*storage.Listing, error)
	ActiveListingByListingID(listingID string) (*storage.Listing, error)
	ActiveListingByID(id int64) (*storage.Listing, error)
	SearchListings(query, artist, genre, format string) ([]*storage.Listing, error)
	FilterListings(p storage.FilterParams) ([]*storage.Listing, error)
	Facets() (*storage.Facets, error)
	Stats() (*storage.Stats, error)
	LabelOverview(name string) (*storage.LabelInfo, error)
	SaveLabelOverview(name, overview, model string) error
	RecordLabelError(name, message string) error
	SoftDeleteListing(listingID string) (bool, error)
	RestoreListing(listingID string) (bool, error)
	MarkListingSold(listingID string) (bool, error)
}

// VideoSource fetches the videos attached to a release.
type VideoSource interface {
	FetchReleaseVideos(ctx context.Context, releaseID string) []discogs.Video
}

// OverviewGenerator produces short label overviews.
type OverviewGenerator interface {
	Available() bool
	Model() string
	GenerateLabelOverview(ctx context.Context, name string) (string, error)
}

// Item is a listing enriched for the storefront detail view.
type Item struct {
	storage.Listing
	Videos         []discogs.Video   `json:"videos"`
	LabelURLs      []LabelURL        `json:"label_urls"`
	LabelOverviews map[string]string `json:"label_overviews"`
}

// Service answers catalog queries and enriches items with videos and
// label metadata.
type Service struct {
	store            Store
	videos           VideoSource
	overviews        OverviewGenerator
	overviewsEnabled bool
	logger           *zap.Logger

	videoCache *expirable.LRU[string, []discogs.Video]
	labelGroup singleflight.Group
}

// NewService creates an inventory service
func NewService(store Store, videos VideoSource, overviews OverviewGenerator, enableOverviews bool, logger *zap.Logger) *Service {
	return &Service{
		store:            store,
		videos:           videos,
		overviews:        overviews,
		overviewsEnabled: enableOverviews,
		logger:           logger,
		videoCache:       expirable.NewLRU[string, []discogs.Video](videoCacheSize, nil, videoCacheTTL),
	}
}

// AllItems returns every active listing, newest first.
func (s *Service) AllItems() ([]*storage.Listing, error) {
	return s.store.AllListings(true)
}

// ItemByListingID returns one active listing by its Discogs listing id.
func (s *Service) ItemByListingID(listingID string) (*storage.Listing, error) {
	return s.store.ActiveListingByListingID(listingID)
}

// ItemByID returns one active listing by its database id.
func (s *Service) ItemByID(id int64) (*storage.Listing, error) {
	return s.store.ActiveListingByID(id)
}

// Search runs a free-text search over active listings.
func (s *Service) Search(query, artist, genre, format string) ([]*storage.Listing, error) {
	return s.store.SearchListings(query, artist, genre, format)
}

// Filter applies structured filters over active listings.
func (s *Service) Filter(p storage.FilterParams) ([]*storage.Listing, error) {
	return s.store.FilterListings(p)
}

// Facets returns the filterable facet values with counts.
func (s *Service) Facets() (*storage.Facets, error) {
	return s.store.Facets()
}

// Stats returns inventory-level statistics.
func (s *Service) Stats() (*storage.Stats, error) {
	return s.store.Stats()
}

// ItemWithVideos returns one active listing enriched with videos, label
// links, and label overviews.
func (s *Service) ItemWithVideos(ctx context.Context, listingID string) (*Item, error) {
	l, err := s.store.ActiveListingByListingID(listingID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, l), nil
}

// ItemWithVideosByID is ItemWithVideos keyed by database id.
func (s *Service) ItemWithVideosByID(ctx context.Context, id int64) (*Item, error) {
	l, err := s.store.ActiveListingByID(id)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, l), nil
}

func (s *Service) enrich(ctx context.Context, l *storage.Listing) *Item {
	return &Item{
		Listing:        *l,
		Videos:         s.releaseVideos(ctx, l.ReleaseID),
		LabelURLs:      LabelURLs(l.LabelNames),
		LabelOverviews: s.LabelOverviews(ctx, l.LabelNames),
	}
}

func (s *Service) releaseVideos(ctx context.Context, releaseID string) []discogs.Video {
	if releaseID == "" || s.videos == nil {
		return []discogs.Video{}
	}
	if cached, ok := s.videoCache.Get(releaseID); ok {
		return cached
	}
	videos := s.videos.FetchReleaseVideos(ctx, releaseID)
	s.videoCache.Add(releaseID, videos)
	return videos
}

// SoftDelete hides a listing from the storefront. Returns false when the
// listing id is unknown.
func (s *Service) SoftDelete(listingID string) (bool, error) {
	return s.store.SoftDeleteListing(listingID)
}

// Restore brings a soft-deleted listing back.
func (s *Service) Restore(listingID string) (bool, error) {
	return s.store.RestoreListing(listingID)
}

// MarkSold marks a listing sold and hides it.
func (s *Service) MarkSold(listingID string) (bool, error) {
	return s.store.MarkListingSold(listingID)
}
