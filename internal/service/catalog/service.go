// Package catalog answers store proximity questions: the nearest store of a
// category, stores nearby a point, and catalog text search.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/geo"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type storeIndex interface {
	ListInBounds(ctx context.Context, b geo.Bounds, category *domain.StoreCategory) ([]domain.Store, error)
	Search(ctx context.Context, query string, category *domain.StoreCategory, limit int) ([]domain.Store, error)
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Config holds the search tuning the service needs.
type Config struct {
	// SearchRadiusKm is the outer pre-filter radius for nearest-store
	// resolution. Config validation guarantees it covers the largest
	// permitted trigger radius.
	SearchRadiusKm   float64
	NearbyMaxResults int
}

// StoreWithDistance pairs a store with its exact distance from the query point.
type StoreWithDistance struct {
	Store     domain.Store
	DistanceM float64
}

// Service implements nearby-store search and nearest-store resolution.
type Service struct {
	stores storeIndex
	log    *slog.Logger
	cfg    Config
}

// NewService creates a new catalog service.
func NewService(log *slog.Logger, stores storeIndex, cfg Config) *Service {
	return &Service{stores: stores, log: log, cfg: cfg}
}

// Nearest returns the closest active store of the given category within the
// configured search radius, or nil when none exists there. The candidate
// pre-filter is a bounding box; exact distances are computed per candidate
// and the minimum is selected by linear scan. On exact ties the first
// candidate in catalog order wins, so repeated calls are stable.
func (s *Service) Nearest(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*StoreWithDistance, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	if !category.IsValid() {
		return nil, fmt.Errorf("store category %q: %w", category, domain.ErrValidation)
	}

	origin := geo.Point{Lat: pos.Latitude, Lng: pos.Longitude}
	bounds := geo.BoundsAround(origin, s.cfg.SearchRadiusKm)

	candidates, err := s.stores.ListInBounds(ctx, bounds, &category)
	if err != nil {
		return nil, fmt.Errorf("nearest store: %w", err)
	}

	searchRadiusM := s.cfg.SearchRadiusKm * 1000

	var best *StoreWithDistance
	for _, store := range candidates {
		d := geo.Distance(origin, geo.Point{Lat: store.Latitude, Lng: store.Longitude})
		if d > searchRadiusM {
			// Bounding-box corner beyond the circular window.
			continue
		}
		if best == nil || d < best.DistanceM {
			best = &StoreWithDistance{Store: store, DistanceM: d}
		}
	}

	return best, nil
}

// Nearby returns active stores within radiusKm of the position, closest
// first, capped at the configured maximum. A non-positive radius falls back
// to the default search radius. An optional category narrows the result.
func (s *Service) Nearby(ctx context.Context, pos domain.Position, category *domain.StoreCategory, radiusKm float64) ([]StoreWithDistance, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	if category != nil && !category.IsValid() {
		return nil, fmt.Errorf("store category %q: %w", *category, domain.ErrValidation)
	}
	if radiusKm <= 0 {
		radiusKm = s.cfg.SearchRadiusKm
	}

	origin := geo.Point{Lat: pos.Latitude, Lng: pos.Longitude}
	bounds := geo.BoundsAround(origin, radiusKm)

	candidates, err := s.stores.ListInBounds(ctx, bounds, category)
	if err != nil {
		return nil, fmt.Errorf("nearby stores: %w", err)
	}

	radiusM := radiusKm * 1000

	results := make([]StoreWithDistance, 0, len(candidates))
	for _, store := range candidates {
		d := geo.Distance(origin, geo.Point{Lat: store.Latitude, Lng: store.Longitude})
		if d <= radiusM {
			results = append(results, StoreWithDistance{Store: store, DistanceM: d})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceM < results[j].DistanceM
	})

	if len(results) > s.cfg.NearbyMaxResults {
		results = results[:s.cfg.NearbyMaxResults]
	}

	return results, nil
}

// Search returns active stores matching the query over name, address and
// chain, optionally narrowed to one category.
func (s *Service) Search(ctx context.Context, query string, category *domain.StoreCategory) ([]domain.Store, error) {
	if query == "" {
		return nil, domain.NewValidationError("q", "search query is required")
	}
	if category != nil && !category.IsValid() {
		return nil, fmt.Errorf("store category %q: %w", *category, domain.ErrValidation)
	}

	stores, err := s.stores.Search(ctx, query, category, s.cfg.NearbyMaxResults)
	if err != nil {
		return nil, fmt.Errorf("search stores: %w", err)
	}

	return stores, nil
}
