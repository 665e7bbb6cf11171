// Package store implements the store catalog index backed by PostgreSQL.
// Queries with optional filters are built with squirrel; the bounding-box
// predicate is the cheap pre-filter that keeps exact distance computation
// off the full catalog.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/geo"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var storeColumns = []string{
	"id", "name", "store_category", "address", "latitude", "longitude",
	"phone_number", "opening_hours", "chain_name", "is_active",
	"created_at", "updated_at",
}

// storeRow mirrors the stores table for scany.
type storeRow struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Category     string    `db:"store_category"`
	Address      string    `db:"address"`
	Latitude     float64   `db:"latitude"`
	Longitude    float64   `db:"longitude"`
	PhoneNumber  string    `db:"phone_number"`
	OpeningHours string    `db:"opening_hours"`
	ChainName    string    `db:"chain_name"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Repo provides store catalog persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new store repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ListInBounds returns active stores inside the bounding box, optionally
// restricted to one category. Results come back in catalog insertion order
// (created_at, id) so callers scanning for the minimum distance are
// deterministic; it is not a distance ordering.
func (r *Repo) ListInBounds(ctx context.Context, b geo.Bounds, category *domain.StoreCategory) ([]domain.Store, error) {
	q := psql.Select(storeColumns...).
		From("stores").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.GtOrEq{"latitude": b.MinLat}).
		Where(squirrel.LtOrEq{"latitude": b.MaxLat}).
		Where(squirrel.GtOrEq{"longitude": b.MinLng}).
		Where(squirrel.LtOrEq{"longitude": b.MaxLng}).
		OrderBy("created_at", "id")

	if category != nil {
		q = q.Where(squirrel.Eq{"store_category": category.String()})
	}

	return r.list(ctx, q, "list stores in bounds")
}

// Search returns active stores whose name, address or chain matches the
// query substring (case-insensitive), optionally restricted to one category.
func (r *Repo) Search(ctx context.Context, query string, category *domain.StoreCategory, limit int) ([]domain.Store, error) {
	pattern := "%" + query + "%"
	q := psql.Select(storeColumns...).
		From("stores").
		Where(squirrel.Eq{"is_active": true}).
		Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"address": pattern},
			squirrel.ILike{"chain_name": pattern},
		}).
		OrderBy("name", "id").
		Limit(uint64(limit))

	if category != nil {
		q = q.Where(squirrel.Eq{"store_category": category.String()})
	}

	return r.list(ctx, q, "search stores")
}

// GetByID returns a store by primary key, active or not.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Store, error) {
	sql, args, err := psql.Select(storeColumns...).
		From("stores").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.Store{}, fmt.Errorf("build store query: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row storeRow
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		return domain.Store{}, postgres.MapError(err, "store", id)
	}

	return toDomain(row), nil
}

// Create inserts a new catalog store and returns the persisted record.
func (r *Repo) Create(ctx context.Context, s domain.Store) (domain.Store, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	sql, args, err := psql.Insert("stores").
		Columns(storeColumns...).
		Values(s.ID, s.Name, s.Category.String(), s.Address, s.Latitude, s.Longitude,
			s.PhoneNumber, s.OpeningHours, s.ChainName, s.IsActive, s.CreatedAt, s.UpdatedAt).
		ToSql()
	if err != nil {
		return domain.Store{}, fmt.Errorf("build store insert: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return domain.Store{}, postgres.MapError(err, "store", s.ID)
	}

	return s, nil
}

// SetActive flips the catalog active flag.
// Returns domain.ErrNotFound if the store does not exist.
func (r *Repo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	sql, args, err := psql.Update("stores").
		Set("is_active", active).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build store update: %w", err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "store", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("store %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *Repo) list(ctx context.Context, q squirrel.SelectBuilder, op string) ([]domain.Store, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", op, err)
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []storeRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stores := make([]domain.Store, 0, len(rows))
	for _, row := range rows {
		stores = append(stores, toDomain(row))
	}

	return stores, nil
}

func toDomain(row storeRow) domain.Store {
	return domain.Store{
		ID:           row.ID,
		Name:         row.Name,
		Category:     domain.StoreCategory(row.Category),
		Address:      row.Address,
		Latitude:     row.Latitude,
		Longitude:    row.Longitude,
		PhoneNumber:  row.PhoneNumber,
		OpeningHours: row.OpeningHours,
		ChainName:    row.ChainName,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}
