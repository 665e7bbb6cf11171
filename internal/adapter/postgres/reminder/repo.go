// Package reminder implements the reminder registry backed by PostgreSQL.
// All queries are fixed-shape, so they live as raw SQL constants.
//
// MarkFired is the registry's only mutation path used by trigger
// evaluation: a single conditional UPDATE so that concurrent position
// reports for the same user cannot fire a reminder twice. Whichever
// writer loses the race observes zero affected rows.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
)

const reminderColumns = `id, user_id, store_category, title, memo, trigger_radius_m,
       is_active, last_fired, created_at, updated_at`

const createSQL = `
INSERT INTO reminders (id, user_id, store_category, title, memo, trigger_radius_m,
                       is_active, last_fired, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const getByIDSQL = `
SELECT ` + reminderColumns + `
FROM reminders
WHERE id = $1`

const listSQL = `
SELECT ` + reminderColumns + `
FROM reminders
WHERE user_id = $1
ORDER BY created_at DESC, id`

// listActiveSQL orders ascending by creation so trigger evaluation walks
// reminders in a stable, deterministic order.
const listActiveSQL = `
SELECT ` + reminderColumns + `
FROM reminders
WHERE user_id = $1 AND is_active
ORDER BY created_at ASC, id`

const updateSQL = `
UPDATE reminders
SET store_category = $2, title = $3, memo = $4, trigger_radius_m = $5, updated_at = $6
WHERE id = $1`

const deleteSQL = `DELETE FROM reminders WHERE id = $1`

const reactivateSQL = `
UPDATE reminders
SET is_active = true, updated_at = $2
WHERE id = $1`

// markFiredSQL is the conditional fire-write: only an armed reminder can
// transition, and only one writer wins.
const markFiredSQL = `
UPDATE reminders
SET is_active = false, last_fired = $2, updated_at = $2
WHERE id = $1 AND is_active`

const statsSQL = `
SELECT count(*) AS total,
       count(*) FILTER (WHERE is_active) AS active
FROM reminders
WHERE user_id = $1`

// reminderRow mirrors the reminders table for scany.
type reminderRow struct {
	ID             uuid.UUID  `db:"id"`
	UserID         uuid.UUID  `db:"user_id"`
	Category       string     `db:"store_category"`
	Title          string     `db:"title"`
	Memo           string     `db:"memo"`
	TriggerRadiusM int        `db:"trigger_radius_m"`
	IsActive       bool       `db:"is_active"`
	LastFired      *time.Time `db:"last_fired"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// Repo provides reminder persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new reminder repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Create inserts a new reminder and returns the persisted record.
func (r *Repo) Create(ctx context.Context, rem domain.Reminder) (domain.Reminder, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if rem.ID == uuid.Nil {
		rem.ID = uuid.New()
	}
	rem.CreatedAt = now
	rem.UpdatedAt = now

	querier := postgres.QuerierFromCtx(ctx, r.db)
	_, err := querier.Exec(ctx, createSQL,
		rem.ID, rem.UserID, rem.Category.String(), rem.Title, rem.Memo,
		rem.TriggerRadiusM, rem.IsActive, rem.LastFired, rem.CreatedAt, rem.UpdatedAt)
	if err != nil {
		return domain.Reminder{}, postgres.MapError(err, "reminder", rem.ID)
	}

	return rem, nil
}

// GetByID returns a reminder by primary key regardless of owner.
// Ownership checks belong to the service layer, which distinguishes
// not-found from forbidden.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reminder, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var row reminderRow
	if err := pgxscan.Get(ctx, querier, &row, getByIDSQL, id); err != nil {
		return domain.Reminder{}, postgres.MapError(err, "reminder", id)
	}

	return toDomain(row), nil
}

// List returns all reminders owned by the user, newest first.
func (r *Repo) List(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error) {
	return r.list(ctx, listSQL, userID, "list reminders")
}

// ListActive returns the user's armed reminders in stable evaluation order
// (created_at ascending, id as tie-break).
func (r *Repo) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error) {
	return r.list(ctx, listActiveSQL, userID, "list active reminders")
}

// UpdateParams holds the mutable reminder attributes.
type UpdateParams struct {
	Category       domain.StoreCategory
	Title          string
	Memo           string
	TriggerRadiusM int
}

// Update rewrites the reminder's editable fields.
// Returns domain.ErrNotFound if the reminder does not exist.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, params UpdateParams) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := querier.Exec(ctx, updateSQL,
		id, params.Category.String(), params.Title, params.Memo, params.TriggerRadiusM,
		time.Now().UTC())
	if err != nil {
		return postgres.MapError(err, "reminder", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete removes a reminder and, via cascade, its trigger events.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := querier.Exec(ctx, deleteSQL, id)
	if err != nil {
		return postgres.MapError(err, "reminder", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Reactivate re-arms a fired reminder. LastFired is kept so the cooldown
// suppression still applies after an immediate re-arm.
func (r *Repo) Reactivate(ctx context.Context, id uuid.UUID) error {
	querier := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := querier.Exec(ctx, reactivateSQL, id, time.Now().UTC())
	if err != nil {
		return postgres.MapError(err, "reminder", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// MarkFired atomically transitions an armed reminder to fired, stamping
// last_fired. Returns false (and no error) when the reminder was already
// fired or does not exist; the caller treats that as a stale fire.
func (r *Repo) MarkFired(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)
	tag, err := querier.Exec(ctx, markFiredSQL, id, firedAt.UTC())
	if err != nil {
		return false, postgres.MapError(err, "reminder", id)
	}

	return tag.RowsAffected() > 0, nil
}

// Stats returns total and active reminder counts for the user.
func (r *Repo) Stats(ctx context.Context, userID uuid.UUID) (domain.ReminderStats, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var stats domain.ReminderStats
	if err := querier.QueryRow(ctx, statsSQL, userID).Scan(&stats.Total, &stats.Active); err != nil {
		return domain.ReminderStats{}, fmt.Errorf("reminder stats: %w", err)
	}

	return stats, nil
}

func (r *Repo) list(ctx context.Context, sql string, userID uuid.UUID, op string) ([]domain.Reminder, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []reminderRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	reminders := make([]domain.Reminder, 0, len(rows))
	for _, row := range rows {
		reminders = append(reminders, toDomain(row))
	}

	return reminders, nil
}

func toDomain(row reminderRow) domain.Reminder {
	return domain.Reminder{
		ID:             row.ID,
		UserID:         row.UserID,
		Category:       domain.StoreCategory(row.Category),
		Title:          row.Title,
		Memo:           row.Memo,
		TriggerRadiusM: row.TriggerRadiusM,
		IsActive:       row.IsActive,
		LastFired:      row.LastFired,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
