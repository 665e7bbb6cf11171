// Package triggerlog implements the append-only trigger audit log backed by
// PostgreSQL. The repository exposes no update or delete: fired events are
// permanent history.
package triggerlog

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	postgres "github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
)

const appendSQL = `
INSERT INTO trigger_events (id, reminder_id, latitude, longitude, distance_m, fired_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const listForUserSQL = `
SELECT te.id, te.reminder_id, te.latitude, te.longitude, te.distance_m, te.fired_at,
       r.title AS reminder_title, r.store_category
FROM trigger_events te
JOIN reminders r ON te.reminder_id = r.id
WHERE r.user_id = $1
ORDER BY te.fired_at DESC, te.id`

const listForReminderSQL = `
SELECT te.id, te.reminder_id, te.latitude, te.longitude, te.distance_m, te.fired_at,
       r.title AS reminder_title, r.store_category
FROM trigger_events te
JOIN reminders r ON te.reminder_id = r.id
WHERE te.reminder_id = $1
ORDER BY te.fired_at DESC, te.id`

// EventWithReminder wraps a TriggerEvent with display fields of the
// reminder that fired, for audit listings.
type EventWithReminder struct {
	domain.TriggerEvent
	ReminderTitle string
	Category      domain.StoreCategory
}

// eventRow mirrors the joined listing shape for scany.
type eventRow struct {
	ID            uuid.UUID `db:"id"`
	ReminderID    uuid.UUID `db:"reminder_id"`
	Latitude      float64   `db:"latitude"`
	Longitude     float64   `db:"longitude"`
	DistanceM     float64   `db:"distance_m"`
	FiredAt       time.Time `db:"fired_at"`
	ReminderTitle string    `db:"reminder_title"`
	Category      string    `db:"store_category"`
}

// Repo provides trigger event persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new trigger log repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Append writes one immutable trigger event and returns its id.
func (r *Repo) Append(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)
	_, err := querier.Exec(ctx, appendSQL,
		event.ID, event.ReminderID, event.Latitude, event.Longitude,
		event.DistanceM, event.FiredAt.UTC())
	if err != nil {
		return uuid.Nil, postgres.MapError(err, "trigger event", event.ID)
	}

	return event.ID, nil
}

// ListForUser returns all trigger events across the user's reminders,
// most recent first.
func (r *Repo) ListForUser(ctx context.Context, userID uuid.UUID) ([]EventWithReminder, error) {
	return r.list(ctx, listForUserSQL, userID, "list trigger events for user")
}

// ListForReminder returns a single reminder's trigger events, most recent first.
func (r *Repo) ListForReminder(ctx context.Context, reminderID uuid.UUID) ([]EventWithReminder, error) {
	return r.list(ctx, listForReminderSQL, reminderID, "list trigger events for reminder")
}

func (r *Repo) list(ctx context.Context, sql string, id uuid.UUID, op string) ([]EventWithReminder, error) {
	querier := postgres.QuerierFromCtx(ctx, r.db)

	var rows []eventRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events := make([]EventWithReminder, 0, len(rows))
	for _, row := range rows {
		events = append(events, EventWithReminder{
			TriggerEvent: domain.TriggerEvent{
				ID:         row.ID,
				ReminderID: row.ReminderID,
				Latitude:   row.Latitude,
				Longitude:  row.Longitude,
				DistanceM:  row.DistanceM,
				FiredAt:    row.FiredAt,
			},
			ReminderTitle: row.ReminderTitle,
			Category:      domain.StoreCategory(row.Category),
		})
	}

	return events, nil
}
