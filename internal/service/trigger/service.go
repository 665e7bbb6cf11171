// Package trigger implements position-report evaluation: the state machine
// that decides which armed reminders fire for a reported position.
//
// A reminder is ARMED while active and FIRED once the evaluator has flipped
// it. Firing is one-shot; the only way back to ARMED is an explicit
// reactivation by the owner, outside this package.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/triggerlog"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/catalog"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type reminderRegistry interface {
	ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error)
	// MarkFired is conditional: false means another evaluation already fired
	// the reminder (a stale fire, not an error).
	MarkFired(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error)
}

type triggerLog interface {
	Append(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]triggerlog.EventWithReminder, error)
}

type nearestResolver interface {
	Nearest(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service evaluates position reports against a user's armed reminders.
type Service struct {
	reminders reminderRegistry
	events    triggerLog
	resolver  nearestResolver
	tx        txManager
	log       *slog.Logger
	cooldown  time.Duration
	now       func() time.Time
}

// NewService creates a new trigger evaluation service. cooldown is the
// re-fire suppression window measured from a reminder's last_fired.
func NewService(
	log *slog.Logger,
	reminders reminderRegistry,
	events triggerLog,
	resolver nearestResolver,
	tx txManager,
	cooldown time.Duration,
) *Service {
	return &Service{
		reminders: reminders,
		events:    events,
		resolver:  resolver,
		tx:        tx,
		log:       log,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Evaluate checks the user's armed reminders against the reported position.
//
// The position is validated before anything else; an invalid position fails
// the whole call without touching any reminder. Each qualifying reminder is
// fired inside its own transaction (audit append + conditional state flip,
// both or neither), so a failure on one reminder neither rolls back
// already-fired siblings nor aborts the remaining ones.
func (s *Service) Evaluate(ctx context.Context, userID uuid.UUID, pos domain.Position) (Result, error) {
	if err := pos.Validate(); err != nil {
		return Result{}, err
	}

	armed, err := s.reminders.ListActive(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("list armed reminders: %w", err)
	}

	now := s.now().UTC()

	var result Result
	for _, rem := range armed {
		// A reminder re-armed within the cooldown window must not
		// immediately re-fire.
		if rem.LastFired != nil && now.Sub(*rem.LastFired) < s.cooldown {
			continue
		}

		match, err := s.resolver.Nearest(ctx, pos, rem.Category)
		if err != nil {
			result.Failures = append(result.Failures, Failure{ReminderID: rem.ID, Err: err})
			continue
		}
		if match == nil {
			// No store of this category within the search window; the
			// reminder stays armed.
			continue
		}
		if match.DistanceM > float64(rem.TriggerRadiusM) {
			continue
		}

		fired, event, err := s.fire(ctx, rem, pos, match.DistanceM, now)
		if err != nil {
			result.Failures = append(result.Failures, Failure{ReminderID: rem.ID, Err: err})
			continue
		}
		if !fired {
			// Lost the conditional update race: a concurrent report already
			// fired this reminder. Benign, nothing to record.
			s.log.DebugContext(ctx, "stale fire skipped",
				slog.String("reminder_id", rem.ID.String()))
			continue
		}

		rem.IsActive = false
		lastFired := now
		rem.LastFired = &lastFired

		result.Fired = append(result.Fired, FiredReminder{
			Reminder:  rem,
			Store:     match.Store,
			DistanceM: match.DistanceM,
			Event:     event,
		})

		s.log.InfoContext(ctx, "reminder fired",
			slog.String("reminder_id", rem.ID.String()),
			slog.String("store_id", match.Store.ID.String()),
			slog.Float64("distance_m", match.DistanceM),
		)
	}

	return result, nil
}

// fire transitions one reminder atomically: the conditional state flip and
// the audit append commit together or not at all.
func (s *Service) fire(ctx context.Context, rem domain.Reminder, pos domain.Position, distanceM float64, now time.Time) (bool, domain.TriggerEvent, error) {
	var (
		fired bool
		event domain.TriggerEvent
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		won, err := s.reminders.MarkFired(ctx, rem.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		event = domain.TriggerEvent{
			ReminderID: rem.ID,
			Latitude:   pos.Latitude,
			Longitude:  pos.Longitude,
			DistanceM:  distanceM,
			FiredAt:    now,
		}
		id, err := s.events.Append(ctx, event)
		if err != nil {
			return err
		}
		event.ID = id

		fired = true
		return nil
	})
	if err != nil {
		return false, domain.TriggerEvent{}, err
	}

	return fired, event, nil
}

// History returns the user's trigger audit trail, most recent first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]triggerlog.EventWithReminder, error) {
	events, err := s.events.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("trigger history: %w", err)
	}
	return events, nil
}
