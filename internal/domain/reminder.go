package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is a user-owned rule pairing a store category with a trigger
// radius. A reminder is armed while IsActive is true; firing is one-shot:
// the evaluator flips IsActive to false and stamps LastFired in a single
// conditional update. Re-arming is an explicit owner action.
type Reminder struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Category       StoreCategory
	Title          string
	Memo           string
	TriggerRadiusM int
	IsActive       bool
	LastFired      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Armed reports whether the reminder is eligible for trigger evaluation.
func (r Reminder) Armed() bool { return r.IsActive }

// ReminderStats summarises a user's reminders.
type ReminderStats struct {
	Total  int
	Active int
}
