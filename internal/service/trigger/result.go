package trigger

import (
	"github.com/google/uuid"

	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
)

// Result is the outcome of one position evaluation.
type Result struct {
	// Fired lists the reminders this evaluation fired, in evaluation order.
	Fired []FiredReminder
	// Failures lists reminders that could not be evaluated or persisted.
	// The rest of the batch is unaffected by entries here.
	Failures []Failure
}

// FiredReminder pairs a fired reminder with the store that triggered it.
type FiredReminder struct {
	Reminder  domain.Reminder
	Store     domain.Store
	DistanceM float64
	Event     domain.TriggerEvent
}

// Failure records a per-reminder evaluation error.
type Failure struct {
	ReminderID uuid.UUID
	Err        error
}
