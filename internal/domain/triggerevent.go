package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerEvent is an immutable audit record of one reminder firing: the
// position report that caused it, the distance to the qualifying store and
// the firing time. Events are append-only; nothing updates or deletes them.
type TriggerEvent struct {
	ID         uuid.UUID
	ReminderID uuid.UUID
	Latitude   float64
	Longitude  float64
	DistanceM  float64
	FiredAt    time.Time
}
