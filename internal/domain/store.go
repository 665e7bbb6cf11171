package domain

import (
	"time"

	"github.com/google/uuid"
)

// Store is a catalog entry for a physical retail store. The catalog is
// maintained by an external process; the trigger engine only reads it and
// never sees inactive stores. Name, address, chain and hours are opaque
// display metadata.
type Store struct {
	ID           uuid.UUID
	Name         string
	Category     StoreCategory
	Address      string
	Latitude     float64
	Longitude    float64
	PhoneNumber  string
	OpeningHours string
	ChainName    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Position returns the store's coordinates.
func (s Store) Position() Position {
	return Position{Latitude: s.Latitude, Longitude: s.Longitude}
}
