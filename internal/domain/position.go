package domain

import (
	"fmt"
	"math"
)

// Position is a reported pair of WGS84 coordinates in decimal degrees.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Validate checks that both coordinates are finite and within the valid
// ranges (±90 latitude, ±180 longitude). Every failure wraps
// ErrInvalidPosition.
func (p Position) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) {
		return fmt.Errorf("latitude is not finite: %w", ErrInvalidPosition)
	}
	if math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		return fmt.Errorf("longitude is not finite: %w", ErrInvalidPosition)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]: %w", p.Latitude, ErrInvalidPosition)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]: %w", p.Longitude, ErrInvalidPosition)
	}
	return nil
}
