package config

import "fmt"

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if err := c.Geo.validate(); err != nil {
		return fmt.Errorf("geo: %w", err)
	}
	if err := c.Reminders.validate(); err != nil {
		return fmt.Errorf("reminders: %w", err)
	}

	// The nearest-store pre-filter window must cover the largest trigger
	// radius a reminder may carry; otherwise a legally configured reminder
	// could sit inside its own trigger radius of a store that the search
	// never sees.
	searchRadiusM := c.Geo.SearchRadiusKm * 1000
	if searchRadiusM < float64(c.Reminders.MaxTriggerRadiusM) {
		return fmt.Errorf("geo.search_radius_km (%v km) must cover reminders.max_trigger_radius_m (%d m)",
			c.Geo.SearchRadiusKm, c.Reminders.MaxTriggerRadiusM)
	}

	return nil
}

func (g *GeoConfig) validate() error {
	if g.SearchRadiusKm <= 0 {
		return fmt.Errorf("search_radius_km must be > 0 (got %v)", g.SearchRadiusKm)
	}
	if g.NearbyMaxResults <= 0 {
		return fmt.Errorf("nearby_max_results must be > 0 (got %d)", g.NearbyMaxResults)
	}
	return nil
}

func (r *ReminderConfig) validate() error {
	if r.DefaultTriggerRadiusM <= 0 {
		return fmt.Errorf("default_trigger_radius_m must be > 0 (got %d)", r.DefaultTriggerRadiusM)
	}
	if r.MaxTriggerRadiusM <= 0 {
		return fmt.Errorf("max_trigger_radius_m must be > 0 (got %d)", r.MaxTriggerRadiusM)
	}
	if r.DefaultTriggerRadiusM > r.MaxTriggerRadiusM {
		return fmt.Errorf("default_trigger_radius_m (%d) must not exceed max_trigger_radius_m (%d)",
			r.DefaultTriggerRadiusM, r.MaxTriggerRadiusM)
	}
	if r.RefireCooldown < 0 {
		return fmt.Errorf("refire_cooldown must be >= 0 (got %v)", r.RefireCooldown)
	}
	return nil
}
