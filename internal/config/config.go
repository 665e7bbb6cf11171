package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Database  DatabaseConfig `yaml:"database"`
	Auth      AuthConfig     `yaml:"auth"`
	Geo       GeoConfig      `yaml:"geo"`
	Reminders ReminderConfig `yaml:"reminders"`
	Log       LogConfig      `yaml:"log"`
	CORS      CORSConfig     `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"   env:"DATABASE_MIGRATE_ON_START"   env-default:"true"`
}

// AuthConfig holds settings for validating tokens issued by the external
// account service. This backend never issues tokens itself.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"     env:"AUTH_JWT_SECRET"     env-required:"true"`
	JWTIssuer string        `yaml:"jwt_issuer"     env:"AUTH_JWT_ISSUER"     env-default:"yorimichi-accounts"`
	AccessTTL time.Duration `yaml:"access_ttl"     env:"AUTH_ACCESS_TTL"     env-default:"15m"`
}

// GeoConfig holds nearby-store search settings.
type GeoConfig struct {
	// SearchRadiusKm is the outer pre-filter radius used when resolving the
	// nearest store for a reminder. It is distinct from (and must cover) any
	// individual reminder's trigger radius; see Config.Validate.
	SearchRadiusKm   float64 `yaml:"search_radius_km"   env:"GEO_SEARCH_RADIUS_KM"   env-default:"1.0"`
	NearbyMaxResults int     `yaml:"nearby_max_results" env:"GEO_NEARBY_MAX_RESULTS" env-default:"20"`
}

// ReminderConfig holds reminder lifecycle settings.
type ReminderConfig struct {
	DefaultTriggerRadiusM int           `yaml:"default_trigger_radius_m" env:"REMINDER_DEFAULT_TRIGGER_RADIUS_M" env-default:"30"`
	MaxTriggerRadiusM     int           `yaml:"max_trigger_radius_m"     env:"REMINDER_MAX_TRIGGER_RADIUS_M"     env-default:"500"`
	RefireCooldown        time.Duration `yaml:"refire_cooldown"          env:"REMINDER_REFIRE_COOLDOWN"          env-default:"1h"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}
