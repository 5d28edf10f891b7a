// Package config loads gateway settings from the environment.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the gateway process.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// JWTSecret signs and verifies bearer tokens (HS256).
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// AdminRole is the role claim value classified as admin.
	AdminRole string `envconfig:"ADMIN_ROLE" default:"ADMIN"`

	// RedisAddr enables the cross-instance backbone when non-empty.
	RedisAddr string `envconfig:"REDIS_ADDR"`

	// DatabaseURL enables Postgres-backed event ownership and guest
	// session validation when non-empty.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// GuestValidationDisabled skips the guest_sessions check even when
	// a database is configured.
	GuestValidationDisabled bool `envconfig:"GUEST_VALIDATION_DISABLED"`

	// RateLimitPolicy names a YAML file overriding throttle ceilings.
	RateLimitPolicy string `envconfig:"RATE_LIMIT_POLICY"`

	// ActivityFeedSize caps the per-room activity feed; 0 disables it.
	ActivityFeedSize int `envconfig:"ACTIVITY_FEED_SIZE" default:"100"`

	// MaxConns caps concurrent connections; 0 means unlimited.
	MaxConns int `envconfig:"MAX_CONNS"`

	// IdleTimeout reaps connections idle longer than this; 0 disables.
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT"`

	// ShutdownGrace bounds graceful shutdown before forcing exit.
	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
