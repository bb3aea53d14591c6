// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultJWTSecret is used when JWT_SECRET is unset or empty. Only suitable for local development.
const DefaultJWTSecret = "spotter-dev-secret"

// Config holds the server settings.
type Config struct {
	Port            string        `env:"PORT"                  envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"      envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS"  envDefault:"*" envSeparator:","`

	DBDriver string `env:"SPOTTER_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"SPOTTER_DB_DSN"    envDefault:"spotter.db"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"spotter"`
	JWTTTL    time.Duration `env:"JWT_TTL"    envDefault:"24h"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	AdminEmail    string `env:"SPOTTER_ADMIN_EMAIL"    envDefault:"admin@spotter.local"`
	AdminPassword string `env:"SPOTTER_ADMIN_PASSWORD" envDefault:"changeme"`

	ProgressConcurrency int `env:"PROGRESS_CONCURRENCY" envDefault:"8"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads the configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("SPOTTER_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if c.ProgressConcurrency < 1 {
		return fmt.Errorf("PROGRESS_CONCURRENCY must be at least 1, got %d", c.ProgressConcurrency)
	}
	return nil
}

// InsecureSecret reports whether the development JWT secret is in use.
func (c Config) InsecureSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}
