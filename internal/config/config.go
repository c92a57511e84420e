// Package config collects the process configuration from environment
// variables.
package config

import (
	"os"
)

// Config holds everything the promodesk process needs to start.
type Config struct {
	DatabaseURL string // postgres connection string (required)
	CachePath   string // sqlite file for the local fallback cache
	HTTPAddr    string // listen address for the HTTP surface
	JWTSecret   string // HS256 secret for session tokens
	Env         string // "dev" enables pretty logging and debug headers
}

// Load reads configuration from the environment, applying defaults for
// everything except the database URL. The JWT secret only falls back to a
// baked-in value in dev; anywhere else it must be set explicitly.
func Load() Config {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		CachePath:   env("CACHE_PATH", "promodesk-cache.db"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		JWTSecret:   os.Getenv("JWT_HS256_SECRET"),
		Env:         env("ENV", "dev"),
	}
	if cfg.JWTSecret == "" && cfg.Dev() {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.CachePath == "" {
		return ErrMissingCachePath
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// Dev reports whether the process runs in local development mode.
func (c Config) Dev() bool { return c.Env == "dev" }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
