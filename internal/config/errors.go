package config

import "errors"

var (
	// ErrMissingDatabaseURL indicates DATABASE_URL is not set
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

	// ErrMissingCachePath indicates the local cache path is empty
	ErrMissingCachePath = errors.New("CACHE_PATH must not be empty")

	// ErrMissingJWTSecret indicates JWT_HS256_SECRET is not set outside dev
	ErrMissingJWTSecret = errors.New("JWT_HS256_SECRET is required outside dev")
)
