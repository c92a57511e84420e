// Package cache is the durable on-device fallback store. It holds exactly
// two blobs: the last successfully-fetched request collection and the
// remembered session user. It is never authoritative; the engine writes it
// after successful refreshes and reads it only when the remote store is
// unreachable.
package cache

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/mfrolov/promodesk/internal/model"
)

//go:embed schema.sql
var schemaSQL string

const (
	keyRequests = "requests"
	keySession  = "session"
)

// Cache is a sqlite-backed key-value store.
// Uses WAL mode so reads stay cheap while the engine writes after refreshes.
type Cache struct {
	db *sql.DB
}

// Open creates or opens the cache database at path. Idempotent.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect cache: %w", err)
	}

	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent refreshes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Requests returns the cached collection. A missing key or an unparseable
// blob both read as a miss; corruption is logged, never fatal.
func (c *Cache) Requests() ([]model.MarketingRequest, bool) {
	raw, ok := c.get(keyRequests)
	if !ok {
		return nil, false
	}
	var out []model.MarketingRequest
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn().Err(err).Msg("corrupt cached request collection, treating as miss")
		return nil, false
	}
	return out, true
}

// PutRequests replaces the cached collection wholesale.
func (c *Cache) PutRequests(reqs []model.MarketingRequest) error {
	raw, err := json.Marshal(reqs)
	if err != nil {
		return fmt.Errorf("serialize request collection: %w", err)
	}
	return c.put(keyRequests, raw)
}

// Session returns the remembered user, if any.
func (c *Cache) Session() (*model.User, bool) {
	raw, ok := c.get(keySession)
	if !ok {
		return nil, false
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		log.Warn().Err(err).Msg("corrupt cached session, treating as miss")
		return nil, false
	}
	return &u, true
}

// PutSession remembers the user across restarts.
func (c *Cache) PutSession(u *model.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("serialize session: %w", err)
	}
	return c.put(keySession, raw)
}

// ClearSession forgets the remembered user.
func (c *Cache) ClearSession() error {
	return c.delete(keySession)
}

// Reset drops the cached collection (the admin "clear local cache" action).
// The session key survives a reset.
func (c *Cache) Reset() error {
	return c.delete(keyRequests)
}

func (c *Cache) get(key string) ([]byte, bool) {
	var value []byte
	err := c.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		return nil, false
	}
	return value, true
}

func (c *Cache) put(key string, value []byte) error {
	_, err := c.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("cache write %q: %w", key, err)
	}
	return nil
}

func (c *Cache) delete(key string) error {
	if _, err := c.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("cache delete %q: %w", key, err)
	}
	return nil
}
