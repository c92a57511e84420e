// Package store defines the remote collection the sync engine persists
// against, plus its Postgres implementation.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a remote store failure so the engine can match on it
// instead of sniffing error shapes.
type Kind int

const (
	// KindUnavailable covers network and connection failures; the
	// operation never reached the store and is safely retriable.
	KindUnavailable Kind = iota
	// KindQuery covers failures the store reported for a statement.
	KindQuery
	// KindConflict covers uniqueness violations (duplicate id on insert).
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindQuery:
		return "query"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is a tagged remote store failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from err, defaulting to KindUnavailable
// for errors that did not originate in this package.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnavailable
}

// Subscription is a cancellable change-notification registration. Close is
// idempotent and blocks until the listener goroutine has stopped, so no
// callback fires after it returns.
type Subscription interface {
	Close()
}

// RemoteStore is the remote collection contract the engine requires.
// Records cross this boundary in the persisted (snake_case) shape.
type RemoteStore interface {
	// List returns every record ordered by updated_at descending.
	List(ctx context.Context) ([]map[string]any, error)

	// Insert persists a full record.
	Insert(ctx context.Context, rec map[string]any) error

	// Update patches a single record; only the keys present in partial
	// are written.
	Update(ctx context.Context, id string, partial map[string]any) error

	// Subscribe registers onChange to run whenever the collection
	// changes. The signal carries no payload.
	Subscribe(ctx context.Context, onChange func()) (Subscription, error)
}
