package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mfrolov/promodesk/internal/model"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"tagged conflict", &Error{Kind: KindConflict, Op: "insert", Err: errors.New("dup")}, KindConflict},
		{"tagged query", &Error{Kind: KindQuery, Op: "list", Err: errors.New("syntax")}, KindQuery},
		{"foreign error defaults to unavailable", errors.New("dial tcp: refused"), KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	if KindOf(classify("insert", dup)) != KindConflict {
		t.Error("unique violation should classify as conflict")
	}
	if KindOf(classify("list", &pgconn.PgError{Code: "42703"})) != KindQuery {
		t.Error("statement error should classify as query")
	}
	if KindOf(classify("list", errors.New("connection reset"))) != KindUnavailable {
		t.Error("transport error should classify as unavailable")
	}
}

func getTestStore(t *testing.T) *Postgres {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	pg, err := NewPostgres(context.Background(), pool)
	if err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	if _, err := pool.Exec(context.Background(), "DELETE FROM requests"); err != nil {
		t.Fatalf("Failed to clean requests table: %v", err)
	}
	return pg
}

func TestPostgresRoundTrip_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	pg := getTestStore(t)
	ctx := context.Background()

	rec := map[string]any{
		"id":         "it-req-1",
		"created_at": "2025-03-01T08:00:00Z",
		"updated_at": "2025-03-01T08:00:00Z",
		"rtm_id":     "u-rtm-1",
		"rtm_name":   "Anna Petrova",
		"region_id":  "r-central",
		"branches": []model.BranchData{
			{BranchID: "b-101", Amount: 2500, PromoTypeID: "p-taste", Comment: "it"},
		},
		"status": "PENDING_TM",
	}
	if err := pg.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Duplicate id must classify as a conflict.
	if err := pg.Insert(ctx, rec); KindOf(err) != KindConflict {
		t.Errorf("duplicate insert = %v, want conflict", err)
	}

	if err := pg.Update(ctx, "it-req-1", map[string]any{
		"status":     "APPROVED_TM",
		"updated_at": "2025-03-01T09:00:00Z",
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	recs, err := pg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	got := recs[0]
	if got["status"] != "APPROVED_TM" {
		t.Errorf("status = %v, want APPROVED_TM", got["status"])
	}
	if got["updated_at"] != "2025-03-01T09:00:00.000Z" {
		t.Errorf("updated_at = %v", got["updated_at"])
	}
	if _, ok := got["tm_comment"]; ok {
		t.Error("tm_comment should be absent for null column")
	}
}

func TestPostgresSubscribe_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	pg := getTestStore(t)
	ctx := context.Background()

	changed := make(chan struct{}, 4)
	sub, err := pg.Subscribe(ctx, func() { changed <- struct{}{} })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	err = pg.Insert(ctx, map[string]any{
		"id":         "it-req-2",
		"created_at": "2025-03-01T08:00:00Z",
		"updated_at": "2025-03-01T08:00:00Z",
		"rtm_id":     "u-rtm-1",
		"rtm_name":   "Anna Petrova",
		"region_id":  "r-central",
		"branches":   []model.BranchData{},
		"status":     "PENDING_TM",
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification within 5s of insert")
	}
}
