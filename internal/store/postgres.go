package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mfrolov/promodesk/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// channel the requests table trigger notifies on
const notifyChannel = "requests_changed"

// Columns a partial update may touch, in the order they appear in the
// generated SET clause.
var updatableColumns = []string{
	"created_at", "updated_at", "rtm_id", "rtm_name", "region_id",
	"branches", "status", "approved_amount", "tm_comment",
}

// Postgres implements RemoteStore over a single requests table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool and applies the schema idempotently.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, &Error{Kind: KindQuery, Op: "schema", Err: err}
	}
	return &Postgres{pool: pool}, nil
}

// List returns all requests ordered most-recently-touched first.
func (p *Postgres) List(ctx context.Context) ([]map[string]any, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, created_at, updated_at, rtm_id, rtm_name, region_id,
		       branches, status, approved_amount, tm_comment
		FROM requests
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, classify("list", err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var (
			id, rtmID, rtmName, regionID, status string
			createdAt, updatedAt                 time.Time
			branchesRaw                          []byte
			approvedAmount                       *float64
			tmComment                            *string
		)
		if err := rows.Scan(&id, &createdAt, &updatedAt, &rtmID, &rtmName,
			&regionID, &branchesRaw, &status, &approvedAmount, &tmComment); err != nil {
			return nil, classify("list", err)
		}

		var branches []model.BranchData
		if err := json.Unmarshal(branchesRaw, &branches); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("malformed branches column, keeping record without lines")
		}

		rec := map[string]any{
			"id":         id,
			"created_at": createdAt.UTC().Format(model.TimeLayout),
			"updated_at": updatedAt.UTC().Format(model.TimeLayout),
			"rtm_id":     rtmID,
			"rtm_name":   rtmName,
			"region_id":  regionID,
			"branches":   branches,
			"status":     status,
		}
		if approvedAmount != nil {
			rec["approved_amount"] = *approvedAmount
		}
		if tmComment != nil {
			rec["tm_comment"] = *tmComment
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", err)
	}
	return out, nil
}

// Insert persists a full record.
func (p *Postgres) Insert(ctx context.Context, rec map[string]any) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO requests
			(id, created_at, updated_at, rtm_id, rtm_name, region_id,
			 branches, status, approved_amount, tm_comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec["id"],
		asTime(rec["created_at"]),
		asTime(rec["updated_at"]),
		rec["rtm_id"],
		rec["rtm_name"],
		rec["region_id"],
		rec["branches"],
		rec["status"],
		rec["approved_amount"],
		rec["tm_comment"],
	)
	if err != nil {
		return classify("insert", err)
	}
	return nil
}

// Update patches one row, writing only the columns present in partial.
func (p *Postgres) Update(ctx context.Context, id string, partial map[string]any) error {
	var (
		sets []string
		args []any
	)
	for _, col := range updatableColumns {
		v, ok := partial[col]
		if !ok {
			continue
		}
		if col == "created_at" || col == "updated_at" {
			v = asTime(v)
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE requests SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return classify("update", err)
	}
	if tag.RowsAffected() == 0 {
		log.Warn().Str("id", id).Msg("update matched no remote row")
	}
	return nil
}

// Subscribe LISTENs on the requests change channel with a dedicated
// connection. The returned Subscription must be closed to release it.
func (p *Postgres) Subscribe(ctx context.Context, onChange func()) (Subscription, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, classify("subscribe", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, classify("subscribe", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	sub := &pgSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer conn.Release()
		for {
			if _, err := conn.Conn().WaitForNotification(listenCtx); err != nil {
				if listenCtx.Err() == nil {
					log.Warn().Err(err).Msg("change listener stopped")
				}
				return
			}
			onChange()
		}
	}()

	log.Info().Str("channel", notifyChannel).Msg("subscribed to remote changes")
	return sub, nil
}

type pgSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *pgSubscription) Close() {
	s.cancel()
	<-s.done
}

// asTime converts the RFC3339 strings the mapper emits into timestamptz
// parameters; non-string values pass through untouched.
func asTime(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return v
	}
	return t
}

// classify wraps a pgx error with a failure kind.
func classify(op string, err error) error {
	kind := KindUnavailable
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			kind = KindConflict
		} else {
			kind = KindQuery
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
