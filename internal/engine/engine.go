// Package engine owns the authoritative in-memory request collection and
// mediates every mutation through an optimistic apply/confirm/rollback
// protocol against the remote store, with the local cache as an offline
// fallback.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mfrolov/promodesk/internal/mapper"
	"github.com/mfrolov/promodesk/internal/model"
	"github.com/mfrolov/promodesk/internal/store"
	"github.com/mfrolov/promodesk/internal/workflow"
)

var (
	// ErrMissingID rejects a create whose request carries no id.
	ErrMissingID = errors.New("request id is required")

	// ErrDuplicateID rejects a create whose id is already in the collection.
	ErrDuplicateID = errors.New("request id already exists")

	// ErrNotInitialStatus rejects a create that does not start at the
	// workflow's initial state.
	ErrNotInitialStatus = errors.New("new requests must start in the initial status")

	// ErrUnknownRequest rejects a transition whose id is not in the
	// collection.
	ErrUnknownRequest = errors.New("unknown request id")

	// ErrStopped rejects operations after Stop.
	ErrStopped = errors.New("engine is stopped")
)

// Op names the engine operation a Signal reports on.
type Op string

const (
	OpRefresh    Op = "refresh"
	OpCreate     Op = "create"
	OpTransition Op = "transition"
)

// Signal is the asynchronous outcome of an operation: Err is nil when the
// remote store confirmed the optimistic change, non-nil when it was rolled
// back. Presentation consumers use it for toasts and retry prompts.
type Signal struct {
	Op        Op
	RequestID string
	Err       error
}

// CacheStore is the slice of the local cache the engine touches.
type CacheStore interface {
	Requests() ([]model.MarketingRequest, bool)
	PutRequests([]model.MarketingRequest) error
}

// Options tunes an Engine. The zero value is usable.
type Options struct {
	// Now supplies timestamps for accepted mutations. Defaults to
	// time.Now; injected in tests.
	Now func() time.Time

	// RemoteTimeout bounds each remote confirmation. In-flight calls get
	// their own context so a presentation teardown cannot cancel them.
	RemoteTimeout time.Duration

	// SignalBuffer is the capacity of the Signals channel.
	SignalBuffer int
}

// Engine is the sync core. Construct with New, then Start it; it is safe
// for concurrent use. Exactly one Engine owns the collection per process,
// passed by reference to consumers.
type Engine struct {
	remote  store.RemoteStore
	cache   CacheStore
	now     func() time.Time
	timeout time.Duration

	mu         sync.Mutex
	collection []model.MarketingRequest
	populated  bool
	syncing    bool
	stopped    bool

	signals chan Signal
	sub     store.Subscription
	wg      sync.WaitGroup
}

// New builds an Engine over the given collaborators. cache may be nil when
// no durable fallback is available.
func New(remote store.RemoteStore, cache CacheStore, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 10 * time.Second
	}
	if opts.SignalBuffer <= 0 {
		opts.SignalBuffer = 16
	}
	return &Engine{
		remote:  remote,
		cache:   cache,
		now:     opts.Now,
		timeout: opts.RemoteTimeout,
		signals: make(chan Signal, opts.SignalBuffer),
	}
}

// Start performs the initial refresh and registers the remote change
// listener. Every notification triggers a wholesale re-fetch; the engine
// never merges deltas.
func (e *Engine) Start(ctx context.Context) error {
	e.Refresh(ctx)

	sub, err := e.remote.Subscribe(ctx, func() {
		e.Refresh(context.Background())
	})
	if err != nil {
		// The engine still works without live updates; consumers can
		// refresh explicitly.
		log.Warn().Err(err).Msg("change subscription unavailable, live updates disabled")
		return nil
	}
	e.sub = sub
	return nil
}

// Stop releases the change subscription and waits for in-flight remote
// confirmations to settle. Safe to call once; operations after Stop are
// rejected with ErrStopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	sub := e.sub
	e.sub = nil
	e.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	e.wg.Wait()
}

// Signals delivers one outcome per mutation and one per failed refresh.
func (e *Engine) Signals() <-chan Signal { return e.signals }

// Syncing reports whether a refresh is in flight, for UI feedback.
func (e *Engine) Syncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.syncing
}

// Snapshot returns a deep copy of the collection in canonical order
// (most-recently-touched first). Consumers never see engine-owned memory.
func (e *Engine) Snapshot() []model.MarketingRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneRequests(e.collection)
}

// Refresh re-fetches the whole collection from the remote store. On success
// the collection is replaced wholesale and written to the cache. On failure
// an already-populated collection is kept; otherwise the cache seeds it,
// and failing that the built-in seed set does. Errors never escape: they
// are logged and signalled.
func (e *Engine) Refresh(ctx context.Context) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.syncing = true
	e.mu.Unlock()

	recs, err := e.remote.List(ctx)

	e.mu.Lock()
	defer func() {
		e.syncing = false
		e.mu.Unlock()
	}()

	if err != nil {
		log.Warn().Err(err).Stringer("kind", store.KindOf(err)).Msg("remote list failed, keeping local state")
		if !e.populated {
			e.seedLocked()
		}
		e.emitLocked(Signal{Op: OpRefresh, Err: err})
		return
	}

	if len(recs) == 0 {
		// An empty remote store reads as "nothing there yet", not as an
		// instruction to drop local data.
		if !e.populated {
			e.seedLocked()
		}
		return
	}

	fresh := make([]model.MarketingRequest, 0, len(recs))
	for _, rec := range recs {
		fresh = append(fresh, mapper.ToDomain(rec))
	}
	sortByUpdatedAt(fresh)

	e.collection = fresh
	e.populated = true

	if e.cache != nil {
		if cerr := e.cache.PutRequests(model.CloneRequests(fresh)); cerr != nil {
			log.Warn().Err(cerr).Msg("cache write after refresh failed")
		}
	}
	log.Debug().Int("count", len(fresh)).Msg("collection refreshed from remote")
}

// seedLocked populates an empty collection from the cache, or from the
// built-in seed set when the cache has nothing. Caller holds e.mu.
func (e *Engine) seedLocked() {
	if e.cache != nil {
		if cached, ok := e.cache.Requests(); ok {
			e.collection = cached
			e.populated = true
			log.Info().Int("count", len(cached)).Msg("collection seeded from local cache")
			return
		}
	}
	e.collection = model.SeedRequests()
	e.populated = true
	log.Info().Int("count", len(e.collection)).Msg("collection seeded from built-in defaults")
}

// Create validates req, applies it optimistically at the head of the
// collection, and confirms it against the remote store in the background.
// A remote failure rolls the insert back and raises a failure signal; the
// caller may simply retry. Validation errors are returned synchronously
// before any state changes.
func (e *Engine) Create(ctx context.Context, req model.MarketingRequest) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	if req.ID == "" {
		e.mu.Unlock()
		return ErrMissingID
	}
	if e.indexOfLocked(req.ID) >= 0 {
		e.mu.Unlock()
		return ErrDuplicateID
	}
	if req.Status != workflow.Initial() {
		e.mu.Unlock()
		return ErrNotInitialStatus
	}

	// Optimistic apply: visible to consumers before the remote settles. The
	// remote payload is built from the same clone so a caller mutating its
	// req after Create returns cannot skew what gets persisted.
	stored := req.Clone()
	e.collection = append([]model.MarketingRequest{stored}, e.collection...)
	e.populated = true
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()

		rctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		rec := mapper.ToPersisted(mapper.FromRequest(stored))
		err := e.remote.Insert(rctx, rec)
		if err != nil {
			log.Warn().Err(err).Str("id", stored.ID).Msg("remote insert failed, rolling back create")
			e.mu.Lock()
			if i := e.indexOfLocked(stored.ID); i >= 0 {
				e.collection = append(e.collection[:i], e.collection[i+1:]...)
			}
			e.mu.Unlock()
		}
		e.emit(Signal{Op: OpCreate, RequestID: stored.ID, Err: err})
	}()
	return nil
}

// Transition moves one request along the status workflow. The edge, its
// required extras, and (when supplied) the acting role are validated before
// any mutation; illegal calls return an error with the collection
// untouched. The accepted mutation rewrites status, merges the extras, sets
// updatedAt, and moves the record to the head of the collection, then
// confirms against the remote store with exactly the changed columns.
//
// There is no remote concurrency token: two racing transitions on one id
// resolve last-writer-wins, converging on the next refresh.
func (e *Engine) Transition(ctx context.Context, id string, to model.RequestStatus, extra workflow.Extra, role model.UserRole) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	i := e.indexOfLocked(id)
	if i < 0 {
		e.mu.Unlock()
		return ErrUnknownRequest
	}
	cur := e.collection[i]
	if err := workflow.Check(cur.Status, to, extra, role); err != nil {
		e.mu.Unlock()
		return err
	}

	prev := cur.Clone()
	prevIndex := i
	now := e.now().UTC().Format(model.TimeLayout)

	next := cur.Clone()
	next.Status = to
	next.UpdatedAt = now
	if extra.ApprovedAmount != nil {
		v := *extra.ApprovedAmount
		next.ApprovedAmount = &v
	}
	if extra.TMComment != nil {
		v := *extra.TMComment
		next.TMComment = &v
	}

	// Most-recently-touched first.
	e.collection = append(e.collection[:i], e.collection[i+1:]...)
	e.collection = append([]model.MarketingRequest{next}, e.collection...)
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()

		rctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		partial := mapper.Partial{
			Status:         &to,
			UpdatedAt:      &now,
			ApprovedAmount: extra.ApprovedAmount,
			TMComment:      extra.TMComment,
		}
		err := e.remote.Update(rctx, id, mapper.ToPersisted(partial))
		if err != nil {
			log.Warn().Err(err).Str("id", id).Str("to", string(to)).Msg("remote update failed, rolling back transition")
			e.mu.Lock()
			if j := e.indexOfLocked(id); j >= 0 {
				e.collection = append(e.collection[:j], e.collection[j+1:]...)
				if prevIndex > len(e.collection) {
					prevIndex = len(e.collection)
				}
				rest := append([]model.MarketingRequest{prev}, e.collection[prevIndex:]...)
				e.collection = append(e.collection[:prevIndex:prevIndex], rest...)
			}
			e.mu.Unlock()
		}
		e.emit(Signal{Op: OpTransition, RequestID: id, Err: err})
	}()
	return nil
}

// indexOfLocked finds id in the collection. Caller holds e.mu.
func (e *Engine) indexOfLocked(id string) int {
	for i := range e.collection {
		if e.collection[i].ID == id {
			return i
		}
	}
	return -1
}

// emitLocked sends a signal without blocking; a slow consumer drops the
// oldest outcome rather than wedging the engine. Caller holds e.mu.
func (e *Engine) emitLocked(s Signal) {
	select {
	case e.signals <- s:
	default:
		select {
		case <-e.signals:
		default:
		}
		select {
		case e.signals <- s:
		default:
		}
	}
}

// emit is emitLocked for callers that do not hold e.mu.
func (e *Engine) emit(s Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitLocked(s)
}

// sortByUpdatedAt orders a collection most-recently-touched first,
// comparing parsed timestamps and falling back to a raw string compare for
// anything that is not RFC3339.
func sortByUpdatedAt(reqs []model.MarketingRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		a, b := reqs[i].UpdatedAt, reqs[j].UpdatedAt
		ta, errA := time.Parse(time.RFC3339, a)
		tb, errB := time.Parse(time.RFC3339, b)
		if errA == nil && errB == nil {
			return ta.After(tb)
		}
		return a > b
	})
}
