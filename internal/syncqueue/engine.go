// Package syncqueue drives the durable outgoing event queue: enqueue always
// succeeds locally, a flush loop pushes pending events to the remote
// system-of-record when connectivity allows, and the remote side is never
// authoritative for locally-owned records.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tillworks/till/internal/db"
	"github.com/tillworks/till/internal/demoguard"
	"github.com/tillworks/till/internal/models"
)

// ErrDemoBlocked marks an enqueue denied by the demo safety guard.
var ErrDemoBlocked = errors.New("blocked on demo register")

// Pusher sends one event to the remote boundary. Satisfied by
// *syncclient.Client.
type Pusher interface {
	PushEvent(ctx context.Context, ev models.SyncEvent) error
}

// Config holds the engine's policy values.
type Config struct {
	FlushInterval time.Duration
	MaxRetries    int
	PushTimeout   time.Duration
	// PushBackoff is waited before a retried push, indexed by how many
	// times the event has already failed (capped at the last entry).
	PushBackoff []time.Duration
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		FlushInterval: 30 * time.Second,
		MaxRetries:    5,
		PushTimeout:   15 * time.Second,
		PushBackoff: []time.Duration{
			time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second, 30 * time.Second,
		},
	}
}

// Identity is the active partner/tenant context the engine runs under.
type Identity struct {
	PartnerSlug string
	TenantSlug  string
	// DemoFlag, when set, is the authoritative demo marker from upstream.
	DemoFlag *bool
}

// Engine is the single writer of sync event state. Construct one per
// running client and pass it by handle; there is no package-level instance.
type Engine struct {
	store    *db.DB
	pusher   Pusher
	identity Identity
	cfg      Config
	clock    clockwork.Clock
	logger   *slog.Logger

	// flushMu serializes flush passes so the timer, connectivity edges,
	// and force-sync coalesce instead of double-pushing.
	flushMu sync.Mutex

	mu           sync.Mutex
	online       bool
	syncing      bool
	lastState    State
	listeners    map[int]func(Status)
	nextListener int
	timerStop    chan struct{}
	wg           sync.WaitGroup
}

// New creates an engine. It starts offline; a connectivity source reports
// the first online edge via OnConnected.
func New(store *db.DB, pusher Pusher, identity Identity, cfg Config, clock clockwork.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     store,
		pusher:    pusher,
		identity:  identity,
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		lastState: StateOffline,
		listeners: make(map[int]func(Status)),
	}
}

// operationKindFor maps event types to guarded operation kinds. Event types
// without an entry are not guarded.
func operationKindFor(t models.EventType) (demoguard.OperationKind, bool) {
	switch t {
	case models.EventSale:
		return demoguard.OpPayment, true
	case models.EventShiftClose:
		return demoguard.OpIrreversible, true
	default:
		return "", false
	}
}

// Enqueue records a new event with status pending. It succeeds synchronously
// regardless of connectivity; when online it kicks an asynchronous flush
// without blocking the caller. Guarded operation kinds are checked against
// the demo safety policy first.
func (e *Engine) Enqueue(ctx context.Context, payload models.EventPayload) (models.SyncEvent, error) {
	if op, guarded := operationKindFor(payload.EventType()); guarded {
		d := demoguard.GuardWithFlag(e.identity.PartnerSlug, e.identity.TenantSlug, e.identity.DemoFlag, op)
		if !d.Allowed {
			return models.SyncEvent{}, fmt.Errorf("%w: %s", ErrDemoBlocked, d.Reason)
		}
	}

	raw, err := models.EncodePayload(payload)
	if err != nil {
		return models.SyncEvent{}, err
	}

	ev := models.SyncEvent{
		ID:        uuid.NewString(),
		Type:      payload.EventType(),
		Payload:   raw,
		CreatedAt: e.clock.Now().UTC(),
		Status:    models.StatusPending,
	}
	if err := e.store.InsertEvent(ev); err != nil {
		return models.SyncEvent{}, err
	}

	e.logger.Debug("event enqueued", "id", ev.ID, "type", ev.Type)
	e.notify()

	if e.isOnline() {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if _, err := e.Flush(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("post-enqueue flush", "err", err)
			}
		}()
	}
	return ev, nil
}

// Flush pushes pending events in creation order. Offline is a no-op, never
// an error. Passes are serialized; each event gets one attempt per pass and
// a retried event waits its backoff slot first.
func (e *Engine) Flush(ctx context.Context) (int, error) {
	if !e.isOnline() {
		return 0, nil
	}

	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	// Re-queried under the flush lock, so events synced by an earlier
	// coalesced pass are no longer pending here.
	events, err := e.store.PendingEvents()
	if err != nil {
		return 0, fmt.Errorf("load pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	e.setSyncing(true)
	defer e.setSyncing(false)

	synced := 0
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if !e.isOnline() {
			break
		}

		if ev.RetryCount > 0 {
			if err := e.waitBackoff(ctx, ev.RetryCount); err != nil {
				return synced, err
			}
		}

		if err := e.pushOne(ctx, ev); err != nil {
			e.logger.Warn("push failed", "id", ev.ID, "type", ev.Type, "retries", ev.RetryCount+1, "err", err)
			if dbErr := e.store.RecordPushFailure(ev.ID, e.cfg.MaxRetries, err.Error()); dbErr != nil {
				return synced, dbErr
			}
			continue
		}

		updated, err := e.store.MarkEventSynced(ev.ID, e.clock.Now().UTC())
		if err != nil {
			return synced, err
		}
		if updated {
			synced++
		}
	}

	e.logger.Debug("flush complete", "synced", synced, "total", len(events))
	return synced, nil
}

// ForceSync is the user-triggered flush: it bypasses the periodic timer gate
// entirely but still honors the offline no-op rule.
func (e *Engine) ForceSync(ctx context.Context) (int, error) {
	return e.Flush(ctx)
}

// pushOne performs a single bounded push attempt. A push either fully
// succeeds or counts as one failure; there is no partial state.
func (e *Engine) pushOne(ctx context.Context, ev models.SyncEvent) error {
	pushCtx, cancel := context.WithTimeout(ctx, e.cfg.PushTimeout)
	defer cancel()
	return e.pusher.PushEvent(pushCtx, ev)
}

// waitBackoff sleeps the schedule slot for an event's retry count, on the
// injected clock so tests advance it instantly.
func (e *Engine) waitBackoff(ctx context.Context, retryCount int) error {
	if len(e.cfg.PushBackoff) == 0 {
		return nil
	}
	idx := retryCount - 1
	if idx >= len(e.cfg.PushBackoff) {
		idx = len(e.cfg.PushBackoff) - 1
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.clock.After(e.cfg.PushBackoff[idx]):
		return nil
	}
}

// OnConnected handles the offline→online edge: immediate flush attempt plus
// the periodic flush timer.
func (e *Engine) OnConnected() {
	e.mu.Lock()
	if e.online {
		e.mu.Unlock()
		return
	}
	e.online = true
	stop := make(chan struct{})
	e.timerStop = stop
	e.wg.Add(1)
	go e.runTimer(stop)
	e.mu.Unlock()

	e.logger.Info("connectivity regained")
	e.notify()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Flush(context.Background()); err != nil {
			e.logger.Warn("reconnect flush", "err", err)
		}
	}()
}

// OnDisconnected handles the online→offline edge and stops the timer.
func (e *Engine) OnDisconnected() {
	e.mu.Lock()
	if !e.online {
		e.mu.Unlock()
		return
	}
	e.online = false
	if e.timerStop != nil {
		close(e.timerStop)
		e.timerStop = nil
	}
	e.mu.Unlock()

	e.logger.Info("connectivity lost")
	e.notify()
}

func (e *Engine) runTimer(stop chan struct{}) {
	defer e.wg.Done()
	ticker := e.clock.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if _, err := e.Flush(context.Background()); err != nil {
				e.logger.Warn("periodic flush", "err", err)
			}
		}
	}
}

// Close stops the timer and waits for in-flight background flushes.
func (e *Engine) Close() {
	e.mu.Lock()
	e.online = false
	if e.timerStop != nil {
		close(e.timerStop)
		e.timerStop = nil
	}
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) isOnline() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

func (e *Engine) setSyncing(v bool) {
	e.mu.Lock()
	e.syncing = v
	e.mu.Unlock()
	e.notify()
}
