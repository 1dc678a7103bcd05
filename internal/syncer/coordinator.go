// Package syncer drains the pending-operation queue against the remote
// backend once connectivity is restored, providing at-least-once
// delivery with idempotent application.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/cogodo/spaced-sub003/internal/domain"
	"github.com/cogodo/spaced-sub003/internal/queue"
	"github.com/cogodo/spaced-sub003/internal/store"
)

// State describes the coordinator's position in its drain cycle.
type State int32

const (
	// StateIdle: no drain running, no known backlog.
	StateIdle State = iota
	// StateDraining: a drain is in progress.
	StateDraining
	// StateIdleWithBacklog: the last drain left operations queued.
	StateIdleWithBacklog
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateIdleWithBacklog:
		return "idle_with_backlog"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrNoRemote is returned when a drain is requested without a remote
// backend attached.
var ErrNoRemote = errors.New("no remote backend attached")

// Result summarizes one drain pass.
type Result struct {
	// Applied is how many operations were confirmed and removed.
	Applied int
	// Remaining is how many operations stayed queued, either because
	// they failed or because an earlier operation on the same document
	// failed.
	Remaining int
	// Skipped reports a re-entrant call that was turned into a no-op by
	// the in-progress drain.
	Skipped bool
}

// Coordinator replays queued operations against the remote backend.
//
// Exactly one drain runs at a time: the drain is the only operation in
// the system that can be triggered from multiple callers concurrently
// (a connectivity-restored signal racing a manual retry), so it carries
// an explicit re-entrancy guard. Concurrent calls while a drain is in
// progress return immediately with Skipped set.
type Coordinator struct {
	queue  *queue.Queue
	logger *slog.Logger

	syncing atomic.Bool
	state   atomic.Int32

	maxAttempts uint64
	baseDelay   time.Duration
}

// New creates a coordinator over the given queue.
func New(q *queue.Queue, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		queue:       q,
		logger:      logger.With("component", "sync_coordinator"),
		maxAttempts: 3,
		baseDelay:   200 * time.Millisecond,
	}
}

// State returns the coordinator's current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Drain replays every queued operation against the remote backend, in
// enqueue order per target document.
//
// A failed operation stays queued and blocks every later operation for
// the same document - reordering them could resurrect deleted data -
// but operations on other documents continue to drain. Each operation
// is retried with capped exponential backoff before it is declared
// failed for this pass; whatever remains is picked up on the next
// trigger.
func (c *Coordinator) Drain(ctx context.Context, remote store.Backend) (Result, error) {
	if remote == nil {
		return Result{}, ErrNoRemote
	}
	if !c.syncing.CompareAndSwap(false, true) {
		c.logger.Debug("drain already in progress, skipping")
		return Result{Skipped: true}, nil
	}
	defer c.syncing.Store(false)

	ops, err := c.queue.Drain(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read pending operations: %w", err)
	}
	if len(ops) == 0 {
		c.state.Store(int32(StateIdle))
		return Result{}, nil
	}

	c.state.Store(int32(StateDraining))
	c.logger.Info("draining pending operations", "count", len(ops))

	var result Result
	blocked := make(map[string]bool)

	for _, op := range ops {
		target := op.TargetKey()
		if blocked[target] {
			result.Remaining++
			continue
		}

		if err := c.applyWithRetry(ctx, remote, op); err != nil {
			c.logger.Warn("operation replay failed, keeping queued",
				"op_id", op.ID,
				"kind", op.Kind,
				"target", target,
				"error", err)
			blocked[target] = true
			result.Remaining++
			continue
		}

		if err := c.queue.MarkApplied(ctx, op.ID); err != nil {
			// The remote write succeeded but the queue entry survived;
			// replaying it later is harmless because application is
			// idempotent.
			c.logger.Error("failed to remove applied operation",
				"op_id", op.ID,
				"error", err)
			blocked[target] = true
			result.Remaining++
			continue
		}
		result.Applied++
	}

	if result.Remaining > 0 {
		c.state.Store(int32(StateIdleWithBacklog))
	} else {
		c.state.Store(int32(StateIdle))
	}

	c.logger.Info("drain finished",
		"applied", result.Applied,
		"remaining", result.Remaining)
	return result, nil
}

// applyWithRetry applies one operation, retrying transient backend
// failures with capped exponential backoff.
func (c *Coordinator) applyWithRetry(ctx context.Context, remote store.Backend, op *domain.SyncOperation) error {
	backoff := retry.WithMaxRetries(c.maxAttempts-1, retry.NewExponential(c.baseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.apply(ctx, remote, op)
		if store.IsUnavailable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// apply replays one operation. Create and update both map onto the
// backend's merge write, which keeps replay idempotent even when the
// operation was already applied in a previous partial drain.
func (c *Coordinator) apply(ctx context.Context, remote store.Backend, op *domain.SyncOperation) error {
	switch op.Kind {
	case domain.OperationCreate, domain.OperationUpdate:
		return remote.Set(ctx, op.Collection, op.DocID, op.Payload)
	case domain.OperationDelete:
		return remote.Delete(ctx, op.Collection, op.DocID)
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidOperationKind, op.Kind)
	}
}
