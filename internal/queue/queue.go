// Package queue implements the durable pending-operation queue: an
// ordered log of mutations that have not yet been confirmed against the
// remote backend.
//
// The queue persists through the same local backend used for tasks,
// under a reserved collection, so its durability never depends on
// network availability and it survives process restarts.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cogodo/spaced-sub003/internal/domain"
	"github.com/cogodo/spaced-sub003/internal/store"
)

// Collection is the reserved namespace for queued operations. The
// leading underscore keeps it apart from user data collections.
const Collection = "_pending_ops"

// DeadLetterCollection holds queued records that could not be decoded.
// They are moved out of the live queue so one corrupt record cannot
// wedge every later drain, and kept here for manual inspection.
const DeadLetterCollection = "_pending_ops_dead"

// Queue is the durable pending-operation queue.
//
// Methods are safe for concurrent use as long as the underlying backend
// is; the local BadgerDB backend is.
type Queue struct {
	backend store.Backend
	logger  *slog.Logger
}

// New creates a queue persisted through the given backend. The backend
// should be the local durable store.
func New(backend store.Backend, logger *slog.Logger) *Queue {
	return &Queue{
		backend: backend,
		logger:  logger.With("component", "pending_queue"),
	}
}

// Enqueue durably appends an operation to the queue.
func (q *Queue) Enqueue(ctx context.Context, op *domain.SyncOperation) error {
	if err := q.backend.Set(ctx, Collection, op.ID, op.Record()); err != nil {
		return fmt.Errorf("enqueue operation %s: %w", op.ID, err)
	}
	q.logger.Debug("operation enqueued",
		"op_id", op.ID,
		"kind", op.Kind,
		"target", op.TargetKey())
	return nil
}

// Drain returns every queued operation, oldest first. Operations remain
// queued until MarkApplied removes them. A record that fails to decode
// is quarantined under DeadLetterCollection rather than failing the
// drain: it can never be replayed, and keeping it in the live queue
// would block every decodable operation behind it forever.
func (q *Queue) Drain(ctx context.Context) ([]*domain.SyncOperation, error) {
	records, err := q.backend.List(ctx, Collection)
	if err != nil {
		return nil, fmt.Errorf("list pending operations: %w", err)
	}

	ops := make([]*domain.SyncOperation, 0, len(records))
	for _, kr := range records {
		op, err := domain.SyncOperationFromRecord(kr.Record)
		if err != nil {
			q.logger.Error("quarantining undecodable pending operation",
				"op_id", kr.ID,
				"error", err)
			q.quarantine(ctx, kr)
			continue
		}
		ops = append(ops, op)
	}

	// Operation IDs are zero-padded timestamps plus a sequence number,
	// so lexical order is enqueue order.
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

// MarkApplied removes a confirmed operation from the queue.
func (q *Queue) MarkApplied(ctx context.Context, opID string) error {
	if err := q.backend.Delete(ctx, Collection, opID); err != nil {
		return fmt.Errorf("mark operation %s applied: %w", opID, err)
	}
	q.logger.Debug("operation marked applied", "op_id", opID)
	return nil
}

// quarantine copies a record into the dead-letter collection and removes
// it from the live queue. The copy goes first: if either write fails the
// record stays where it is and the next drain tries again.
func (q *Queue) quarantine(ctx context.Context, kr store.KeyedRecord) {
	if err := q.backend.Set(ctx, DeadLetterCollection, kr.ID, kr.Record); err != nil {
		q.logger.Error("failed to write dead-letter record", "op_id", kr.ID, "error", err)
		return
	}
	if err := q.backend.Delete(ctx, Collection, kr.ID); err != nil {
		q.logger.Error("failed to remove quarantined record", "op_id", kr.ID, "error", err)
	}
}

// Len reports how many operations are currently queued.
func (q *Queue) Len(ctx context.Context) (int, error) {
	records, err := q.backend.List(ctx, Collection)
	if err != nil {
		return 0, fmt.Errorf("count pending operations: %w", err)
	}
	return len(records), nil
}
