package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogodo/spaced-sub003/internal/domain"
	"github.com/cogodo/spaced-sub003/internal/platform/badgerstore"
	"github.com/cogodo/spaced-sub003/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOp(t *testing.T, kind domain.OperationKind, docID string) *domain.SyncOperation {
	t.Helper()
	var payload store.Record
	if kind != domain.OperationDelete {
		payload = store.Record{"description": docID}
	}
	op, err := domain.NewSyncOperation(kind, "tasks", docID, payload)
	require.NoError(t, err)
	return op
}

func TestDrainReturnsEnqueueOrder(t *testing.T) {
	t.Parallel()
	backend, err := badgerstore.Open(badgerstore.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	q := New(backend, testLogger())
	ctx := context.Background()

	ops := []*domain.SyncOperation{
		newOp(t, domain.OperationCreate, "b"),
		newOp(t, domain.OperationUpdate, "a"),
		newOp(t, domain.OperationDelete, "b"),
	}
	for _, op := range ops {
		require.NoError(t, q.Enqueue(ctx, op))
	}

	drained, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, drained, 3)
	for i, op := range ops {
		assert.Equal(t, op.ID, drained[i].ID)
		assert.Equal(t, op.Kind, drained[i].Kind)
	}
}

func TestMarkAppliedRemovesOperation(t *testing.T) {
	t.Parallel()
	backend, err := badgerstore.Open(badgerstore.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	q := New(backend, testLogger())
	ctx := context.Background()

	first := newOp(t, domain.OperationCreate, "a")
	second := newOp(t, domain.OperationCreate, "b")
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	require.NoError(t, q.MarkApplied(ctx, first.ID))

	remaining, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].ID)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDrainQuarantinesUndecodableRecords(t *testing.T) {
	t.Parallel()
	backend, err := badgerstore.Open(badgerstore.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	q := New(backend, testLogger())
	ctx := context.Background()

	valid := newOp(t, domain.OperationCreate, "a")
	require.NoError(t, q.Enqueue(ctx, valid))
	// A record written without the fields an operation needs, as if a
	// partial write or an incompatible version left it behind.
	require.NoError(t, backend.Set(ctx, Collection, "zzz-corrupt", store.Record{"kind": "create"}))

	drained, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, drained, 1)
	assert.Equal(t, valid.ID, drained[0].ID)

	// The corrupt record left the live queue but stays inspectable.
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dead, err := backend.Get(ctx, DeadLetterCollection, "zzz-corrupt")
	require.NoError(t, err)
	assert.Equal(t, "create", dead["kind"])

	// Later drains keep working on what is decodable.
	drained, err = q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, drained, 1)
}

func TestQueueSurvivesRestart(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := badgerstore.Open(badgerstore.Config{Path: dir})
	require.NoError(t, err)

	op := newOp(t, domain.OperationCreate, "a")
	require.NoError(t, New(backend, testLogger()).Enqueue(ctx, op))
	require.NoError(t, backend.Close())

	reopened, err := badgerstore.Open(badgerstore.Config{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	drained, err := New(reopened, testLogger()).Drain(ctx)
	require.NoError(t, err)
	require.Len(t, drained, 1)
	assert.Equal(t, op.ID, drained[0].ID)
	assert.Equal(t, op.Payload, drained[0].Payload)
}
