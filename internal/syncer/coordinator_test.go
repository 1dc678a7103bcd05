package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogodo/spaced-sub003/internal/domain"
	"github.com/cogodo/spaced-sub003/internal/platform/badgerstore"
	"github.com/cogodo/spaced-sub003/internal/queue"
	"github.com/cogodo/spaced-sub003/internal/store"
	"github.com/cogodo/spaced-sub003/internal/store/storetest"
)

func newCoordinator(t *testing.T) (*Coordinator, *queue.Queue) {
	t.Helper()
	backend, err := badgerstore.Open(badgerstore.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	q := queue.New(backend, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c := New(q, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseDelay = time.Millisecond
	return c, q
}

func enqueue(t *testing.T, q *queue.Queue, kind domain.OperationKind, docID string) *domain.SyncOperation {
	t.Helper()
	var payload store.Record
	if kind != domain.OperationDelete {
		payload = store.Record{"description": docID}
	}
	op, err := domain.NewSyncOperation(kind, "tasks", docID, payload)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), op))
	return op
}

func TestDrainRequiresRemote(t *testing.T) {
	t.Parallel()
	c, _ := newCoordinator(t)

	_, err := c.Drain(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestDrainAppliesInOrderAndEmptiesQueue(t *testing.T) {
	t.Parallel()
	c, q := newCoordinator(t)
	ctx := context.Background()

	enqueue(t, q, domain.OperationCreate, "a")
	enqueue(t, q, domain.OperationUpdate, "a")
	enqueue(t, q, domain.OperationDelete, "b")

	remote := storetest.New()
	result, err := c.Drain(ctx, remote)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Applied)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, []string{"set tasks/a", "set tasks/a", "delete tasks/b"}, remote.Applied)
	assert.Equal(t, StateIdle, c.State())

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFailedOperationBlocksSameDocumentOnly(t *testing.T) {
	t.Parallel()
	c, q := newCoordinator(t)
	ctx := context.Background()

	enqueue(t, q, domain.OperationCreate, "a")
	enqueue(t, q, domain.OperationUpdate, "a")
	enqueue(t, q, domain.OperationCreate, "b")

	remote := storetest.New()
	remote.Fail("tasks", "a", errors.New("write rejected"))

	result, err := c.Drain(ctx, remote)
	require.NoError(t, err)

	// Both operations on "a" stay queued; "b" drains independently.
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, []string{"set tasks/b"}, remote.Applied)
	assert.Equal(t, StateIdleWithBacklog, c.State())

	// Clearing the failure lets the next pass finish the backlog in order.
	remote.Fail("tasks", "a", nil)
	result, err = c.Drain(ctx, remote)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, StateIdle, c.State())
}

func TestTransientFailureIsRetriedWithinOnePass(t *testing.T) {
	t.Parallel()
	c, q := newCoordinator(t)
	ctx := context.Background()

	c.baseDelay = 50 * time.Millisecond
	enqueue(t, q, domain.OperationCreate, "a")

	remote := storetest.New()
	remote.Fail("tasks", "a", store.ErrBackendUnavailable)

	// Clear the injection while the retry loop is backing off after the
	// first attempt; the second attempt should then succeed without a
	// second drain.
	go func() {
		time.Sleep(10 * time.Millisecond)
		remote.Fail("tasks", "a", nil)
	}()

	result, err := c.Drain(ctx, remote)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 0, result.Remaining)
}

func TestConcurrentDrainIsSkipped(t *testing.T) {
	t.Parallel()
	c, q := newCoordinator(t)
	ctx := context.Background()

	enqueue(t, q, domain.OperationCreate, "a")

	remote := storetest.New()
	remote.Gate = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var first Result
	var firstErr error
	go func() {
		defer wg.Done()
		first, firstErr = c.Drain(ctx, remote)
	}()

	// Wait until the first drain is blocked inside the remote write, then
	// trigger a second drain. It must bail out immediately.
	deadline := time.Now().Add(2 * time.Second)
	for c.State() != StateDraining {
		if time.Now().After(deadline) {
			t.Fatal("first drain never started")
		}
		time.Sleep(time.Millisecond)
	}

	second, err := c.Drain(ctx, remote)
	require.NoError(t, err)
	assert.True(t, second.Skipped)

	remote.Gate <- struct{}{}
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, 1, first.Applied)
}

func TestDrainWithEmptyQueue(t *testing.T) {
	t.Parallel()
	c, _ := newCoordinator(t)

	result, err := c.Drain(context.Background(), storetest.New())
	require.NoError(t, err)
	assert.Zero(t, result.Applied)
	assert.Zero(t, result.Remaining)
	assert.False(t, result.Skipped)
	assert.Equal(t, StateIdle, c.State())
}
