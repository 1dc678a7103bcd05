package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogodo/spaced-sub003/internal/store"
)

// openTestStore connects to the database named by SCHED_TEST_DATABASE_URL
// and scopes all writes to a per-test collection so runs do not collide.
// Tests are skipped when the variable is unset.
func openTestStore(t *testing.T) (*DocStore, string) {
	t.Helper()
	databaseURL := os.Getenv("SCHED_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("SCHED_TEST_DATABASE_URL not set, skipping postgres integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Open(ctx, databaseURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	collection := fmt.Sprintf("test_%s", uuid.NewString())
	t.Cleanup(func() {
		records, err := s.List(context.Background(), collection)
		if err != nil {
			return
		}
		for _, kr := range records {
			_ = s.Delete(context.Background(), collection, kr.ID)
		}
	})
	return s, collection
}

func TestDocStoreSetAndGet(t *testing.T) {
	s, collection := openTestStore(t)
	ctx := context.Background()

	rec := store.Record{"description": "learn spanish", "repetition": float64(2)}
	require.NoError(t, s.Set(ctx, collection, "learn spanish", rec))

	got, err := s.Get(ctx, collection, "learn spanish")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = s.Get(ctx, collection, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocStoreSetMerges(t *testing.T) {
	s, collection := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, collection, "x", store.Record{"a": "keep", "b": float64(1)}))
	require.NoError(t, s.Set(ctx, collection, "x", store.Record{"b": float64(2)}))

	got, err := s.Get(ctx, collection, "x")
	require.NoError(t, err)
	assert.Equal(t, store.Record{"a": "keep", "b": float64(2)}, got)
}

func TestDocStoreUpdateRequiresExisting(t *testing.T) {
	s, collection := openTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, collection, "missing", store.Record{"a": float64(1)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, collection, "x", store.Record{"a": float64(1), "b": "keep"}))
	require.NoError(t, s.Update(ctx, collection, "x", store.Record{"a": float64(2)}))

	got, err := s.Get(ctx, collection, "x")
	require.NoError(t, err)
	assert.Equal(t, store.Record{"a": float64(2), "b": "keep"}, got)
}

func TestDocStoreDeleteIsIdempotent(t *testing.T) {
	s, collection := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, collection, "x", store.Record{"a": float64(1)}))
	require.NoError(t, s.Delete(ctx, collection, "x"))
	require.NoError(t, s.Delete(ctx, collection, "x"))

	_, err := s.Get(ctx, collection, "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocStoreListOrdersByID(t *testing.T) {
	s, collection := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, collection, "b", store.Record{"v": float64(2)}))
	require.NoError(t, s.Set(ctx, collection, "a", store.Record{"v": float64(1)}))

	records, err := s.List(ctx, collection)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)
}

func TestDocStoreSupportsSync(t *testing.T) {
	s, _ := openTestStore(t)
	assert.True(t, s.SupportsSync())
}
