package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogodo/spaced-sub003/internal/domain"
)

func mustTask(t *testing.T, description string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(description)
	require.NoError(t, err)
	return task
}

func TestTaskStoreRejectsDuplicates(t *testing.T) {
	t.Parallel()
	s := NewTaskStore()

	require.NoError(t, s.Add(mustTask(t, "learn spanish")))
	// Normalization makes these the same task.
	err := s.Add(mustTask(t, "  Learn SPANISH "))
	assert.ErrorIs(t, err, domain.ErrDuplicateTask)
	assert.Equal(t, 1, s.Len())
}

func TestTaskStoreGetNormalizesLookup(t *testing.T) {
	t.Parallel()
	s := NewTaskStore()
	require.NoError(t, s.Add(mustTask(t, "learn spanish")))

	got, err := s.Get("LEARN spanish")
	require.NoError(t, err)
	assert.Equal(t, "learn spanish", got.Description)

	_, err = s.Get("unknown")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskStoreRemovePreservesOrder(t *testing.T) {
	t.Parallel()
	s := NewTaskStore()
	for _, d := range []string{"first", "second", "third"} {
		require.NoError(t, s.Add(mustTask(t, d)))
	}

	removed, err := s.Remove("second")
	require.NoError(t, err)
	assert.Equal(t, "second", removed.Description)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Description)
	assert.Equal(t, "third", all[1].Description)

	_, err = s.Remove("second")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskStoreReplaceRequiresExisting(t *testing.T) {
	t.Parallel()
	s := NewTaskStore()

	assert.ErrorIs(t, s.Replace(mustTask(t, "ghost")), domain.ErrTaskNotFound)

	task := mustTask(t, "learn spanish")
	require.NoError(t, s.Add(task))

	updated := *task
	updated.Repetition = 3
	require.NoError(t, s.Replace(&updated))

	got, err := s.Get("learn spanish")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Repetition)
}

func TestTaskStoreDueFiltersAndKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	s := NewTaskStore()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	fresh := mustTask(t, "fresh") // no next review: always due
	require.NoError(t, s.Add(fresh))

	future := mustTask(t, "future")
	nextWeek := now.AddDate(0, 0, 7)
	future.NextReview = &nextWeek
	require.NoError(t, s.Add(future))

	overdue := mustTask(t, "overdue")
	yesterday := now.AddDate(0, 0, -1)
	overdue.NextReview = &yesterday
	require.NoError(t, s.Add(overdue))

	due := s.Due(now)
	require.Len(t, due, 2)
	assert.Equal(t, "fresh", due[0].Description)
	assert.Equal(t, "overdue", due[1].Description)
}

func TestTaskStoreAllReturnsCopies(t *testing.T) {
	t.Parallel()
	s := NewTaskStore()
	require.NoError(t, s.Add(mustTask(t, "learn spanish")))

	all := s.All()
	all[0].Repetition = 99

	got, err := s.Get("learn spanish")
	require.NoError(t, err)
	assert.Zero(t, got.Repetition)
}
