// Package schedule contains the scheduling engine's top-level façade:
// the in-memory task store plus the manager that orchestrates optimistic
// persistence, the pending-operation queue, and sync triggering.
package schedule

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cogodo/spaced-sub003/internal/domain"
	"github.com/cogodo/spaced-sub003/internal/domain/srs"
	"github.com/cogodo/spaced-sub003/internal/events"
	"github.com/cogodo/spaced-sub003/internal/queue"
	"github.com/cogodo/spaced-sub003/internal/store"
	"github.com/cogodo/spaced-sub003/internal/syncer"
)

// Persisted collection layout.
const (
	// TasksCollection holds one document per task, keyed by the
	// normalized description.
	TasksCollection = "tasks"

	// SettingsCollection holds the single per-user settings document.
	SettingsCollection = "settings"

	// SettingsDocID is the fixed ID of the settings document.
	SettingsDocID = "scheduler"
)

// Manager owns the task store and the pending-operation queue for one
// user session and exposes the engine's mutation API.
//
// Exactly one Manager exists per active user session; two instances must
// never mutate the same user's data concurrently. That is an external
// invariant of the host process. Within one Manager, public methods are
// safe to call from multiple goroutines: in-memory state is guarded by a
// mutex, and the in-memory mutation plus local persist complete and
// release that mutex before any remote I/O is attempted, so a slow
// remote never blocks visible progress.
type Manager struct {
	mu       sync.Mutex
	tasks    *TaskStore
	settings domain.Settings
	remote   store.Backend // nil until connectivity attaches one

	local       store.Backend
	pending     *queue.Queue
	coordinator *syncer.Coordinator
	scheduler   srs.Service
	emitter     *events.Emitter
	logger      *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewManager wires the engine together. The local backend is the
// durable on-device store; the remote backend arrives later through
// SetRemoteBackend.
func NewManager(
	local store.Backend,
	pending *queue.Queue,
	coordinator *syncer.Coordinator,
	scheduler srs.Service,
	emitter *events.Emitter,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		tasks:       NewTaskStore(),
		settings:    domain.DefaultSettings(),
		local:       local,
		pending:     pending,
		coordinator: coordinator,
		scheduler:   scheduler,
		emitter:     emitter,
		logger:      logger.With("component", "schedule_manager"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Load reads settings and tasks from the local backend into memory.
//
// Load never fails: an unreachable backend or a malformed record leaves
// the task store empty and the settings at their defaults. Availability
// wins over completeness here - a retry loop at startup could block the
// caller indefinitely.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.local.Get(ctx, SettingsCollection, SettingsDocID)
	switch {
	case err == nil:
		settings, err := domain.SettingsFromRecord(rec)
		if err != nil {
			m.logger.Warn("stored settings unreadable, using defaults", "error", err)
		} else {
			m.settings = settings
		}
	case !store.IsNotFound(err):
		m.logger.Warn("failed to load settings, using defaults", "error", err)
	}

	records, err := m.local.List(ctx, TasksCollection)
	if err != nil {
		m.logger.Warn("failed to load tasks, starting empty", "error", err)
		return
	}

	loaded := make([]*domain.Task, 0, len(records))
	for _, kr := range records {
		task, err := domain.TaskFromRecord(kr.Record)
		if err != nil {
			m.logger.Warn("skipping malformed task record", "doc_id", kr.ID, "error", err)
			continue
		}
		loaded = append(loaded, task)
	}

	// The backend lists in key order; restore insertion order.
	sort.Slice(loaded, func(i, j int) bool {
		if loaded[i].CreatedAt.Equal(loaded[j].CreatedAt) {
			return loaded[i].Key() < loaded[j].Key()
		}
		return loaded[i].CreatedAt.Before(loaded[j].CreatedAt)
	})
	for _, task := range loaded {
		if err := m.tasks.Add(task); err != nil {
			m.logger.Warn("skipping duplicate task record", "doc_id", task.Key(), "error", err)
		}
	}

	m.logger.Info("schedule loaded",
		"tasks", m.tasks.Len(),
		"repetition_ceiling", m.settings.RepetitionCeiling)
}

// AddTask creates a new task. The task is observable in the task store
// before any persistence happens; the returned outcome says whether the
// write also reached the remote.
// Returns domain.ErrDuplicateTask when the description already exists.
func (m *Manager) AddTask(ctx context.Context, description string) (*domain.Task, WriteOutcome, error) {
	m.mu.Lock()

	task, err := domain.NewTask(description)
	if err != nil {
		m.mu.Unlock()
		return nil, WriteOutcome{}, err
	}
	if err := m.tasks.Add(task); err != nil {
		m.mu.Unlock()
		return nil, WriteOutcome{}, err
	}

	m.persistLocal(ctx, task)
	payload := task.Record()
	remote := m.remote
	change := m.changeLocked(events.ChangeTaskAdded, task)
	m.mu.Unlock()

	outcome := m.writeThrough(ctx, remote, domain.OperationCreate, TasksCollection, task.Key(), payload)
	m.emitter.Emit(change)
	return task, outcome, nil
}

// ApplyReview records a review result for a task, delegating the
// scheduling update to the interval scheduler. If the new repetition
// count reaches the configured ceiling the task is removed and a delete
// is written through or queued.
// Returns domain.ErrTaskNotFound or domain.ErrInvalidQuality on bad
// input; validation errors never touch state.
func (m *Manager) ApplyReview(ctx context.Context, description string, quality int) (*domain.Task, WriteOutcome, error) {
	m.mu.Lock()

	current, err := m.tasks.Get(description)
	if err != nil {
		m.mu.Unlock()
		return nil, WriteOutcome{}, err
	}

	updated, err := m.scheduler.Review(current, quality, m.now())
	if err != nil {
		m.mu.Unlock()
		return nil, WriteOutcome{}, err
	}

	if updated.Repetition >= m.settings.RepetitionCeiling {
		// Learned: the task leaves the schedule entirely.
		if _, err := m.tasks.Remove(description); err != nil {
			m.mu.Unlock()
			return nil, WriteOutcome{}, err
		}
		m.deleteLocal(ctx, updated.Key())
		remote := m.remote
		change := m.changeLocked(events.ChangeTaskRemoved, updated)
		m.mu.Unlock()

		outcome := m.writeThrough(ctx, remote, domain.OperationDelete, TasksCollection, updated.Key(), nil)
		m.emitter.Emit(change)
		return updated, outcome, nil
	}

	if err := m.tasks.Replace(updated); err != nil {
		m.mu.Unlock()
		return nil, WriteOutcome{}, err
	}
	m.persistLocal(ctx, updated)
	payload := updated.Record()
	remote := m.remote
	change := m.changeLocked(events.ChangeTaskUpdated, updated)
	m.mu.Unlock()

	outcome := m.writeThrough(ctx, remote, domain.OperationUpdate, TasksCollection, updated.Key(), payload)
	m.emitter.Emit(change)
	return updated, outcome, nil
}

// RemoveTask deletes a task explicitly.
// Returns domain.ErrTaskNotFound when absent.
func (m *Manager) RemoveTask(ctx context.Context, description string) (WriteOutcome, error) {
	m.mu.Lock()

	task, err := m.tasks.Remove(description)
	if err != nil {
		m.mu.Unlock()
		return WriteOutcome{}, err
	}

	m.deleteLocal(ctx, task.Key())
	remote := m.remote
	change := m.changeLocked(events.ChangeTaskRemoved, task)
	m.mu.Unlock()

	outcome := m.writeThrough(ctx, remote, domain.OperationDelete, TasksCollection, task.Key(), nil)
	m.emitter.Emit(change)
	return outcome, nil
}

// DueTasks returns every task due at the given time, in insertion order.
func (m *Manager) DueTasks(now time.Time) []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks.Due(now)
}

// Tasks returns every task in insertion order.
func (m *Manager) Tasks() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks.All()
}

// Settings returns the current scheduling settings.
func (m *Manager) Settings() domain.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// SetRepetitionCeiling changes the repetition ceiling and prunes every
// task that already reached it, queueing a delete for each.
// Returns domain.ErrInvalidCeiling for values below 1.
func (m *Manager) SetRepetitionCeiling(ctx context.Context, ceiling int) (WriteOutcome, error) {
	m.mu.Lock()

	settings := domain.Settings{RepetitionCeiling: ceiling}
	if err := settings.Validate(); err != nil {
		m.mu.Unlock()
		return WriteOutcome{}, err
	}
	m.settings = settings

	if err := m.local.Set(ctx, SettingsCollection, SettingsDocID, settings.Record()); err != nil {
		m.logger.Error("failed to persist settings locally", "error", err)
	}

	var removedKeys []string
	changes := []events.Change{}
	for _, task := range m.tasks.All() {
		if task.Repetition < ceiling {
			continue
		}
		removed, err := m.tasks.Remove(task.Description)
		if err != nil {
			continue
		}
		m.deleteLocal(ctx, removed.Key())
		removedKeys = append(removedKeys, removed.Key())
		changes = append(changes, m.changeLocked(events.ChangeTaskRemoved, removed))
	}
	changes = append(changes, m.changeLocked(events.ChangeSettingsUpdated, nil))
	remote := m.remote
	m.mu.Unlock()

	outcome := m.writeThrough(ctx, remote, domain.OperationUpdate, SettingsCollection, SettingsDocID, settings.Record())
	for _, key := range removedKeys {
		m.writeThrough(ctx, remote, domain.OperationDelete, TasksCollection, key, nil)
	}
	for _, change := range changes {
		m.emitter.Emit(change)
	}
	return outcome, nil
}

// SetRemoteBackend attaches the remote backend once the connectivity or
// auth layer reports it available, then drains any backlog.
func (m *Manager) SetRemoteBackend(ctx context.Context, remote store.Backend) (syncer.Result, error) {
	m.mu.Lock()
	m.remote = remote
	m.mu.Unlock()

	m.logger.Info("remote backend attached")
	return m.TriggerSync(ctx)
}

// TriggerSync drains the pending-operation queue against the attached
// remote backend. Safe to call from multiple goroutines; a drain already
// in progress turns the call into a no-op.
func (m *Manager) TriggerSync(ctx context.Context) (syncer.Result, error) {
	m.mu.Lock()
	remote := m.remote
	m.mu.Unlock()

	result, err := m.coordinator.Drain(ctx, remote)
	if err != nil {
		return result, err
	}
	if result.Applied > 0 {
		m.mu.Lock()
		change := m.changeLocked(events.ChangeSyncCompleted, nil)
		m.mu.Unlock()
		m.emitter.Emit(change)
	}
	return result, nil
}

// PendingOperations reports how many mutations await a successful drain.
func (m *Manager) PendingOperations(ctx context.Context) (int, error) {
	return m.pending.Len(ctx)
}

// Subscribe registers a change handler and returns its removal token.
func (m *Manager) Subscribe(handler events.Handler) uuid.UUID {
	return m.emitter.Subscribe(handler)
}

// Unsubscribe removes a change handler.
func (m *Manager) Unsubscribe(id uuid.UUID) {
	m.emitter.Unsubscribe(id)
}

// persistLocal writes a task to the local durable store. Local failures
// are logged, not propagated: the in-memory mutation stands either way.
func (m *Manager) persistLocal(ctx context.Context, task *domain.Task) {
	if err := m.local.Set(ctx, TasksCollection, task.Key(), task.Record()); err != nil {
		m.logger.Error("failed to persist task locally",
			"task", task.Key(),
			"error", err)
	}
}

// deleteLocal removes a task document from the local durable store.
func (m *Manager) deleteLocal(ctx context.Context, key string) {
	if err := m.local.Delete(ctx, TasksCollection, key); err != nil {
		m.logger.Error("failed to delete task locally",
			"task", key,
			"error", err)
	}
}

// writeThrough attempts the mutation against the given remote backend
// when one is attached and reachable. Any failure, or the absence of a
// usable remote, records the mutation in the pending-operation queue
// instead. The caller still observes success for the in-memory mutation;
// the returned outcome carries the durability distinction.
//
// Runs without m.mu held so a slow remote never blocks readers; the
// remote reference and payload are snapshotted by the caller under the
// lock. Per-document replay ordering for failed writes is the queue's
// job, not this one's.
func (m *Manager) writeThrough(ctx context.Context, remote store.Backend, kind domain.OperationKind, collection, docID string, payload store.Record) WriteOutcome {
	if remote != nil && remote.SupportsSync() {
		var err error
		switch kind {
		case domain.OperationDelete:
			err = remote.Delete(ctx, collection, docID)
		default:
			err = remote.Set(ctx, collection, docID, payload)
		}
		if err == nil {
			return WriteOutcome{Status: AppliedDurably}
		}
		m.logger.Warn("remote write failed, queueing operation",
			"kind", kind,
			"target", collection+"/"+docID,
			"error", err)
	}

	op, err := domain.NewSyncOperation(kind, collection, docID, payload)
	if err != nil {
		m.logger.Error("failed to build sync operation",
			"kind", kind,
			"target", collection+"/"+docID,
			"error", err)
		return WriteOutcome{Status: PendingSync}
	}
	if err := m.pending.Enqueue(ctx, op); err != nil {
		m.logger.Error("failed to enqueue sync operation",
			"op_id", op.ID,
			"error", err)
	}
	return WriteOutcome{Status: PendingSync}
}

// changeLocked builds a change snapshot. Callers must hold m.mu. The
// affected task is copied so a handler mutating the snapshot cannot
// reach the stored task.
func (m *Manager) changeLocked(kind events.ChangeKind, task *domain.Task) events.Change {
	var affected *domain.Task
	if task != nil {
		snapshot := *task
		affected = &snapshot
	}
	return events.Change{
		Kind:       kind,
		Task:       affected,
		Tasks:      m.tasks.All(),
		Settings:   m.settings,
		OccurredAt: m.now(),
	}
}
