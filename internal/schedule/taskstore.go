package schedule

import (
	"fmt"
	"time"

	"github.com/cogodo/spaced-sub003/internal/domain"
)

// TaskStore is the in-memory ordered collection of tasks: the single
// source of truth for the current process. Iteration follows insertion
// order, which keeps due-task listings stable and predictable.
//
// TaskStore is not safe for concurrent use on its own; the Manager
// serializes access.
type TaskStore struct {
	order []string
	tasks map[string]*domain.Task
}

// NewTaskStore creates an empty task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[string]*domain.Task),
	}
}

// Add inserts a task. Returns domain.ErrDuplicateTask when a task with
// the same normalized description already exists.
func (s *TaskStore) Add(task *domain.Task) error {
	key := task.Key()
	if _, exists := s.tasks[key]; exists {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateTask, task.Description)
	}
	s.tasks[key] = task
	s.order = append(s.order, key)
	return nil
}

// Get returns the task with the given description, or
// domain.ErrTaskNotFound.
func (s *TaskStore) Get(description string) (*domain.Task, error) {
	task, ok := s.tasks[domain.NormalizeDescription(description)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrTaskNotFound, description)
	}
	return task, nil
}

// Replace swaps in an updated task that must already exist.
func (s *TaskStore) Replace(task *domain.Task) error {
	key := task.Key()
	if _, ok := s.tasks[key]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrTaskNotFound, task.Description)
	}
	s.tasks[key] = task
	return nil
}

// Remove deletes the task with the given description and returns it.
// Returns domain.ErrTaskNotFound when absent.
func (s *TaskStore) Remove(description string) (*domain.Task, error) {
	key := domain.NormalizeDescription(description)
	task, ok := s.tasks[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrTaskNotFound, description)
	}
	delete(s.tasks, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return task, nil
}

// Due returns copies of every task due at the given time, in insertion
// order. A task with no next-review timestamp is always due; otherwise
// the comparison happens at day granularity.
func (s *TaskStore) Due(now time.Time) []domain.Task {
	var due []domain.Task
	for _, key := range s.order {
		task := s.tasks[key]
		if task.IsDue(now) {
			due = append(due, *task)
		}
	}
	return due
}

// All returns copies of every task in insertion order.
func (s *TaskStore) All() []domain.Task {
	out := make([]domain.Task, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.tasks[key])
	}
	return out
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	return len(s.order)
}
