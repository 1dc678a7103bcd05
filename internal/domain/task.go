package domain

import (
	"strings"
	"time"

	"github.com/cogodo/spaced-sub003/internal/store"
)

// DefaultEaseFactor is the ease factor assigned to a task that has never
// been reviewed. It matches the SM-2 starting value.
const DefaultEaseFactor = 2.5

// Task represents a single spaced-repetition study item together with its
// scheduling state. Tasks are identified by their description, which must
// be unique per user after trimming and case folding.
//
// Repetition only increases through a successful review application, and
// NextReview is always derived from the interval scheduler - callers never
// set it directly.
type Task struct {
	Description string     `json:"description"`
	Repetition  int        `json:"repetition"`
	Interval    int        `json:"interval"`
	EaseFactor  float64    `json:"ease_factor"`
	NextReview  *time.Time `json:"next_review,omitempty"` // nil = never reviewed, due immediately
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates a new Task with the given description. The description
// is trimmed but keeps its original casing for display; uniqueness is
// decided on the normalized form (see NormalizeDescription).
// Returns ErrEmptyDescription if the description is blank.
func NewTask(description string) (*Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	now := time.Now().UTC()
	return &Task{
		Description: description,
		Repetition:  0,
		Interval:    0,
		EaseFactor:  DefaultEaseFactor,
		NextReview:  nil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NormalizeDescription returns the canonical key form of a task
// description: trimmed and lowercased.
func NormalizeDescription(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

// Key returns the task's identity within the task collection.
func (t *Task) Key() string {
	return NormalizeDescription(t.Description)
}

// IsDue reports whether the task is due for review at the given time.
// A task with no recorded next review is always due. Comparison happens
// at day granularity: a task scheduled for any moment today is due today.
func (t *Task) IsDue(now time.Time) bool {
	if t.NextReview == nil {
		return true
	}
	return !StartOfDay(*t.NextReview).After(StartOfDay(now))
}

// StartOfDay truncates a time to UTC midnight.
func StartOfDay(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

// Record converts the task into its persisted document form.
func (t *Task) Record() store.Record {
	rec := store.Record{
		"description": t.Description,
		"repetition":  t.Repetition,
		"interval":    t.Interval,
		"ease_factor": t.EaseFactor,
		"created_at":  t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":  t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.NextReview != nil {
		rec["next_review"] = t.NextReview.UTC().Format(time.RFC3339Nano)
	}
	return rec
}

// TaskFromRecord reconstructs a Task from its persisted document form.
// Returns an error wrapping store.ErrMalformedRecord if required fields
// are missing or have the wrong type.
func TaskFromRecord(rec store.Record) (*Task, error) {
	description, err := recordString(rec, "description")
	if err != nil {
		return nil, err
	}
	repetition, err := recordInt(rec, "repetition")
	if err != nil {
		return nil, err
	}
	interval, err := recordInt(rec, "interval")
	if err != nil {
		return nil, err
	}
	easeFactor, err := recordFloat(rec, "ease_factor")
	if err != nil {
		return nil, err
	}
	createdAt, err := recordTime(rec, "created_at")
	if err != nil {
		return nil, err
	}
	updatedAt, err := recordTime(rec, "updated_at")
	if err != nil {
		return nil, err
	}

	task := &Task{
		Description: description,
		Repetition:  repetition,
		Interval:    interval,
		EaseFactor:  easeFactor,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}

	if _, ok := rec["next_review"]; ok {
		next, err := recordTime(rec, "next_review")
		if err != nil {
			return nil, err
		}
		task.NextReview = &next
	}

	return task, nil
}
