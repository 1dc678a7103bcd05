package srs

import (
	"errors"
	"fmt"
	"time"

	"github.com/cogodo/spaced-sub003/internal/domain"
)

// Common errors
var (
	ErrNilTask = errors.New("task cannot be nil")
)

// Service defines the interface for interval scheduling operations.
type Service interface {
	// Review computes the task's next scheduling state from a review
	// quality signal. It returns a new Task value and never mutates the
	// input (immutable-update pattern, required so a failed persistence
	// attempt cannot leave a half-updated task behind).
	Review(task *domain.Task, quality int, now time.Time) (*domain.Task, error)
}

// defaultService is the standard implementation of the Service interface.
type defaultService struct {
	params *Params
}

// NewDefaultService creates a scheduler service with default SM-2
// parameters.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a scheduler service with custom parameters.
func NewServiceWithParams(params *Params) Service {
	return &defaultService{params: params}
}

// Review implements the Service interface.
func (s *defaultService) Review(task *domain.Task, quality int, now time.Time) (*domain.Task, error) {
	if task == nil {
		return nil, ErrNilTask
	}
	if !s.params.ValidQuality(quality) {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]",
			domain.ErrInvalidQuality, quality, s.params.MinQuality, s.params.MaxQuality)
	}

	result := review(task.Repetition, task.Interval, task.EaseFactor, quality, now, s.params)

	updated := *task
	updated.Repetition = result.Repetition
	updated.Interval = result.Interval
	updated.EaseFactor = result.EaseFactor
	next := result.NextReview
	updated.NextReview = &next
	updated.UpdatedAt = now.UTC()

	return &updated, nil
}
