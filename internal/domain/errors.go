// Package domain defines the core scheduling entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrDuplicateTask is returned when adding a task whose description
	// already exists (case-insensitive, trimmed).
	ErrDuplicateTask = errors.New("task already exists")

	// ErrTaskNotFound is returned when reviewing or removing a task that
	// does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidQuality is returned when a review quality signal is
	// outside the accepted range. Out-of-range input is rejected, never
	// clamped into a valid scheduling state.
	ErrInvalidQuality = errors.New("invalid review quality")

	// ErrEmptyDescription is returned when a task description is empty
	// after trimming.
	ErrEmptyDescription = errors.New("task description cannot be empty")

	// ErrInvalidOperationKind is returned when a sync operation carries an
	// unknown kind.
	ErrInvalidOperationKind = errors.New("invalid sync operation kind")

	// ErrMissingPayload is returned when a create or update operation is
	// constructed without a payload.
	ErrMissingPayload = errors.New("operation payload required")

	// ErrInvalidCeiling is returned when the repetition ceiling setting is
	// not a positive integer.
	ErrInvalidCeiling = errors.New("repetition ceiling must be at least 1")
)
