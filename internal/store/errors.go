package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all backend implementations.
var (
	// ErrNotFound is returned when a requested document does not exist
	// in the backend.
	ErrNotFound = errors.New("document not found")

	// ErrBackendUnavailable is returned when a backend cannot be reached,
	// for example because the network is down or the remote rejected the
	// credentials. Writes that fail with this error are safe to retry.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrMalformedRecord is returned when a stored record cannot be
	// deserialized into its expected shape.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrClosed is returned when an operation is attempted against a
	// backend that has already been closed.
	ErrClosed = errors.New("backend closed")
)

// IsNotFound reports whether the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether the error indicates a transient backend
// failure that should be deferred to the pending-operation queue.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// BackendError carries additional context about a failed backend operation.
type BackendError struct {
	Backend    string // The backend kind (e.g., "badger", "remote")
	Operation  string // The operation that failed (e.g., "set", "list")
	Collection string // The target collection
	Err        error  // Original error
}

// Error implements the error interface for BackendError.
func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s on %q failed: %v", e.Backend, e.Operation, e.Collection, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError creates a new BackendError with the given context.
func NewBackendError(backend, operation, collection string, err error) *BackendError {
	return &BackendError{
		Backend:    backend,
		Operation:  operation,
		Collection: collection,
		Err:        err,
	}
}
