// Package store defines the storage backend contract shared by the local
// and remote persistence implementations, along with the common error
// values callers use to distinguish failure modes.
package store

import "context"

// Record is the unit of persistence: a flat JSON-compatible document.
// Values must be JSON-encodable (strings, numbers, booleans, nil, nested
// maps and slices of the same).
type Record map[string]any

// KeyedRecord pairs a document ID with its record, as returned by List.
type KeyedRecord struct {
	ID     string
	Record Record
}

// Backend is the capability contract every storage variant implements.
//
// The set of implementations is closed: the local BadgerDB store, the
// HTTP remote client, and the Postgres document store. All of them must
// honor the same write semantics:
//
//   - Set performs a merge write: fields present in the stored document
//     but absent from the new record survive. Re-applying an identical
//     Set is a no-op (idempotent).
//   - Update merges fields into an existing document and fails with
//     ErrNotFound if the document does not exist.
//   - Delete is idempotent: deleting a missing document is not an error.
//
// SupportsSync reports whether writes against this backend reach the
// durable store directly. The local backend always returns true (it is
// the durable source of truth for the device). A remote backend returns
// true only while it is reachable and authenticated; while it returns
// false, mutations must be recorded in the pending-operation queue
// instead of being written through.
type Backend interface {
	Get(ctx context.Context, collection, id string) (Record, error)
	Set(ctx context.Context, collection, id string, rec Record) error
	Update(ctx context.Context, collection, id string, fields Record) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]KeyedRecord, error)
	SupportsSync() bool
}

// Merge returns a copy of existing with the fields of incoming applied on
// top. Neither input is modified. A nil existing record behaves like an
// empty one, so Merge(nil, rec) clones rec.
func Merge(existing, incoming Record) Record {
	merged := make(Record, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		merged[k] = v
	}
	return merged
}

// Clone returns a shallow copy of the record. Nested values are shared.
func Clone(rec Record) Record {
	if rec == nil {
		return nil
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
