package domain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cogodo/spaced-sub003/internal/store"
)

// OperationKind identifies the kind of mutation a SyncOperation records.
type OperationKind string

// Valid operation kinds.
const (
	OperationCreate OperationKind = "create"
	OperationUpdate OperationKind = "update"
	OperationDelete OperationKind = "delete"
)

// IsValid reports whether the kind is one of the known operation kinds.
func (k OperationKind) IsValid() bool {
	switch k {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// SyncOperation is one entry in the durable pending-operation queue: a
// mutation that has not yet been confirmed against the remote backend.
//
// Operations are appended in causal order and must be replayed in that
// same order per target document, otherwise a replayed create could
// resurrect a document a later delete removed.
type SyncOperation struct {
	ID         string        `json:"id"`
	Kind       OperationKind `json:"kind"`
	Collection string        `json:"collection"`
	DocID      string        `json:"doc_id"`
	Payload    store.Record  `json:"payload,omitempty"` // nil for delete
	CreatedAt  time.Time     `json:"created_at"`
}

// opSequence disambiguates operations created within the same nanosecond,
// keeping IDs unique and lexically ordered within one process.
var opSequence atomic.Uint64

// NewSyncOperation creates a queued operation for the given mutation.
// Create and update operations require a payload; delete operations must
// not carry one.
func NewSyncOperation(kind OperationKind, collection, docID string, payload store.Record) (*SyncOperation, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperationKind, kind)
	}
	if kind == OperationDelete {
		payload = nil
	} else if payload == nil {
		return nil, fmt.Errorf("%w: %s %s/%s", ErrMissingPayload, kind, collection, docID)
	}

	now := time.Now().UTC()
	return &SyncOperation{
		ID:         newOperationID(now),
		Kind:       kind,
		Collection: collection,
		DocID:      docID,
		Payload:    store.Clone(payload),
		CreatedAt:  now,
	}, nil
}

// newOperationID derives a queue-unique, monotonically sortable ID from
// the creation timestamp plus a process-local sequence number.
func newOperationID(now time.Time) string {
	return fmt.Sprintf("%020d-%08d", now.UnixNano(), opSequence.Add(1))
}

// TargetKey identifies the document this operation mutates. The drain
// ordering invariant is enforced per target key.
func (op *SyncOperation) TargetKey() string {
	return op.Collection + "/" + op.DocID
}

// Record converts the operation into its persisted document form.
func (op *SyncOperation) Record() store.Record {
	rec := store.Record{
		"id":         op.ID,
		"kind":       string(op.Kind),
		"collection": op.Collection,
		"doc_id":     op.DocID,
		"created_at": op.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if op.Payload != nil {
		rec["payload"] = map[string]any(store.Clone(op.Payload))
	}
	return rec
}

// SyncOperationFromRecord reconstructs a SyncOperation from its persisted
// document form. Returns an error wrapping store.ErrMalformedRecord on
// missing or mistyped fields.
func SyncOperationFromRecord(rec store.Record) (*SyncOperation, error) {
	id, err := recordString(rec, "id")
	if err != nil {
		return nil, err
	}
	kindStr, err := recordString(rec, "kind")
	if err != nil {
		return nil, err
	}
	kind := OperationKind(kindStr)
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", store.ErrMalformedRecord, kindStr)
	}
	collection, err := recordString(rec, "collection")
	if err != nil {
		return nil, err
	}
	docID, err := recordString(rec, "doc_id")
	if err != nil {
		return nil, err
	}
	createdAt, err := recordTime(rec, "created_at")
	if err != nil {
		return nil, err
	}

	op := &SyncOperation{
		ID:         id,
		Kind:       kind,
		Collection: collection,
		DocID:      docID,
		CreatedAt:  createdAt,
	}

	if raw, ok := rec["payload"]; ok {
		payload, ok := raw.(map[string]any)
		if !ok {
			if typed, isRecord := raw.(store.Record); isRecord {
				payload = map[string]any(typed)
			} else {
				return nil, fmt.Errorf("%w: field \"payload\" is not an object", store.ErrMalformedRecord)
			}
		}
		op.Payload = store.Record(payload)
	}

	if op.Kind != OperationDelete && op.Payload == nil {
		return nil, fmt.Errorf("%w: %s operation without payload", store.ErrMalformedRecord, op.Kind)
	}

	return op, nil
}
