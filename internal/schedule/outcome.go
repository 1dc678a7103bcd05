package schedule

// WriteStatus tags a mutation result with how far it reached. The
// in-memory state is always updated; the status says whether the write
// also reached the durable remote or is waiting in the pending queue.
type WriteStatus int

const (
	// AppliedDurably: the mutation was written through to the remote
	// backend.
	AppliedDurably WriteStatus = iota
	// PendingSync: the mutation was applied locally and recorded in the
	// pending-operation queue for a later drain.
	PendingSync
)

// String implements fmt.Stringer.
func (s WriteStatus) String() string {
	switch s {
	case AppliedDurably:
		return "applied_durably"
	case PendingSync:
		return "pending_sync"
	default:
		return "unknown"
	}
}

// WriteOutcome is returned by every mutation so callers that need
// durability guarantees can distinguish a confirmed remote write from an
// optimistic local one.
type WriteOutcome struct {
	Status WriteStatus
}
