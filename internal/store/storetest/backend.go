// Package storetest provides an in-memory fake backend with failure
// injection for tests that exercise optimistic persistence and queue
// replay without a real store.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/cogodo/spaced-sub003/internal/store"
)

// Backend is an in-memory store.Backend. Safe for concurrent use.
//
// Failures are injected per target: Fail("tasks/card", err) makes every
// write against that document return err until the injection is cleared.
// Applied records the order of successful writes for ordering
// assertions.
type Backend struct {
	mu           sync.Mutex
	docs         map[string]map[string]store.Record
	supportsSync bool
	failures     map[string]error

	// Applied logs successful writes as "set <collection>/<id>" or
	// "delete <collection>/<id>", in order.
	Applied []string

	// Gate, when non-nil, is received from at the start of every Set so
	// tests can hold a drain mid-flight.
	Gate chan struct{}
}

var _ store.Backend = (*Backend)(nil)

// New creates an empty fake backend that reports SupportsSync true.
func New() *Backend {
	return &Backend{
		docs:         make(map[string]map[string]store.Record),
		supportsSync: true,
		failures:     make(map[string]error),
	}
}

// SetSupportsSync overrides the sync capability flag.
func (b *Backend) SetSupportsSync(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supportsSync = v
}

// Fail injects an error for every write against collection/id. A nil
// error clears the injection.
func (b *Backend) Fail(collection, id string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, collection+"/"+id)
		return
	}
	b.failures[collection+"/"+id] = err
}

// Stored returns the stored record for collection/id, or nil.
func (b *Backend) Stored(collection, id string) store.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return store.Clone(b.docs[collection][id])
}

func (b *Backend) SupportsSync() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supportsSync
}

func (b *Backend) Get(ctx context.Context, collection, id string) (store.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.docs[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.Clone(rec), nil
}

func (b *Backend) Set(ctx context.Context, collection, id string, rec store.Record) error {
	if b.Gate != nil {
		<-b.Gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures[collection+"/"+id]; err != nil {
		return err
	}
	if b.docs[collection] == nil {
		b.docs[collection] = make(map[string]store.Record)
	}
	b.docs[collection][id] = store.Merge(b.docs[collection][id], rec)
	b.Applied = append(b.Applied, "set "+collection+"/"+id)
	return nil
}

func (b *Backend) Update(ctx context.Context, collection, id string, fields store.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures[collection+"/"+id]; err != nil {
		return err
	}
	existing, ok := b.docs[collection][id]
	if !ok {
		return store.ErrNotFound
	}
	b.docs[collection][id] = store.Merge(existing, fields)
	b.Applied = append(b.Applied, "update "+collection+"/"+id)
	return nil
}

func (b *Backend) Delete(ctx context.Context, collection, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failures[collection+"/"+id]; err != nil {
		return err
	}
	delete(b.docs[collection], id)
	b.Applied = append(b.Applied, "delete "+collection+"/"+id)
	return nil
}

func (b *Backend) List(ctx context.Context, collection string) ([]store.KeyedRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.docs[collection]))
	for id := range b.docs[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]store.KeyedRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, store.KeyedRecord{ID: id, Record: store.Clone(b.docs[collection][id])})
	}
	return out, nil
}
