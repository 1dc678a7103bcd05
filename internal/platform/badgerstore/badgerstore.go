// Package badgerstore implements the local storage backend on top of
// BadgerDB, an embedded key/value store. It is the durable source of
// truth on the device: always available, no network involved, so
// SupportsSync reports true.
//
// Documents are stored as JSON under keys of the form
// "<collection>\x00<id>"; the NUL separator keeps collection prefixes
// from colliding.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/cogodo/spaced-sub003/internal/store"
)

const backendName = "badger"

// Config holds configuration for the local store.
type Config struct {
	// Path is the directory for BadgerDB files. Required unless InMemory
	// is set.
	Path string

	// InMemory enables in-memory mode with no disk persistence. Useful
	// for tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability. Leave off in
	// tests for speed.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. If nil, internal
	// logging is disabled.
	Logger *slog.Logger
}

// Store is the local backend. Safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ store.Backend = (*Store)(nil)

// Open creates and opens the local store with the given configuration.
// The caller must call Close when done.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Store{db: db, logger: logger.With("component", "badgerstore")}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SupportsSync implements store.Backend. The local store is itself the
// durable store for the device, so writes here need no further relay.
func (s *Store) SupportsSync() bool {
	return true
}

// Get implements store.Backend.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec store.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(collection, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return decodeRecord(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, store.NewBackendError(backendName, "get", collection, err)
	}
	return rec, nil
}

// Set implements store.Backend with merge semantics: fields already
// stored but absent from rec survive the write. Re-applying an identical
// Set leaves the document unchanged.
func (s *Store) Set(ctx context.Context, collection, id string, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		merged := rec
		item, err := txn.Get(key(collection, id))
		switch {
		case err == nil:
			var existing store.Record
			if err := item.Value(func(val []byte) error {
				return decodeRecord(val, &existing)
			}); err != nil {
				return err
			}
			merged = store.Merge(existing, rec)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		encoded, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		return txn.Set(key(collection, id), encoded)
	})
	if err != nil {
		return store.NewBackendError(backendName, "set", collection, err)
	}
	return nil
}

// Update implements store.Backend. It merges fields into an existing
// document and fails with store.ErrNotFound when the document is absent.
func (s *Store) Update(ctx context.Context, collection, id string, fields store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(collection, id))
		if err != nil {
			return err
		}
		var existing store.Record
		if err := item.Value(func(val []byte) error {
			return decodeRecord(val, &existing)
		}); err != nil {
			return err
		}

		encoded, err := json.Marshal(store.Merge(existing, fields))
		if err != nil {
			return err
		}
		return txn.Set(key(collection, id), encoded)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	if err != nil {
		return store.NewBackendError(backendName, "update", collection, err)
	}
	return nil
}

// Delete implements store.Backend. Deleting a missing document is a
// no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(collection, id))
	})
	if err != nil {
		return store.NewBackendError(backendName, "delete", collection, err)
	}
	return nil
}

// List implements store.Backend, returning every document in the
// collection in key order.
func (s *Store) List(ctx context.Context, collection string) ([]store.KeyedRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []store.KeyedRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		pfx := prefix(collection)
		opts.Prefix = pfx

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(pfx); it.ValidForPrefix(pfx); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(pfx):])

			var rec store.Record
			if err := item.Value(func(val []byte) error {
				return decodeRecord(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, store.KeyedRecord{ID: id, Record: rec})
		}
		return nil
	})
	if err != nil {
		return nil, store.NewBackendError(backendName, "list", collection, err)
	}
	return out, nil
}

func key(collection, id string) []byte {
	return append(prefix(collection), id...)
}

func prefix(collection string) []byte {
	return append([]byte(collection), 0x00)
}

func decodeRecord(val []byte, rec *store.Record) error {
	if err := json.Unmarshal(val, rec); err != nil {
		return fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
	}
	return nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
