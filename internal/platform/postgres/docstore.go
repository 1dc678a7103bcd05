// Package postgres implements the storage backend contract on a
// PostgreSQL document table, for deployments that sync against a
// self-hosted database instead of the HTTP document server.
//
// Documents live in a single table keyed by (collection, doc_id) with a
// JSONB body. Merge writes use the JSONB concatenation operator, which
// makes re-applying an identical write a no-op.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register the pgx database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/cogodo/spaced-sub003/internal/store"
)

const backendName = "postgres"

//go:embed migrations/*.sql
var migrations embed.FS

// DocStore is the Postgres-backed remote document store. Safe for
// concurrent use.
type DocStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Backend = (*DocStore)(nil)

// Open connects to the database and runs any pending migrations.
// The caller must call Close when done.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*DocStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrBackendUnavailable, err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &DocStore{db: db, logger: logger.With("component", "postgres_backend")}, nil
}

// Close closes the database pool.
func (s *DocStore) Close() error {
	return s.db.Close()
}

// SupportsSync implements store.Backend with a short liveness probe.
func (s *DocStore) SupportsSync() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

// Get implements store.Backend.
func (s *DocStore) Get(ctx context.Context, collection, id string) (store.Record, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, s.wrap("get", collection, err)
	}

	var rec store.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
	}
	return rec, nil
}

// Set implements store.Backend. The upsert merges the new body over the
// stored one, so partial records never clobber fields they do not carry.
func (s *DocStore) Set(ctx context.Context, collection, id string, rec store.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return s.wrap("set", collection, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_id, body, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET body = documents.body || EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, collection, id, body, time.Now().UTC())
	if err != nil {
		return s.wrap("set", collection, err)
	}
	return nil
}

// Update implements store.Backend.
func (s *DocStore) Update(ctx context.Context, collection, id string, fields store.Record) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return s.wrap("update", collection, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET body = body || $3, updated_at = $4
		WHERE collection = $1 AND doc_id = $2
	`, collection, id, body, time.Now().UTC())
	if err != nil {
		return s.wrap("update", collection, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return s.wrap("update", collection, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", store.ErrNotFound, collection, id)
	}
	return nil
}

// Delete implements store.Backend. Deleting a missing document is a
// no-op.
func (s *DocStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	)
	if err != nil {
		return s.wrap("delete", collection, err)
	}
	return nil
}

// List implements store.Backend.
func (s *DocStore) List(ctx context.Context, collection string) ([]store.KeyedRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, body FROM documents WHERE collection = $1 ORDER BY doc_id`,
		collection,
	)
	if err != nil {
		return nil, s.wrap("list", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.KeyedRecord
	for rows.Next() {
		var (
			id   string
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, s.wrap("list", collection, err)
		}
		var rec store.Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrMalformedRecord, err)
		}
		out = append(out, store.KeyedRecord{ID: id, Record: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list", collection, err)
	}
	return out, nil
}

// wrap classifies database failures as transient so callers defer them
// to the pending-operation queue.
func (s *DocStore) wrap(operation, collection string, err error) error {
	s.logger.Warn("postgres operation failed",
		"operation", operation,
		"collection", collection,
		"error", err)
	return store.NewBackendError(backendName, operation, collection,
		fmt.Errorf("%w: %v", store.ErrBackendUnavailable, err))
}
