// Package store implements C6, the Span Writer: it persists normalized
// spans into the columnar store and reads them back through the
// deduplicated view (spec §3.2, §4.6). DuckDB is the production engine
// (external collaborator, spec §1); this package's Store also serves as a
// runnable reference engine over sqlite for tests via database/sql.
package store

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/internal/logger"
)

// Store wraps a SQL connection to the reference engine.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// Open connects to dsn (an sqlite DSN, e.g. "file::memory:?cache=shared")
// and applies the schema.
func Open(ctx context.Context, dsn string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apierr.Storage(err, "store: open %s", dsn)
	}
	// The reference engine is exercised by concurrent ingest tests; sqlite
	// serializes writers regardless, so cap the pool rather than let
	// "database is locked" surface as a flaky storage error.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return apierr.Storage(err, "store: migrate schema")
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for ad-hoc SQL against otel_spans_v.
// The query and dedup packages do not use it; they work in Go over spans
// returned by the read methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

func wrapQueryErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return apierr.Storage(err, format, args...)
}
