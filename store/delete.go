package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// deleteBatchSize bounds how many values go into a single IN(...) clause,
// keeping each statement well under sqlite's default parameter limit.
const deleteBatchSize = 500

// DeleteTraces removes every span belonging to the given trace_ids within
// projectID, batched and wrapped in a single transaction (spec §4.8
// "Deletion": "batched, tuple-IN delete within a transaction").
func (s *Store) DeleteTraces(ctx context.Context, projectID string, traceIDs []string) error {
	if len(traceIDs) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, batch := range chunkStrings(traceIDs, deleteBatchSize) {
			if err := deleteWhereIn(ctx, tx, "trace_id", projectID, batch); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSpans removes exactly the named (trace_id, span_id) pairs within
// projectID — the tuple-IN form of the deletion contract, used when a
// caller targets individual spans rather than whole traces.
func (s *Store) DeleteSpans(ctx context.Context, projectID string, keys []span.Key) error {
	if len(keys) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, batch := range chunkKeys(keys, deleteBatchSize) {
			if err := deleteSpanTuples(ctx, tx, projectID, batch); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteProject removes every span for projectID across all traces.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM otel_spans WHERE project_id = ?`, projectID); err != nil {
			return apierr.Storage(err, "store: delete project %s", projectID)
		}
		return nil
	})
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apierr.Storage(err, "store: begin delete transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apierr.Storage(err, "store: commit delete transaction")
	}
	return nil
}

func deleteWhereIn(ctx context.Context, tx *sql.Tx, column, projectID string, values []string) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, 0, len(values)+1)
	args = append(args, projectID)
	for _, v := range values {
		args = append(args, v)
	}
	query := `DELETE FROM otel_spans WHERE project_id = ? AND ` + column + ` IN (` + placeholders + `)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apierr.Storage(err, "store: delete by %s", column)
	}
	return nil
}

func deleteSpanTuples(ctx context.Context, tx *sql.Tx, projectID string, keys []span.Key) error {
	clause := strings.TrimSuffix(strings.Repeat("(trace_id = ? AND span_id = ?) OR ", len(keys)), " OR ")
	args := make([]any, 0, len(keys)*2+1)
	args = append(args, projectID)
	for _, k := range keys {
		args = append(args, k.TraceID, k.SpanID)
	}
	query := `DELETE FROM otel_spans WHERE project_id = ? AND (` + clause + `)`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apierr.Storage(err, "store: delete spans by tuple")
	}
	return nil
}

func chunkStrings(items []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

func chunkKeys(items []span.Key, size int) [][]span.Key {
	var out [][]span.Key
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
