package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// spanColumns is shared by every reader query against otel_spans_v so the
// scan order in scanSpan always matches the select list.
const spanColumns = `
	project_id, trace_id, span_id, parent_span_id,
	timestamp_start, timestamp_end, duration_ms, ingested_at,
	span_name, span_kind, span_category, observation_type, framework,
	status_code, environment, session_id, user_id,
	gen_ai_system, gen_ai_request_model, gen_ai_agent_name, finish_reasons,
	input_tokens, output_tokens, total_tokens, cache_read_tokens, cache_write_tokens, reasoning_tokens,
	input_cost, output_cost, cache_read_cost, cache_write_cost, reasoning_cost, total_cost,
	temperature, top_p, max_tokens,
	input_preview, output_preview, raw_span, metadata, tags
`

// GetSpan fetches one span by identity through the deduplicated view
// (spec §3.2). Returns apierr KindNotFound when absent.
func (s *Store) GetSpan(ctx context.Context, projectID, traceID, spanID string) (span.Span, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+spanColumns+` FROM otel_spans_v
		WHERE project_id = ? AND trace_id = ? AND span_id = ?`, projectID, traceID, spanID)
	sp, err := scanSpan(row)
	if err == sql.ErrNoRows {
		return span.Span{}, apierr.NotFound("span %s/%s/%s not found", projectID, traceID, spanID)
	}
	if err != nil {
		return span.Span{}, wrapQueryErr(err, "store: get span %s/%s/%s", projectID, traceID, spanID)
	}
	return sp, nil
}

// ListSpansForTrace returns every span in one trace ordered by start time,
// through the deduplicated view.
func (s *Store) ListSpansForTrace(ctx context.Context, projectID, traceID string, limit int) ([]span.Span, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+spanColumns+` FROM otel_spans_v
		WHERE project_id = ? AND trace_id = ?
		ORDER BY timestamp_start ASC
		LIMIT ?`, projectID, traceID, limit)
	if err != nil {
		return nil, wrapQueryErr(err, "store: list spans for trace %s/%s", projectID, traceID)
	}
	defer rows.Close()
	return scanSpans(rows)
}

// ListSpansForProject returns every span for a project through the view,
// used by query/dedup code paths that compute aggregates in Go rather than
// SQL (the pure-Go dedup.Attributable reference path).
func (s *Store) ListSpansForProject(ctx context.Context, projectID string, limit int) ([]span.Span, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+spanColumns+` FROM otel_spans_v
		WHERE project_id = ?
		ORDER BY ingested_at DESC, span_id DESC
		LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, wrapQueryErr(err, "store: list spans for project %s", projectID)
	}
	defer rows.Close()
	return scanSpans(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpans(rows *sql.Rows) ([]span.Span, error) {
	var out []span.Span
	for rows.Next() {
		sp, err := scanSpan(rows)
		if err != nil {
			return nil, wrapQueryErr(err, "store: scan span row")
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQueryErr(err, "store: iterate span rows")
	}
	return out, nil
}

func scanSpan(row rowScanner) (span.Span, error) {
	var sp span.Span
	var parentSpanID, framework, environment, sessionID, userID sql.NullString
	var genAISystem, genAIRequestModel, genAIAgentName sql.NullString
	var finishReasonsJSON string
	var timestampStartUS, ingestedAtUS int64
	var timestampEndUS sql.NullInt64
	var durationMS int64
	var observationType string
	var temperature, topP sql.NullFloat64
	var maxTokens sql.NullInt64
	var rawSpanJSON, metadataJSON, tagsJSON string

	err := row.Scan(
		&sp.ProjectID, &sp.TraceID, &sp.SpanID, &parentSpanID,
		&timestampStartUS, &timestampEndUS, &durationMS, &ingestedAtUS,
		&sp.SpanName, &sp.SpanKind, &sp.SpanCategory, &observationType, &framework,
		&sp.StatusCode, &environment, &sessionID, &userID,
		&genAISystem, &genAIRequestModel, &genAIAgentName, &finishReasonsJSON,
		&sp.InputTokens, &sp.OutputTokens, &sp.TotalTokens, &sp.CacheReadTokens, &sp.CacheWriteTokens, &sp.ReasoningTokens,
		&sp.InputCost, &sp.OutputCost, &sp.CacheReadCost, &sp.CacheWriteCost, &sp.ReasoningCost, &sp.TotalCost,
		&temperature, &topP, &maxTokens,
		&sp.InputPreview, &sp.OutputPreview, &rawSpanJSON, &metadataJSON, &tagsJSON,
	)
	if err != nil {
		return span.Span{}, err
	}

	sp.ParentSpanID = parentSpanID.String
	sp.Framework = framework.String
	sp.Environment = environment.String
	sp.SessionID = sessionID.String
	sp.UserID = userID.String
	sp.GenAISystem = genAISystem.String
	sp.GenAIRequestModel = genAIRequestModel.String
	sp.GenAIAgentName = genAIAgentName.String
	sp.ObservationType = span.ObservationType(observationType)
	sp.DurationMS = durationMS

	sp.TimestampStart = time.UnixMicro(timestampStartUS).UTC()
	if timestampEndUS.Valid {
		sp.TimestampEnd = time.UnixMicro(timestampEndUS.Int64).UTC()
	}
	sp.IngestedAt = time.UnixMicro(ingestedAtUS).UTC()

	if temperature.Valid {
		v := temperature.Float64
		sp.Temperature = &v
	}
	if topP.Valid {
		v := topP.Float64
		sp.TopP = &v
	}
	if maxTokens.Valid {
		v := maxTokens.Int64
		sp.MaxTokens = &v
	}

	_ = json.Unmarshal([]byte(finishReasonsJSON), &sp.FinishReasons)
	_ = json.Unmarshal([]byte(rawSpanJSON), &sp.RawSpan)
	_ = json.Unmarshal([]byte(metadataJSON), &sp.Metadata)
	_ = json.Unmarshal([]byte(tagsJSON), &sp.Tags)

	return sp, nil
}
