package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// Write persists one normalized span (C6 contract). It never UPDATEs: every
// call is an INSERT stamped with the server-observed ingested_at, and
// `otel_spans_v` resolves duplicate `(project_id, trace_id, span_id)` rows
// by picking the one with the max `ingested_at` (spec §3.2, I1). now is
// injected so tests get a deterministic clock rather than calling
// time.Now() inline.
func (s *Store) Write(ctx context.Context, sp span.Span, now time.Time) error {
	if err := sp.Validate(); err != nil {
		return apierr.Validation("store: invalid span: %v", err)
	}

	rawSpan, err := json.Marshal(sp.RawSpan)
	if err != nil {
		return apierr.Validation("store: marshal raw_span: %v", err)
	}
	metadata, err := json.Marshal(sp.Metadata)
	if err != nil {
		return apierr.Validation("store: marshal metadata: %v", err)
	}
	tags, err := json.Marshal(sp.Tags)
	if err != nil {
		return apierr.Validation("store: marshal tags: %v", err)
	}
	finishReasons, err := json.Marshal(sp.FinishReasons)
	if err != nil {
		return apierr.Validation("store: marshal finish_reasons: %v", err)
	}

	var timestampEnd any
	if !sp.TimestampEnd.IsZero() {
		timestampEnd = sp.TimestampEnd.UnixMicro()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO otel_spans (
			project_id, trace_id, span_id, parent_span_id,
			timestamp_start, timestamp_end, duration_ms, ingested_at,
			span_name, span_kind, span_category, observation_type, framework,
			status_code, environment, session_id, user_id,
			gen_ai_system, gen_ai_request_model, gen_ai_agent_name, finish_reasons,
			input_tokens, output_tokens, total_tokens, cache_read_tokens, cache_write_tokens, reasoning_tokens,
			input_cost, output_cost, cache_read_cost, cache_write_cost, reasoning_cost, total_cost,
			temperature, top_p, max_tokens,
			input_preview, output_preview, raw_span, metadata, tags
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?, ?
		)`,
		sp.ProjectID, sp.TraceID, sp.SpanID, nullableString(sp.ParentSpanID),
		sp.TimestampStart.UnixMicro(), timestampEnd, sp.DurationMS, now.UnixMicro(),
		sp.SpanName, sp.SpanKind, sp.SpanCategory, string(sp.ObservationType), nullableString(sp.Framework),
		sp.StatusCode, nullableString(sp.Environment), nullableString(sp.SessionID), nullableString(sp.UserID),
		nullableString(sp.GenAISystem), nullableString(sp.GenAIRequestModel), nullableString(sp.GenAIAgentName), string(finishReasons),
		sp.InputTokens, sp.OutputTokens, sp.TotalTokens, sp.CacheReadTokens, sp.CacheWriteTokens, sp.ReasoningTokens,
		sp.InputCost, sp.OutputCost, sp.CacheReadCost, sp.CacheWriteCost, sp.ReasoningCost, sp.TotalCost,
		nullableFloat(sp.Temperature), nullableFloat(sp.TopP), nullableInt(sp.MaxTokens),
		sp.InputPreview, sp.OutputPreview, string(rawSpan), string(metadata), string(tags),
	)
	if err != nil {
		return wrapQueryErr(err, "store: insert span %s/%s/%s", sp.ProjectID, sp.TraceID, sp.SpanID)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
