package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat/span"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSpan() span.Span {
	start := time.Unix(1700000000, 0).UTC()
	return span.Span{
		ProjectID: "proj1", TraceID: "trace1", SpanID: "span1",
		TimestampStart:  start,
		TimestampEnd:    start.Add(2 * time.Second),
		DurationMS:      2000,
		SpanName:        "chat_completion",
		ObservationType: span.ObservationGeneration,
		InputTokens:     100, OutputTokens: 50, TotalTokens: 150,
		TotalCost: 0.01,
		RawSpan:   map[string]any{"k": "v"},
		Metadata:  map[string]any{},
		Tags:      []string{"tag1"},
	}
}

func TestWriteAndGetSpan_Roundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sp := sampleSpan()

	require.NoError(t, s.Write(ctx, sp, time.Unix(1700000001, 0)))

	got, err := s.GetSpan(ctx, "proj1", "trace1", "span1")
	require.NoError(t, err)
	require.Equal(t, sp.SpanName, got.SpanName)
	require.Equal(t, sp.InputTokens, got.InputTokens)
	require.Equal(t, "v", got.RawSpan["k"])
	require.Equal(t, []string{"tag1"}, got.Tags)
}

func TestGetSpan_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSpan(context.Background(), "proj1", "missing", "missing")
	require.Error(t, err)
}

// I1 / P3: re-ingesting the same (project_id, trace_id, span_id) with a
// later ingested_at is idempotent — the view returns exactly one row, the
// latest.
func TestWrite_DuplicateIngestResolvesToLatestViaView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleSpan()
	first.SpanName = "partial"
	require.NoError(t, s.Write(ctx, first, time.Unix(1700000001, 0)))

	second := sampleSpan()
	second.SpanName = "complete"
	require.NoError(t, s.Write(ctx, second, time.Unix(1700000005, 0)))

	got, err := s.GetSpan(ctx, "proj1", "trace1", "span1")
	require.NoError(t, err)
	require.Equal(t, "complete", got.SpanName)

	all, err := s.ListSpansForTrace(ctx, "proj1", "trace1", 100)
	require.NoError(t, err)
	require.Len(t, all, 1, "spans_v must return exactly one row per (project_id, trace_id, span_id)")
}

func TestListSpansForTrace_OrdersByStartTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := sampleSpan()
	base.SpanID = "span_a"
	base.TimestampStart = time.Unix(1700000010, 0).UTC()
	require.NoError(t, s.Write(ctx, base, time.Unix(1700000011, 0)))

	earlier := sampleSpan()
	earlier.SpanID = "span_b"
	earlier.TimestampStart = time.Unix(1700000000, 0).UTC()
	require.NoError(t, s.Write(ctx, earlier, time.Unix(1700000001, 0)))

	spans, err := s.ListSpansForTrace(ctx, "proj1", "trace1", 100)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	require.Equal(t, "span_b", spans[0].SpanID)
	require.Equal(t, "span_a", spans[1].SpanID)
}

func TestWrite_RejectsInvalidSpan(t *testing.T) {
	s := newTestStore(t)
	sp := sampleSpan()
	sp.SpanID = ""
	err := s.Write(context.Background(), sp, time.Now())
	require.Error(t, err)
}
