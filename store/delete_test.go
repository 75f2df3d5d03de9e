package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat/span"
)

func TestDeleteTraces_RemovesAllSpansInTrace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleSpan()
	a.TraceID, a.SpanID = "trace1", "span1"
	require.NoError(t, s.Write(ctx, a, time.Unix(1700000001, 0)))

	b := sampleSpan()
	b.TraceID, b.SpanID = "trace1", "span2"
	require.NoError(t, s.Write(ctx, b, time.Unix(1700000002, 0)))

	other := sampleSpan()
	other.TraceID, other.SpanID = "trace2", "span1"
	require.NoError(t, s.Write(ctx, other, time.Unix(1700000003, 0)))

	require.NoError(t, s.DeleteTraces(ctx, "proj1", []string{"trace1"}))

	remaining, err := s.ListSpansForTrace(ctx, "proj1", "trace1", 100)
	require.NoError(t, err)
	require.Empty(t, remaining)

	kept, err := s.ListSpansForTrace(ctx, "proj1", "trace2", 100)
	require.NoError(t, err)
	require.Len(t, kept, 1)
}

func TestDeleteSpans_RemovesOnlyNamedTuples(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleSpan()
	a.TraceID, a.SpanID = "trace1", "span1"
	require.NoError(t, s.Write(ctx, a, time.Unix(1700000001, 0)))

	b := sampleSpan()
	b.TraceID, b.SpanID = "trace1", "span2"
	require.NoError(t, s.Write(ctx, b, time.Unix(1700000002, 0)))

	require.NoError(t, s.DeleteSpans(ctx, "proj1", []span.Key{{ProjectID: "proj1", TraceID: "trace1", SpanID: "span1"}}))

	remaining, err := s.ListSpansForTrace(ctx, "proj1", "trace1", 100)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "span2", remaining[0].SpanID)
}

func TestDeleteProject_RemovesEverySpan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleSpan()
	require.NoError(t, s.Write(ctx, a, time.Unix(1700000001, 0)))

	require.NoError(t, s.DeleteProject(ctx, "proj1"))

	remaining, err := s.ListSpansForProject(ctx, "proj1", 100)
	require.NoError(t, err)
	require.Empty(t, remaining)
}

func TestDeleteTraces_EmptyListIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.DeleteTraces(context.Background(), "proj1", nil))
}
