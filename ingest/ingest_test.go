package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/internal/config"
	"github.com/sideseat/sideseat/internal/logger"
	"github.com/sideseat/sideseat/sideml"
	"github.com/sideseat/sideseat/sideml/frameworks"
	"github.com/sideseat/sideseat/span"
)

func testPipeline() *Pipeline {
	return New(&config.Config{
		FilesMinSizeBytes:          1024,
		FilesMaxSizeBytes:          50 * 1024 * 1024,
		BackpressureRetryAfterSecs: 5,
		Logger:                     logger.Discard(),
	})
}

func baseRawSpan() RawSpan {
	start := time.Unix(1700000000, 0).UTC()
	return RawSpan{
		ProjectID:       "proj1",
		TraceID:         "trace1",
		SpanID:          "span1",
		SpanName:        "chat",
		ObservationType: span.ObservationGeneration,
		TimestampStart:  start,
		TimestampEnd:    start.Add(time.Second),
		Attrs:           map[string]any{},
	}
}

func TestBuild_RawIOFallbackPopulatesPreviews(t *testing.T) {
	raw := baseRawSpan()
	raw.Attrs["input.value"] = "what is the capital of France"
	raw.Attrs["output.value"] = "Paris"
	raw.Attrs["gen_ai.usage.input_tokens"] = float64(10)
	raw.Attrs["gen_ai.usage.output_tokens"] = float64(2)

	p := testPipeline()
	sp, files, err := p.Build(raw)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, "what is the capital of France", sp.InputPreview)
	assert.Equal(t, "Paris", sp.OutputPreview)
	assert.EqualValues(t, 10, sp.InputTokens)
	assert.EqualValues(t, 2, sp.OutputTokens)

	rawSpan, ok := sp.RawSpan["messages"]
	require.True(t, ok)
	assert.NotEmpty(t, rawSpan)
}

func TestBuild_StrandsEventRoleDerivedAtIngest(t *testing.T) {
	raw := baseRawSpan()
	raw.Events = []frameworks.Event{
		{Name: "gen_ai.choice", Attrs: map[string]any{"content": "calling tool", "tool.result": map[string]any{"output": "42"}}},
	}

	p := testPipeline()
	sp, _, err := p.Build(raw)
	require.NoError(t, err)

	messages, ok := sp.RawSpan["messages"].([]sideml.Message)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, sideml.RoleAssistant, messages[0].Role)
	assert.Equal(t, sideml.RoleTool, messages[1].Role)
}

func TestBuild_RejectsInvalidTimestampOrdering(t *testing.T) {
	raw := baseRawSpan()
	raw.TimestampEnd = raw.TimestampStart.Add(-time.Second)

	p := testPipeline()
	_, _, err := p.Build(raw)
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindValidation, apiErr.Kind)
}

type fakeWriter struct {
	written []span.Span
}

func (w *fakeWriter) Write(ctx context.Context, sp span.Span, now time.Time) error {
	w.written = append(w.written, sp)
	return nil
}

func TestIngest_WritesBuiltSpan(t *testing.T) {
	raw := baseRawSpan()
	raw.Attrs["input.value"] = "hi"

	p := testPipeline()
	w := &fakeWriter{}
	err := p.Ingest(context.Background(), w, raw, time.Now())
	require.NoError(t, err)
	require.Len(t, w.written, 1)
	assert.Equal(t, "trace1", w.written[0].TraceID)
}

func TestIngest_BackpressureWhenSaturated(t *testing.T) {
	p := testPipeline()
	for i := 0; i < maxConcurrentIngests; i++ {
		p.sem <- struct{}{}
	}
	w := &fakeWriter{}
	err := p.Ingest(context.Background(), w, baseRawSpan(), time.Now())
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBackpressure, apiErr.Kind)
	assert.Equal(t, 5, apiErr.RetryAfter)
}
