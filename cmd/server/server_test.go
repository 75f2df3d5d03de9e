package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/protobuf/encoding/protojson"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/sideseat/sideseat/ingest"
	"github.com/sideseat/sideseat/internal/config"
	"github.com/sideseat/sideseat/internal/logger"
	"github.com/sideseat/sideseat/span"
	"github.com/sideseat/sideseat/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared", logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		FilesMinSizeBytes:          1024,
		FilesMaxSizeBytes:          50 * 1024 * 1024,
		BackpressureRetryAfterSecs: 5,
		QueryMaxSpansPerTrace:      10000,
		QueryMaxFilterSuggestions:  200,
		QueryMaxTopStats:           25,
		Logger:                     logger.Discard(),
	}

	return New(ServerConfig{}, cfg, st, ingest.New(cfg), nil)
}

func seedSpan(t *testing.T, s *Server, sp span.Span) {
	t.Helper()
	require.NoError(t, s.store.Write(context.Background(), sp, time.Now().UTC()))
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
		RawSpan:  map[string]any{},
		Metadata: map[string]any{},
	}
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleListTraces_EmptyProjectReturnsEmptyPage(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/projects/proj1/traces", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body pageDTO[traceDTO]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.TotalCount)
}

func TestHandleListTraces_ReturnsSeededTrace(t *testing.T) {
	s := testServer(t)
	seedSpan(t, s, sampleSpan())

	req := httptest.NewRequest(http.MethodGet, "/projects/proj1/traces", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body pageDTO[traceDTO]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "trace1", body.Items[0].TraceID)
	assert.Equal(t, int64(150), body.Items[0].Totals.TotalTokens)
}

func TestHandleGetTrace_UnknownTraceIsNotFound(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/projects/proj1/traces/missing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats_EmptyProjectRespondsOK(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/projects/proj1/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleFilterOptions_MissingColumnsIsBadRequest(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/projects/proj1/filter-options", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteTraces_RemovesSeededTrace(t *testing.T) {
	s := testServer(t)
	seedSpan(t, s, sampleSpan())

	body, _ := json.Marshal(idsRequest{IDs: []string{"trace1"}})
	req := httptest.NewRequest(http.MethodDelete, "/projects/proj1/traces", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	spans, err := s.store.ListSpansForProject(context.Background(), "proj1", 100)
	require.NoError(t, err)
	assert.Empty(t, spans)
}

func sampleTraceRequest() *coltracepb.ExportTraceServiceRequest {
	return &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{},
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Scope: &commonpb.InstrumentationScope{Name: "openinference.instrumentation.openai"},
						Spans: []*tracepb.Span{
							{
								TraceId:           bytes.Repeat([]byte{0xAB}, 16),
								SpanId:            bytes.Repeat([]byte{0xCD}, 8),
								Name:              "chat",
								StartTimeUnixNano: 1700000000000000000,
								EndTimeUnixNano:   1700000001000000000,
								Attributes: []*commonpb.KeyValue{
									{Key: "openinference.span.kind", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "LLM"}}},
								},
								Status: &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK},
							},
						},
					},
				},
			},
		},
	}
}

func TestHandleOTLPTraces_IngestsAndPersistsSpan(t *testing.T) {
	s := testServer(t)

	payload, err := protojson.Marshal(sampleTraceRequest())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/otlp/proj1/traces", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	spans, err := s.store.ListSpansForProject(context.Background(), "proj1", 100)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, span.ObservationGeneration, spans[0].ObservationType)
}

func TestHandleOTLPTraces_MalformedBodyIsBadRequest(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/otlp/proj1/traces", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
