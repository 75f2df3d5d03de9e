// Package ingest wires together C1 (file extraction), C4 (framework
// extraction), C2/C3 (SideML normalization), and C5 (GenAI semantic
// extraction) into the single pipeline that turns one raw span — as
// decoded off OTLP by the otlpadapter package — into a persisted
// span.Span (spec §4, "Processing Pipeline").
package ingest

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/sideseat/sideseat/extract"
	"github.com/sideseat/sideseat/genai"
	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/internal/config"
	"github.com/sideseat/sideseat/internal/logger"
	"github.com/sideseat/sideseat/internal/telemetry"
	"github.com/sideseat/sideseat/sideml"
	"github.com/sideseat/sideseat/sideml/frameworks"
	"github.com/sideseat/sideseat/span"
)

// RawSpan is one span as decoded off the wire, before any of the
// processing chain has run. Attrs carries the flattened OTLP attribute map
// (already coerced to string/number/bool/array/object values); Events
// carries the span's OTLP events in order.
type RawSpan struct {
	ProjectID       string
	TraceID         string
	SpanID          string
	ParentSpanID    string
	SpanName        string
	SpanKind        string
	SpanCategory    string
	ObservationType span.ObservationType
	StatusCode      string
	Environment     string
	Framework       string // instrumentation-scope-derived hint, spec §4.4 "Detection"
	TimestampStart  time.Time
	TimestampEnd    time.Time
	Attrs           map[string]any
	Events          []frameworks.Event
}

// Pipeline runs C1->C4->C2/C3->C5 over a RawSpan and bounds how many
// ingests run concurrently, standing in for the production backpressure
// signal (spec §5, §7 KindBackpressure).
type Pipeline struct {
	limits         extract.Limits
	sem            chan struct{}
	retryAfterSecs int
	log            logger.Logger
}

// maxConcurrentIngests bounds the Pipeline's in-flight Build calls. A real
// deployment's backpressure comes from the downstream store/queue; this
// semaphore is a deliberately simple stand-in that exercises the same
// apierr.KindBackpressure path.
const maxConcurrentIngests = 64

// New builds a Pipeline from cfg.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		limits:         extract.Limits{MinBytes: cfg.FilesMinSizeBytes, MaxBytes: cfg.FilesMaxSizeBytes},
		sem:            make(chan struct{}, maxConcurrentIngests),
		retryAfterSecs: cfg.BackpressureRetryAfterSecs,
		log:            cfg.Logger,
	}
}

// Writer is the subset of *store.Store the pipeline needs, so tests can
// substitute a fake without spinning up a real database.
type Writer interface {
	Write(ctx context.Context, sp span.Span, now time.Time) error
}

// Ingest runs the full pipeline and persists the result via w. now is the
// server-observed ingest time stamped onto the span (spec §3.2).
func (p *Pipeline) Ingest(ctx context.Context, w Writer, raw RawSpan, now time.Time) error {
	ctx, otspan := otel.Tracer(telemetry.TracerName).Start(ctx, "ingest.Ingest",
		oteltrace.WithAttributes(
			attribute.String("sideseat.project_id", raw.ProjectID),
			attribute.String("sideseat.trace_id", raw.TraceID),
			attribute.String("sideseat.span_id", raw.SpanID),
		))
	defer otspan.End()

	select {
	case p.sem <- struct{}{}:
	default:
		err := apierr.Backpressure(p.retryAfterSecs, "ingest: pipeline saturated")
		otspan.SetStatus(codes.Error, err.Error())
		return err
	}
	defer func() { <-p.sem }()

	sp, files, err := p.Build(raw)
	if err != nil {
		otspan.SetStatus(codes.Error, err.Error())
		return err
	}
	if len(files) > 0 {
		otspan.SetAttributes(attribute.Int("sideseat.extracted_files", len(files)))
		p.log.Debug("ingest: extracted files", "count", len(files), "trace_id", raw.TraceID, "span_id", raw.SpanID)
	}
	if err := w.Write(ctx, sp, now); err != nil {
		otspan.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Build runs C1->C4->C2/C3->C5 over raw and returns the resulting span
// along with any files C1 pulled out of its attributes (callers are
// responsible for handing those to the external byte store; Build itself
// never writes bytes anywhere).
func (p *Pipeline) Build(raw RawSpan) (span.Span, []extract.ExtractedFile, error) {
	attrsAny, extractRes := extract.ExtractAndReplace(raw.Attrs, p.limits)
	attrs, ok := attrsAny.(map[string]any)
	if !ok {
		attrs = raw.Attrs
	}

	rawMessages, toolDefs, _ := frameworks.Extract(attrs, raw.Events, raw.SpanName, raw.TimestampStart)

	messages := make([]sideml.Message, 0, len(rawMessages))
	for _, rm := range rawMessages {
		messages = append(messages, sideml.NormalizeMessage(toMessageMap(rm)))
	}

	fields := genai.Extract(attrs)

	sp := span.Span{
		ProjectID:       raw.ProjectID,
		TraceID:         raw.TraceID,
		SpanID:          raw.SpanID,
		ParentSpanID:    raw.ParentSpanID,
		TimestampStart:  raw.TimestampStart,
		TimestampEnd:    raw.TimestampEnd,
		SpanName:        raw.SpanName,
		SpanKind:        raw.SpanKind,
		SpanCategory:    raw.SpanCategory,
		ObservationType: raw.ObservationType,
		Framework:       raw.Framework,
		StatusCode:      raw.StatusCode,
		Environment:     raw.Environment,
		SessionID:       fields.SessionID,
		UserID:          fields.UserID,

		GenAISystem:       fields.System,
		GenAIRequestModel: fields.RequestModel,
		GenAIAgentName:    fields.AgentName,
		FinishReasons:     fields.FinishReasons,
		Temperature:       fields.Temperature,
		TopP:              fields.TopP,
		MaxTokens:         fields.MaxTokens,
	}
	if !raw.TimestampEnd.IsZero() {
		sp.DurationMS = raw.TimestampEnd.Sub(raw.TimestampStart).Milliseconds()
	}
	assignTokensAndCosts(&sp, fields)

	sp.InputPreview, sp.OutputPreview = previewFromMessages(messages)
	sp.RawSpan = map[string]any{
		"attributes":       attrs,
		"messages":         messages,
		"tool_definitions": toolDefs,
	}
	sp.Metadata = map[string]any{}

	if err := sp.Validate(); err != nil {
		return span.Span{}, nil, apierr.Validation("ingest: %v", err)
	}
	return sp, extractRes.Files, nil
}

func assignTokensAndCosts(sp *span.Span, f genai.Fields) {
	if f.InputTokens != nil {
		sp.InputTokens = *f.InputTokens
	}
	if f.OutputTokens != nil {
		sp.OutputTokens = *f.OutputTokens
	}
	if f.TotalTokens != nil {
		sp.TotalTokens = *f.TotalTokens
	}
	if f.CacheReadTokens != nil {
		sp.CacheReadTokens = *f.CacheReadTokens
	}
	if f.CacheWriteTokens != nil {
		sp.CacheWriteTokens = *f.CacheWriteTokens
	}
	if f.ReasoningTokens != nil {
		sp.ReasoningTokens = *f.ReasoningTokens
	}
	if f.InputCost != nil {
		sp.InputCost = *f.InputCost
	}
	if f.OutputCost != nil {
		sp.OutputCost = *f.OutputCost
	}
	if f.CacheReadCost != nil {
		sp.CacheReadCost = *f.CacheReadCost
	}
	if f.CacheWriteCost != nil {
		sp.CacheWriteCost = *f.CacheWriteCost
	}
	if f.ReasoningCost != nil {
		sp.ReasoningCost = *f.ReasoningCost
	}
	if f.TotalCost != nil {
		sp.TotalCost = *f.TotalCost
	}
}
