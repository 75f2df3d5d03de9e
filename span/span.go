// Package span defines the persisted span data model (spec §3.1) and its
// structural invariants.
package span

import (
	"fmt"
	"time"
)

// ObservationType classifies what kind of operation a span represents.
type ObservationType string

const (
	ObservationSpan       ObservationType = "span"
	ObservationGeneration ObservationType = "generation"
	ObservationAgent      ObservationType = "agent"
	ObservationTool       ObservationType = "tool"
	ObservationChain      ObservationType = "chain"
	ObservationRetriever  ObservationType = "retriever"
	ObservationEmbedding  ObservationType = "embedding"
	ObservationReranker   ObservationType = "reranker"
)

// Span is the unit of ingest and query (spec §3.1). Identity is the tuple
// (ProjectID, TraceID, SpanID).
type Span struct {
	// Identity
	ProjectID string
	TraceID   string
	SpanID    string

	// Tree
	ParentSpanID string // "" when root

	// Time
	TimestampStart time.Time
	TimestampEnd   time.Time // zero value when unset
	DurationMS     int64
	IngestedAt     time.Time

	// Identity/classification
	SpanName        string
	SpanKind        string
	SpanCategory    string
	ObservationType ObservationType
	Framework       string
	StatusCode      string
	Environment     string
	SessionID       string
	UserID          string

	// GenAI
	GenAISystem        string
	GenAIRequestModel  string
	GenAIAgentName     string
	FinishReasons      []string
	InputTokens        int64
	OutputTokens       int64
	TotalTokens        int64
	CacheReadTokens    int64
	CacheWriteTokens   int64
	ReasoningTokens    int64
	InputCost          float64
	OutputCost         float64
	CacheReadCost      float64
	CacheWriteCost     float64
	ReasoningCost      float64
	TotalCost          float64
	Temperature        *float64
	TopP               *float64
	MaxTokens          *int64

	// Content
	InputPreview  string
	OutputPreview string
	RawSpan       map[string]any
	Metadata      map[string]any
	Tags          []string
}

// HasGenAI reports whether this span carries any GenAI semantic data,
// distinguishing generation-bearing spans from plain orchestration/tool
// spans.
func (s Span) HasGenAI() bool {
	return s.GenAISystem != "" || s.GenAIRequestModel != "" || s.InputTokens > 0 || s.OutputTokens > 0 || s.TotalTokens > 0
}

// IsGenerationLeaf reports whether this span is the C7 dedup engine's
// generation-leaf attribution unit (spec §4.7 Path 1): an observation of
// type "generation" that itself carries token counts.
func (s Span) IsGenerationLeaf() bool {
	return s.ObservationType == ObservationGeneration && (s.InputTokens > 0 || s.OutputTokens > 0 || s.TotalTokens > 0)
}

// Validate checks the structural invariants of spec §3.1:
// I1 identity is non-empty, I2 timestamp ordering, I3 non-negative
// token/cost counters. I4 (session_id only on root-like spans) is not
// checked here, and neither ingest nor store.Write checks it: SessionID is
// stored as extracted, on any span.
func (s Span) Validate() error {
	if s.ProjectID == "" || s.TraceID == "" || s.SpanID == "" {
		return fmt.Errorf("span: identity (project_id, trace_id, span_id) must be non-empty")
	}
	if !s.TimestampEnd.IsZero() && s.TimestampEnd.Before(s.TimestampStart) {
		return fmt.Errorf("span: timestamp_end %s is before timestamp_start %s", s.TimestampEnd, s.TimestampStart)
	}
	for name, v := range map[string]int64{
		"input_tokens": s.InputTokens, "output_tokens": s.OutputTokens, "total_tokens": s.TotalTokens,
		"cache_read_tokens": s.CacheReadTokens, "cache_write_tokens": s.CacheWriteTokens, "reasoning_tokens": s.ReasoningTokens,
	} {
		if v < 0 {
			return fmt.Errorf("span: %s must be >= 0, got %d", name, v)
		}
	}
	for name, v := range map[string]float64{
		"input_cost": s.InputCost, "output_cost": s.OutputCost, "cache_read_cost": s.CacheReadCost,
		"cache_write_cost": s.CacheWriteCost, "reasoning_cost": s.ReasoningCost, "total_cost": s.TotalCost,
	} {
		if v < 0 {
			return fmt.Errorf("span: %s must be >= 0, got %f", name, v)
		}
	}
	return nil
}

// Key identifies a span for deduplication (spec §3.2).
type Key struct {
	ProjectID string
	TraceID   string
	SpanID    string
}

// KeyOf returns s's deduplication key.
func (s Span) KeyOf() Key {
	return Key{ProjectID: s.ProjectID, TraceID: s.TraceID, SpanID: s.SpanID}
}
