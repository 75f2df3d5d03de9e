package main

import (
	"time"

	"github.com/sideseat/sideseat/dedup"
	"github.com/sideseat/sideseat/query"
	"github.com/sideseat/sideseat/span"
)

// totalsDTO mirrors dedup.Totals with the wire field names spec §6 uses.
type totalsDTO struct {
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	ReasoningTokens  int64   `json:"reasoning_tokens"`
	InputCost        float64 `json:"input_cost"`
	OutputCost       float64 `json:"output_cost"`
	CacheReadCost    float64 `json:"cache_read_cost"`
	CacheWriteCost   float64 `json:"cache_write_cost"`
	ReasoningCost    float64 `json:"reasoning_cost"`
	TotalCost        float64 `json:"total_cost"`
}

func newTotalsDTO(t dedup.Totals) totalsDTO {
	return totalsDTO{
		InputTokens: t.InputTokens, OutputTokens: t.OutputTokens, TotalTokens: t.TotalTokens,
		CacheReadTokens: t.CacheReadTokens, CacheWriteTokens: t.CacheWriteTokens, ReasoningTokens: t.ReasoningTokens,
		InputCost: t.InputCost, OutputCost: t.OutputCost, CacheReadCost: t.CacheReadCost,
		CacheWriteCost: t.CacheWriteCost, ReasoningCost: t.ReasoningCost, TotalCost: t.TotalCost,
	}
}

type traceDTO struct {
	TraceID          string         `json:"trace_id"`
	Name             string         `json:"name"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	DurationMS       int64          `json:"duration_ms"`
	ObservationCount int            `json:"observation_count"`
	HasError         bool           `json:"has_error"`
	Tags             []string       `json:"tags"`
	Metadata         map[string]any `json:"metadata"`
	InputPreview     string         `json:"input_preview"`
	OutputPreview    string         `json:"output_preview"`
	Totals           totalsDTO      `json:"totals"`
}

func newTraceDTO(t query.TraceSummary) traceDTO {
	return traceDTO{
		TraceID: t.TraceID, Name: t.Name, StartTime: t.StartTime, EndTime: t.EndTime,
		DurationMS: t.DurationMS, ObservationCount: t.ObservationCount, HasError: t.HasError,
		Tags: t.Tags, Metadata: t.Metadata, InputPreview: t.InputPreview, OutputPreview: t.OutputPreview,
		Totals: newTotalsDTO(t.Totals),
	}
}

type pageDTO[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
}

func newTracePageDTO(p query.Page[query.TraceSummary]) pageDTO[traceDTO] {
	items := make([]traceDTO, len(p.Items))
	for i, t := range p.Items {
		items[i] = newTraceDTO(t)
	}
	return pageDTO[traceDTO]{Items: items, TotalCount: p.TotalCount}
}

type sessionDTO struct {
	SessionID  string    `json:"session_id"`
	TraceCount int       `json:"trace_count"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Totals     totalsDTO `json:"totals"`
}

func newSessionDTO(s query.SessionSummary) sessionDTO {
	return sessionDTO{
		SessionID: s.SessionID, TraceCount: s.TraceCount, StartTime: s.StartTime, EndTime: s.EndTime,
		Totals: newTotalsDTO(s.Totals),
	}
}

func newSessionPageDTO(p query.Page[query.SessionSummary]) pageDTO[sessionDTO] {
	items := make([]sessionDTO, len(p.Items))
	for i, s := range p.Items {
		items[i] = newSessionDTO(s)
	}
	return pageDTO[sessionDTO]{Items: items, TotalCount: p.TotalCount}
}

type spanDTO struct {
	ProjectID       string         `json:"project_id"`
	TraceID         string         `json:"trace_id"`
	SpanID          string         `json:"span_id"`
	ParentSpanID    string         `json:"parent_span_id"`
	TimestampStart  time.Time      `json:"timestamp_start"`
	TimestampEnd    time.Time      `json:"timestamp_end"`
	DurationMS      int64          `json:"duration_ms"`
	IngestedAt      time.Time      `json:"ingested_at"`
	SpanName        string         `json:"span_name"`
	SpanKind        string         `json:"span_kind"`
	SpanCategory    string         `json:"span_category"`
	ObservationType string         `json:"observation_type"`
	Framework       string         `json:"framework"`
	StatusCode      string         `json:"status_code"`
	Environment     string         `json:"environment"`
	SessionID       string         `json:"session_id"`
	UserID          string         `json:"user_id"`
	GenAISystem     string         `json:"gen_ai_system"`
	GenAIModel      string         `json:"gen_ai_request_model"`
	GenAIAgentName  string         `json:"gen_ai_agent_name"`
	FinishReasons   []string       `json:"finish_reasons"`
	InputPreview    string         `json:"input_preview"`
	OutputPreview   string         `json:"output_preview"`
	RawSpan         map[string]any `json:"raw_span"`
	Metadata        map[string]any `json:"metadata"`
	Tags            []string       `json:"tags"`
	Totals          totalsDTO      `json:"totals"`
}

func newSpanDTO(s span.Span) spanDTO {
	return spanDTO{
		ProjectID: s.ProjectID, TraceID: s.TraceID, SpanID: s.SpanID, ParentSpanID: s.ParentSpanID,
		TimestampStart: s.TimestampStart, TimestampEnd: s.TimestampEnd, DurationMS: s.DurationMS, IngestedAt: s.IngestedAt,
		SpanName: s.SpanName, SpanKind: s.SpanKind, SpanCategory: s.SpanCategory, ObservationType: string(s.ObservationType),
		Framework: s.Framework, StatusCode: s.StatusCode, Environment: s.Environment, SessionID: s.SessionID, UserID: s.UserID,
		GenAISystem: s.GenAISystem, GenAIModel: s.GenAIRequestModel, GenAIAgentName: s.GenAIAgentName, FinishReasons: s.FinishReasons,
		InputPreview: s.InputPreview, OutputPreview: s.OutputPreview, RawSpan: s.RawSpan, Metadata: s.Metadata, Tags: s.Tags,
		Totals: totalsDTO{
			InputTokens: s.InputTokens, OutputTokens: s.OutputTokens, TotalTokens: s.TotalTokens,
			CacheReadTokens: s.CacheReadTokens, CacheWriteTokens: s.CacheWriteTokens, ReasoningTokens: s.ReasoningTokens,
			InputCost: s.InputCost, OutputCost: s.OutputCost, CacheReadCost: s.CacheReadCost,
			CacheWriteCost: s.CacheWriteCost, ReasoningCost: s.ReasoningCost, TotalCost: s.TotalCost,
		},
	}
}

func newSpanDTOs(spans []span.Span) []spanDTO {
	out := make([]spanDTO, len(spans))
	for i, s := range spans {
		out[i] = newSpanDTO(s)
	}
	return out
}

type countBucketDTO struct {
	Key        string    `json:"key"`
	TraceCount int       `json:"trace_count"`
	Totals     totalsDTO `json:"totals"`
}

func newCountBucketDTOs(buckets []query.CountBucket) []countBucketDTO {
	out := make([]countBucketDTO, len(buckets))
	for i, b := range buckets {
		out[i] = countBucketDTO{Key: b.Key, TraceCount: b.TraceCount, Totals: newTotalsDTO(b.Totals)}
	}
	return out
}

type trendPointDTO struct {
	BucketStart time.Time `json:"bucket_start"`
	TraceCount  int       `json:"trace_count"`
	Totals      totalsDTO `json:"totals"`
}

type latencyPointDTO struct {
	BucketStart   time.Time `json:"bucket_start"`
	AvgDurationMS float64   `json:"avg_duration_ms"`
}

type statsDTO struct {
	TraceCount               int               `json:"trace_count"`
	SpanCount                int               `json:"span_count"`
	PreviousPeriodTraceCount int               `json:"previous_period_trace_count"`
	AvgTraceDurationMS       float64           `json:"avg_trace_duration_ms"`
	Totals                   totalsDTO         `json:"totals"`
	FrameworkBreakdown       []countBucketDTO  `json:"framework_breakdown"`
	ModelBreakdown           []countBucketDTO  `json:"model_breakdown"`
	Trend                    []trendPointDTO   `json:"trend"`
	LatencyTrend             []latencyPointDTO `json:"latency_trend"`
	RecentActivityCount      int               `json:"recent_activity_count"`
}

func newStatsDTO(s query.Stats) statsDTO {
	trend := make([]trendPointDTO, len(s.Trend))
	for i, t := range s.Trend {
		trend[i] = trendPointDTO{BucketStart: t.BucketStart, TraceCount: t.TraceCount, Totals: newTotalsDTO(t.Totals)}
	}
	latency := make([]latencyPointDTO, len(s.LatencyTrend))
	for i, l := range s.LatencyTrend {
		latency[i] = latencyPointDTO{BucketStart: l.BucketStart, AvgDurationMS: l.AvgDurationMS}
	}
	return statsDTO{
		TraceCount: s.TraceCount, SpanCount: s.SpanCount, PreviousPeriodTraceCount: s.PreviousPeriodTraceCount,
		AvgTraceDurationMS: s.AvgTraceDurationMS, Totals: newTotalsDTO(s.Totals),
		FrameworkBreakdown: newCountBucketDTOs(s.FrameworkBreakdown), ModelBreakdown: newCountBucketDTOs(s.ModelBreakdown),
		Trend: trend, LatencyTrend: latency, RecentActivityCount: s.RecentActivityCount,
	}
}

type feedDTO struct {
	Items  []spanDTO `json:"items"`
	Cursor string    `json:"cursor,omitempty"`
}
