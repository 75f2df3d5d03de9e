// Package query implements C8, the Aggregation Query Layer: list/get
// endpoints for traces, sessions, and spans, plus stats and filter-option
// discovery (spec §4.8). It executes dedup.Attributable/dedup.Sum
// in-process over rows read from store's deduplicated view — the same
// contract spec §4.7 describes as a SQL CTE, expressed here as the
// reference engine's in-memory equivalent so it runs unmodified against
// the sqlite reference store.
package query

import (
	"time"

	"github.com/sideseat/sideseat/dedup"
)

// Filter scopes a traces/sessions/spans listing (spec §4.8 "List traces").
type Filter struct {
	ProjectID       string
	SessionID       string
	UserID          string
	Environments    []string
	From            time.Time
	To              time.Time
	IncludeNonGenAI bool
	OrderBy         string // start_time|end_time|duration_ms|total_cost|observation_count
	Page            int
	Limit           int
}

// TraceSummary is one row of a traces listing or a get_trace response.
type TraceSummary struct {
	TraceID          string
	Name             string
	StartTime        time.Time
	EndTime          time.Time
	DurationMS       int64
	ObservationCount int
	HasError         bool
	Tags             []string
	Metadata         map[string]any
	InputPreview     string
	OutputPreview    string
	Totals           dedup.Totals
}

// SessionSummary aggregates a session across all of its traces.
type SessionSummary struct {
	SessionID  string
	TraceCount int
	StartTime  time.Time
	EndTime    time.Time
	Totals     dedup.Totals
}

// Page is a generic paginated result.
type Page[T any] struct {
	Items      []T
	TotalCount int
}

func clampLimit(limit, max int) int {
	if limit <= 0 || limit > max {
		return max
	}
	return limit
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
