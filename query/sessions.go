package query

import (
	"context"
	"sort"

	"github.com/sideseat/sideseat/dedup"
	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// ListSessions groups a project's spans by session_id and aggregates C7
// totals per session (spec §4.8 "get_* variants follow the same shape").
func ListSessions(ctx context.Context, store spanSource, filter Filter, maxSpansPerTrace int) (Page[SessionSummary], error) {
	if filter.ProjectID == "" {
		return Page[SessionSummary]{}, apierr.Validation("query: project_id is required")
	}

	spans, err := store.ListSpansForProject(ctx, filter.ProjectID, maxSpansPerTrace*1000)
	if err != nil {
		return Page[SessionSummary]{}, err
	}

	bySession := make(map[string][]span.Span)
	for _, s := range spans {
		if s.SessionID == "" {
			continue
		}
		bySession[s.SessionID] = append(bySession[s.SessionID], s)
	}

	summaries := make([]SessionSummary, 0, len(bySession))
	for sessionID, sessionSpans := range bySession {
		summaries = append(summaries, summarizeSession(sessionID, sessionSpans))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].StartTime.After(summaries[j].StartTime) })

	total := len(summaries)
	page := clampPage(filter.Page)
	limit := clampLimit(filter.Limit, 1000)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return Page[SessionSummary]{Items: summaries[start:end], TotalCount: total}, nil
}

// GetSession aggregates one session's spans across all of its traces
// (spec §4.8 "session_traces CTE").
func GetSession(ctx context.Context, store spanSource, projectID, sessionID string, maxSpansPerTrace int) (SessionSummary, error) {
	spans, err := store.ListSpansForProject(ctx, projectID, maxSpansPerTrace*1000)
	if err != nil {
		return SessionSummary{}, err
	}
	var sessionSpans []span.Span
	for _, s := range spans {
		if s.SessionID == sessionID {
			sessionSpans = append(sessionSpans, s)
		}
	}
	if len(sessionSpans) == 0 {
		return SessionSummary{}, apierr.NotFound("session %s/%s not found", projectID, sessionID)
	}
	return summarizeSession(sessionID, sessionSpans), nil
}

// GetTracesForSession resolves a session to its constituent trace
// summaries (spec §4.8).
func GetTracesForSession(ctx context.Context, store spanSource, projectID, sessionID string) ([]TraceSummary, error) {
	spans, err := store.ListSpansForProject(ctx, projectID, 1_000_000)
	if err != nil {
		return nil, err
	}
	traceIDs := map[string]bool{}
	for _, s := range spans {
		if s.SessionID == sessionID {
			traceIDs[s.TraceID] = true
		}
	}
	if len(traceIDs) == 0 {
		return nil, apierr.NotFound("session %s/%s not found", projectID, sessionID)
	}

	byTrace := groupByTrace(spans)
	out := make([]TraceSummary, 0, len(traceIDs))
	for traceID := range traceIDs {
		out = append(out, summarizeTrace(traceID, byTrace[traceID]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func summarizeSession(sessionID string, spans []span.Span) SessionSummary {
	traceIDs := map[string]bool{}
	minTS, maxTS := spans[0].TimestampStart, spans[0].TimestampStart
	for _, s := range spans {
		traceIDs[s.TraceID] = true
		if s.TimestampStart.Before(minTS) {
			minTS = s.TimestampStart
		}
		end := s.TimestampEnd
		if end.IsZero() {
			end = s.TimestampStart
		}
		if end.After(maxTS) {
			maxTS = end
		}
	}
	return SessionSummary{
		SessionID:  sessionID,
		TraceCount: len(traceIDs),
		StartTime:  minTS,
		EndTime:    maxTS,
		Totals:     dedup.Sum(dedup.Attributable(spans)),
	}
}
