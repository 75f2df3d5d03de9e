package query

import (
	"context"
	"sort"

	"github.com/sideseat/sideseat/dedup"
	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// spanSource is the subset of *store.Store this package depends on, kept
// as an interface so tests can fake it without spinning up sqlite.
type spanSource interface {
	ListSpansForProject(ctx context.Context, projectID string, limit int) ([]span.Span, error)
	ListSpansForTrace(ctx context.Context, projectID, traceID string, limit int) ([]span.Span, error)
}

// ListTraces implements spec §4.8 "List traces": group spans into traces,
// compute C7 totals per trace, filter/sort/paginate.
func ListTraces(ctx context.Context, store spanSource, filter Filter, maxSpansPerTrace int) (Page[TraceSummary], error) {
	if filter.ProjectID == "" {
		return Page[TraceSummary]{}, apierr.Validation("query: project_id is required")
	}

	spans, err := store.ListSpansForProject(ctx, filter.ProjectID, maxSpansPerTrace*1000)
	if err != nil {
		return Page[TraceSummary]{}, err
	}

	byTrace := groupByTrace(spans)
	summaries := make([]TraceSummary, 0, len(byTrace))
	for traceID, traceSpans := range byTrace {
		if !matchesFilter(traceSpans, filter) {
			continue
		}
		summaries = append(summaries, summarizeTrace(traceID, traceSpans))
	}

	sortTraces(summaries, filter.OrderBy)

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

	return Page[TraceSummary]{Items: summaries[start:end], TotalCount: total}, nil
}

// GetTrace returns the single-trace aggregate (spec §4.8).
func GetTrace(ctx context.Context, store spanSource, projectID, traceID string, maxSpansPerTrace int) (TraceSummary, []span.Span, error) {
	spans, err := store.ListSpansForTrace(ctx, projectID, traceID, maxSpansPerTrace)
	if err != nil {
		return TraceSummary{}, nil, err
	}
	if len(spans) == 0 {
		return TraceSummary{}, nil, apierr.NotFound("trace %s/%s not found", projectID, traceID)
	}
	return summarizeTrace(traceID, spans), spans, nil
}

func groupByTrace(spans []span.Span) map[string][]span.Span {
	out := make(map[string][]span.Span)
	for _, s := range spans {
		out[s.TraceID] = append(out[s.TraceID], s)
	}
	return out
}

func matchesFilter(traceSpans []span.Span, filter Filter) bool {
	root := rootSpan(traceSpans)

	if filter.SessionID != "" && !anySpanHasSessionID(traceSpans, filter.SessionID) {
		return false
	}
	if filter.UserID != "" && !anySpanHasUserID(traceSpans, filter.UserID) {
		return false
	}
	if len(filter.Environments) > 0 && !containsString(filter.Environments, root.Environment) {
		return false
	}
	if !filter.From.IsZero() && root.TimestampStart.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && root.TimestampStart.After(filter.To) {
		return false
	}
	if !filter.IncludeNonGenAI && !traceHasGenAIActivity(traceSpans) {
		return false
	}
	return true
}

// traceHasGenAIActivity mirrors spec §4.8's
// "HAVING COUNT(*) FILTER (WHERE observation_type != 'span') > 0".
func traceHasGenAIActivity(spans []span.Span) bool {
	for _, s := range spans {
		if s.ObservationType != span.ObservationSpan {
			return true
		}
	}
	return false
}

func anySpanHasSessionID(spans []span.Span, sessionID string) bool {
	for _, s := range spans {
		if s.SessionID == sessionID {
			return true
		}
	}
	return false
}

func anySpanHasUserID(spans []span.Span, userID string) bool {
	for _, s := range spans {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// rootSpan picks the span with no parent, falling back to the earliest by
// start time when no root is present (spec §4.8 tie-break rule reused for
// name/preview/metadata selection).
func rootSpan(spans []span.Span) span.Span {
	best := spans[0]
	for _, s := range spans {
		if s.ParentSpanID == "" {
			return s
		}
		if s.TimestampStart.Before(best.TimestampStart) {
			best = s
		}
	}
	return best
}

func summarizeTrace(traceID string, spans []span.Span) TraceSummary {
	root := rootSpan(spans)
	totals := dedup.Sum(dedup.Attributable(spans))

	minTS, maxTS := spans[0].TimestampStart, spans[0].TimestampStart
	hasError := false
	tagSet := map[string]bool{}
	for _, s := range spans {
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
		if s.StatusCode == "error" {
			hasError = true
		}
		for _, t := range s.Tags {
			tagSet[t] = true
		}
	}
	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return TraceSummary{
		TraceID:          traceID,
		Name:             root.SpanName,
		StartTime:        minTS,
		EndTime:          maxTS,
		DurationMS:       maxTS.Sub(minTS).Milliseconds(),
		ObservationCount: len(spans),
		HasError:         hasError,
		Tags:             tags,
		Metadata:         root.Metadata,
		InputPreview:     root.InputPreview,
		OutputPreview:    root.OutputPreview,
		Totals:           totals,
	}
}

func sortTraces(summaries []TraceSummary, orderBy string) {
	less := func(i, j int) bool { return summaries[i].StartTime.After(summaries[j].StartTime) }
	switch orderBy {
	case "end_time":
		less = func(i, j int) bool { return summaries[i].EndTime.After(summaries[j].EndTime) }
	case "duration_ms":
		less = func(i, j int) bool { return summaries[i].DurationMS > summaries[j].DurationMS }
	case "total_cost":
		less = func(i, j int) bool { return summaries[i].Totals.TotalCost > summaries[j].Totals.TotalCost }
	case "observation_count":
		less = func(i, j int) bool { return summaries[i].ObservationCount > summaries[j].ObservationCount }
	case "start_time", "":
	default:
	}
	sort.Slice(summaries, less)
}
