package query

import (
	"context"
	"sort"

	"github.com/sideseat/sideseat/span"
)

// filterableColumns is the whitelist spec §4.8 "Filter options" requires:
// categorical columns only. "tags" is handled separately (distinctTags);
// any other column requested outside this set is silently dropped from the
// response (P7), never surfaced as an error.
var filterableColumns = map[string]func(span.Span) string{
	"environment":      func(s span.Span) string { return s.Environment },
	"framework":        func(s span.Span) string { return s.Framework },
	"observation_type": func(s span.Span) string { return string(s.ObservationType) },
	"status_code":      func(s span.Span) string { return s.StatusCode },
	"gen_ai_system":    func(s span.Span) string { return s.GenAISystem },
	"span_kind":        func(s span.Span) string { return s.SpanKind },
	"span_category":    func(s span.Span) string { return s.SpanCategory },
}

// FilterOptions computes the distinct-value suggestions for each requested
// column, bounded by maxSuggestions (SIDESEAT_QUERY_MAX_FILTER_SUGGESTIONS).
// The reference engine computes exact DISTINCT in Go; a DuckDB-backed store
// would use APPROX_COUNT_DISTINCT for the same contract at scale.
func FilterOptions(ctx context.Context, store spanSource, projectID string, columns []string, maxSuggestions int) (map[string][]string, error) {
	spans, err := store.ListSpansForProject(ctx, projectID, 1_000_000)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for _, col := range columns {
		extract, ok := filterableColumns[col]
		if !ok {
			continue // P7: silently drop non-whitelisted columns
		}
		if col == "tags" {
			continue
		}
		out[col] = distinctValues(spans, extract, maxSuggestions)
	}

	if containsString(columns, "tags") {
		out["tags"] = distinctTags(spans, maxSuggestions)
	}

	return out, nil
}

func distinctValues(spans []span.Span, extract func(span.Span) string, limit int) []string {
	seen := map[string]bool{}
	for _, s := range spans {
		v := extract(s)
		if v != "" {
			seen[v] = true
		}
	}
	return sortedKeys(seen, limit)
}

// distinctTags flattens each span's tag array (the UNNEST-equivalent) then
// dedups.
func distinctTags(spans []span.Span, limit int) []string {
	seen := map[string]bool{}
	for _, s := range spans {
		for _, t := range s.Tags {
			seen[t] = true
		}
	}
	return sortedKeys(seen, limit)
}

func sortedKeys(set map[string]bool, limit int) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
