// Package dedup implements C7, the Token/Cost Dedup Engine: the two-path
// attribution filter that selects exactly-once-countable spans out of an
// agentic trace's overlapping token/cost accounting (spec §4.7).
package dedup

import "github.com/sideseat/sideseat/span"

// Attributable returns the subset of spans that are attributable under the
// two-path filter (spec §4.7), for an in-memory set of spans belonging to
// ONE OR MORE traces (callers pass the spans already scoped to whatever
// trace(s)/session they're aggregating over). This is the pure-Go reference
// implementation, tested directly against the §8 scenario fixtures; the
// query package calls it over spans read back with store.ListSpansForProject.
func Attributable(spans []span.Span) []span.Span {
	byTraceParent := indexByTraceAndParent(spans)
	hasGenerationWithTokens := traceHasGenerationWithTokens(spans)
	byID := indexByID(spans)

	var out []span.Span
	for _, s := range spans {
		if !tokensPositive(s) {
			continue
		}
		if s.ObservationType == "generation" {
			if pathOneGenerationLeaf(s, byTraceParent) {
				out = append(out, s)
			}
			continue
		}
		if pathTwoOrphanSpan(s, hasGenerationWithTokens, byID) {
			out = append(out, s)
		}
	}
	return out
}

func tokensPositive(s span.Span) bool {
	return s.InputTokens+s.OutputTokens > 0
}

// pathOneGenerationLeaf: a generation span with tokens whose children
// include no generation span that itself has tokens.
func pathOneGenerationLeaf(g span.Span, byTraceParent map[traceParentKey][]span.Span) bool {
	children := byTraceParent[traceParentKey{TraceID: g.TraceID, ParentSpanID: g.SpanID}]
	for _, c := range children {
		if c.ObservationType == "generation" && tokensPositive(c) {
			return false
		}
	}
	return true
}

// pathTwoOrphanSpan: a non-generation span with tokens, where no
// generation-with-tokens span exists anywhere in the trace, and the
// direct parent (if present and known) does not itself carry tokens.
func pathTwoOrphanSpan(g span.Span, hasGenerationWithTokens map[string]bool, byID map[span.Key]span.Span) bool {
	if hasGenerationWithTokens[g.TraceID] {
		return false
	}
	if g.ParentSpanID == "" {
		return true
	}
	parent, ok := byID[span.Key{ProjectID: g.ProjectID, TraceID: g.TraceID, SpanID: g.ParentSpanID}]
	if !ok {
		return true
	}
	return !tokensPositive(parent)
}

type traceParentKey struct {
	TraceID      string
	ParentSpanID string
}

func indexByTraceAndParent(spans []span.Span) map[traceParentKey][]span.Span {
	idx := make(map[traceParentKey][]span.Span)
	for _, s := range spans {
		k := traceParentKey{TraceID: s.TraceID, ParentSpanID: s.ParentSpanID}
		idx[k] = append(idx[k], s)
	}
	return idx
}

func indexByID(spans []span.Span) map[span.Key]span.Span {
	idx := make(map[span.Key]span.Span, len(spans))
	for _, s := range spans {
		idx[s.KeyOf()] = s
	}
	return idx
}

func traceHasGenerationWithTokens(spans []span.Span) map[string]bool {
	out := make(map[string]bool)
	for _, s := range spans {
		if s.ObservationType == "generation" && tokensPositive(s) {
			out[s.TraceID] = true
		}
	}
	return out
}

// Totals sums token/cost counters over an already-attributable span set
// (the SUM(...) aggregate spec §4.7 describes at every reporting endpoint).
type Totals struct {
	InputTokens      int64
	OutputTokens     int64
	TotalTokens      int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	ReasoningTokens  int64
	InputCost        float64
	OutputCost       float64
	CacheReadCost    float64
	CacheWriteCost   float64
	ReasoningCost    float64
	TotalCost        float64
}

// Sum computes Totals over spans, which should already have been filtered
// through Attributable.
func Sum(spans []span.Span) Totals {
	var t Totals
	for _, s := range spans {
		t.InputTokens += s.InputTokens
		t.OutputTokens += s.OutputTokens
		t.TotalTokens += s.TotalTokens
		t.CacheReadTokens += s.CacheReadTokens
		t.CacheWriteTokens += s.CacheWriteTokens
		t.ReasoningTokens += s.ReasoningTokens
		t.InputCost += s.InputCost
		t.OutputCost += s.OutputCost
		t.CacheReadCost += s.CacheReadCost
		t.CacheWriteCost += s.CacheWriteCost
		t.ReasoningCost += s.ReasoningCost
		t.TotalCost += s.TotalCost
	}
	return t
}
