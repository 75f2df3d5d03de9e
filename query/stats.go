package query

import (
	"context"
	"sort"
	"time"

	"github.com/sideseat/sideseat/dedup"
	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// StatsFilter scopes a get_project_stats call (spec §4.8 "Stats",
// `GET /projects/{id}/stats?from&to&timezone`).
type StatsFilter struct {
	ProjectID string
	From      time.Time
	To        time.Time
	Timezone  string // IANA zone name; "" means UTC
}

// CountBucket is one row of a breakdown (framework/model) or trend series.
type CountBucket struct {
	Key        string
	TraceCount int
	Totals     dedup.Totals
}

// TrendPoint is one bucket of the main hourly/daily trend series.
type TrendPoint struct {
	BucketStart time.Time
	TraceCount  int
	Totals      dedup.Totals
}

// LatencyPoint is one bucket of the latency trend series.
type LatencyPoint struct {
	BucketStart   time.Time
	AvgDurationMS float64
}

// Stats is the full get_project_stats response (spec §4.8 "Stats").
type Stats struct {
	TraceCount               int
	SpanCount                int
	PreviousPeriodTraceCount int
	AvgTraceDurationMS       float64
	Totals                   dedup.Totals
	FrameworkBreakdown       []CountBucket
	ModelBreakdown           []CountBucket
	Trend                    []TrendPoint
	LatencyTrend             []LatencyPoint
	RecentActivityCount      int
}

// trendDailyThreshold is the window width (spec §4.8) past which the trend
// series switches from hourly to daily buckets.
const trendDailyThreshold = 48 * time.Hour

// GetProjectStats implements spec §4.8 "Stats": main counts, the
// previous-period comparison, breakdowns, and trend series, all scoped to
// filter.From/To and bucketed in filter.Timezone's local civil time.
func GetProjectStats(ctx context.Context, store spanSource, filter StatsFilter, maxTopStats int) (Stats, error) {
	if filter.ProjectID == "" {
		return Stats{}, apierr.Validation("query: project_id is required")
	}
	loc := time.UTC
	if filter.Timezone != "" {
		l, err := time.LoadLocation(filter.Timezone)
		if err != nil {
			return Stats{}, apierr.Validation("query: invalid timezone %q", filter.Timezone)
		}
		loc = l
	}

	all, err := store.ListSpansForProject(ctx, filter.ProjectID, 1_000_000)
	if err != nil {
		return Stats{}, err
	}

	byTrace := groupByTrace(all)
	windowTraces := make(map[string][]span.Span)
	for traceID, spans := range byTrace {
		root := rootSpan(spans)
		if !filter.From.IsZero() && root.TimestampStart.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && root.TimestampStart.After(filter.To) {
			continue
		}
		windowTraces[traceID] = spans
	}

	var windowSpans []span.Span
	spanCount := 0
	var durationSum int64
	for _, spans := range windowTraces {
		windowSpans = append(windowSpans, spans...)
		spanCount += len(spans)
		root := rootSpan(spans)
		end := root.TimestampEnd
		if end.IsZero() {
			end = root.TimestampStart
		}
		durationSum += end.Sub(root.TimestampStart).Milliseconds()
	}

	avgDuration := float64(0)
	if len(windowTraces) > 0 {
		avgDuration = float64(durationSum) / float64(len(windowTraces))
	}

	prevCount := 0
	if !filter.From.IsZero() && !filter.To.IsZero() {
		width := filter.To.Sub(filter.From)
		prevFrom, prevTo := filter.From.Add(-width), filter.From
		for _, spans := range byTrace {
			root := rootSpan(spans)
			if !root.TimestampStart.Before(prevFrom) && root.TimestampStart.Before(prevTo) {
				prevCount++
			}
		}
	}

	daily := !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Sub(filter.From) > trendDailyThreshold

	recentCutoff := nowFunc().Add(-5 * time.Minute)
	recentCount := 0
	for _, spans := range byTrace {
		if rootSpan(spans).TimestampStart.After(recentCutoff) {
			recentCount++
		}
	}

	return Stats{
		TraceCount:               len(windowTraces),
		SpanCount:                spanCount,
		PreviousPeriodTraceCount: prevCount,
		AvgTraceDurationMS:       avgDuration,
		Totals:                   dedup.Sum(dedup.Attributable(windowSpans)),
		FrameworkBreakdown:       breakdownBy(windowTraces, func(s span.Span) string { return s.Framework }, maxTopStats),
		ModelBreakdown:           breakdownBy(windowTraces, func(s span.Span) string { return s.GenAIRequestModel }, maxTopStats),
		Trend:                    trendSeries(windowTraces, loc, daily),
		LatencyTrend:             latencyTrend(windowTraces, loc, daily),
		RecentActivityCount:      recentCount,
	}, nil
}

// nowFunc is indirected so tests can pin "now" for the recent-activity
// window without sleeping or mocking the clock package-wide.
var nowFunc = time.Now

func breakdownBy(traces map[string][]span.Span, key func(span.Span) string, limit int) []CountBucket {
	byKey := map[string][]span.Span{}
	for _, spans := range traces {
		k := key(rootSpan(spans))
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], spans...)
	}
	out := make([]CountBucket, 0, len(byKey))
	for k, spans := range byKey {
		traceSet := map[string]bool{}
		for _, s := range spans {
			traceSet[s.TraceID] = true
		}
		out = append(out, CountBucket{Key: k, TraceCount: len(traceSet), Totals: dedup.Sum(dedup.Attributable(spans))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TraceCount > out[j].TraceCount })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func trendSeries(traces map[string][]span.Span, loc *time.Location, daily bool) []TrendPoint {
	byBucket := map[time.Time][]span.Span{}
	for _, spans := range traces {
		root := rootSpan(spans)
		bucket := truncateLocal(root.TimestampStart, loc, daily)
		byBucket[bucket] = append(byBucket[bucket], spans...)
	}
	out := make([]TrendPoint, 0, len(byBucket))
	for bucket, spans := range byBucket {
		traceSet := map[string]bool{}
		for _, s := range spans {
			traceSet[s.TraceID] = true
		}
		out = append(out, TrendPoint{BucketStart: bucket, TraceCount: len(traceSet), Totals: dedup.Sum(dedup.Attributable(spans))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out
}

func latencyTrend(traces map[string][]span.Span, loc *time.Location, daily bool) []LatencyPoint {
	type acc struct {
		sum   int64
		count int
	}
	byBucket := map[time.Time]*acc{}
	for _, spans := range traces {
		root := rootSpan(spans)
		end := root.TimestampEnd
		if end.IsZero() {
			end = root.TimestampStart
		}
		bucket := truncateLocal(root.TimestampStart, loc, daily)
		a, ok := byBucket[bucket]
		if !ok {
			a = &acc{}
			byBucket[bucket] = a
		}
		a.sum += end.Sub(root.TimestampStart).Milliseconds()
		a.count++
	}
	out := make([]LatencyPoint, 0, len(byBucket))
	for bucket, a := range byBucket {
		out = append(out, LatencyPoint{BucketStart: bucket, AvgDurationMS: float64(a.sum) / float64(a.count)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketStart.Before(out[j].BucketStart) })
	return out
}

// truncateLocal floors t to the start of its local hour or day in loc's
// civil calendar (spec §4.8: "truncation is in local time"). Composing the
// bucket from loc's own Y/M/D/H components rather than a UTC-duration
// truncate is what makes the bucket boundary track DST transitions: Go's
// time.Date resolves an ambiguous repeated hour to its earlier occurrence
// and snaps a skipped DST-gap hour forward to the next valid instant,
// matching the earliest/skip-forward rules spec §4.8 calls for.
func truncateLocal(t time.Time, loc *time.Location, daily bool) time.Time {
	lt := t.In(loc)
	if daily {
		return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	}
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), 0, 0, 0, loc)
}
