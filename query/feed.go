package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/span"
)

// FeedCursor identifies a position in the (ingested_at DESC, span_id DESC)
// feed ordering (spec §4.8 "Feed spans").
type FeedCursor struct {
	Micros int64
	SpanID string
}

// String renders the cursor in the "<micros>_<span_id>" wire format
// (spec §6 "spans/feed?cursor=...").
func (c FeedCursor) String() string {
	return fmt.Sprintf("%d_%s", c.Micros, c.SpanID)
}

// ParseFeedCursor parses the wire format produced by String.
func ParseFeedCursor(raw string) (FeedCursor, error) {
	idx := strings.Index(raw, "_")
	if idx < 0 {
		return FeedCursor{}, apierr.Validation("query: malformed feed cursor %q", raw)
	}
	micros, err := strconv.ParseInt(raw[:idx], 10, 64)
	if err != nil {
		return FeedCursor{}, apierr.Validation("query: malformed feed cursor %q", raw)
	}
	return FeedCursor{Micros: micros, SpanID: raw[idx+1:]}, nil
}

// feedSource is the store dependency feed pagination needs: every span in
// the project ordered by (ingested_at DESC, span_id DESC), the same
// ordering ListSpansForProject already produces.
type feedSource interface {
	ListSpansForProject(ctx context.Context, projectID string, limit int) ([]span.Span, error)
}

// Feed implements spec §4.8 "Feed spans": infinite-scroll pagination keyed
// by (ingested_at DESC, span_id DESC). Returns the next page and the
// cursor to request the page after it (nil when exhausted). The underlying
// ordering guarantee (spec §5) is what makes this stable under concurrent
// writes: new spans only ever appear "above" an already-issued cursor.
func Feed(ctx context.Context, store feedSource, projectID string, cursor *FeedCursor, limit int) ([]span.Span, *FeedCursor, error) {
	limit = clampLimit(limit, 1000)

	// Over-fetch generously past any plausible cursor position; the
	// reference engine has no native keyset-seek, so this emulates one in
	// Go. A production DuckDB backend pushes the WHERE clause down instead.
	all, err := store.ListSpansForProject(ctx, projectID, 1_000_000)
	if err != nil {
		return nil, nil, err
	}

	start := 0
	if cursor != nil {
		for i, s := range all {
			if before(s, *cursor) {
				start = i
				break
			}
			start = i + 1
		}
	}

	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]

	var next *FeedCursor
	if end < len(all) && len(page) > 0 {
		last := page[len(page)-1]
		next = &FeedCursor{Micros: last.IngestedAt.UnixMicro(), SpanID: last.SpanID}
	}
	return page, next, nil
}

// before reports whether span s sorts strictly after cursor in the
// (ingested_at DESC, span_id DESC) ordering — i.e. s is eligible for the
// page that follows cursor (spec P5: no returned row has
// (ingested_at, span_id) >= cursor).
func before(s span.Span, cursor FeedCursor) bool {
	us := s.IngestedAt.UnixMicro()
	if us != cursor.Micros {
		return us < cursor.Micros
	}
	return s.SpanID < cursor.SpanID
}
