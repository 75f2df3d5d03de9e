// Package pubsub implements the §5 "pub/sub bridge task": one dedicated
// Redis Streams consumer-group reader per stream, reference-counted across
// local subscribers, with XCLAIM-based recovery for entries another
// consumer read but never acknowledged.
package pubsub

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one fanned-out stream entry delivered to a subscriber.
type Message struct {
	ID     string
	Values map[string]any
}

// streamClient is the subset of *redis.Client the bridge and publisher
// need, narrowed to an interface so tests substitute a fake instead of a
// live Redis server.
type streamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd
	XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XLen(ctx context.Context, stream string) *redis.IntCmd
}

var _ streamClient = (*redis.Client)(nil)

// recoveryInterval bounds both how often the bridge scans for idle pending
// entries and the min_idle threshold used when claiming them (spec §5
// "XCLAIM recovery after min_idle_ms").
const recoveryInterval = 5 * time.Second

// subscriberBufferSize bounds each subscriber's fan-out channel. Pub/sub
// fan-out is best-effort and lossy (spec §5): a slow subscriber drops
// messages rather than stalling the bridge's read loop.
const subscriberBufferSize = 64
