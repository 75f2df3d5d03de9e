package pubsub

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/sideseat/sideseat/internal/apierr"
)

// Publisher writes entries to a Redis Stream (spec §5 "topic publish is
// at-least-once"). capacity bounds how many unconsumed entries the stream
// may hold before Publish starts rejecting with backpressure — the
// in-repo stand-in for "the topic publisher rejects" (spec §5 and §6's
// 503 + Retry-After), since Redis Streams themselves have no native
// reject-on-full behavior. capacity <= 0 disables the check.
type Publisher struct {
	client         streamClient
	capacity       int64
	retryAfterSecs int
}

// NewPublisher builds a Publisher.
func NewPublisher(client streamClient, capacity int64, retryAfterSecs int) *Publisher {
	return &Publisher{client: client, capacity: capacity, retryAfterSecs: retryAfterSecs}
}

// Publish appends values to stream, returning the new entry's ID.
func (p *Publisher) Publish(ctx context.Context, stream string, values map[string]any) (string, error) {
	if p.capacity > 0 {
		n, err := p.client.XLen(ctx, stream).Result()
		if err != nil {
			return "", apierr.Storage(err, "pubsub: XLEN %s", stream)
		}
		if n >= p.capacity {
			return "", apierr.Backpressure(p.retryAfterSecs, "pubsub: stream %s at capacity", stream)
		}
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Result()
	if err != nil {
		return "", apierr.Storage(err, "pubsub: XADD %s", stream)
	}
	return id, nil
}
