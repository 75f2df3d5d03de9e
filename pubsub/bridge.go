package pubsub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sideseat/sideseat/internal/logger"
)

// State is a Bridge's lifecycle state (spec §5).
type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Bridge owns one dedicated consumer-group reader for a single Redis
// Stream and fans its entries out to however many local subscribers are
// currently attached. It starts on the first Subscribe and stops on the
// last Unsubscribe (spec §5 "last subscriber leaving stops the bridge").
type Bridge struct {
	client   streamClient
	stream   string
	group    string
	consumer string
	log      logger.Logger

	mu          sync.Mutex
	state       State
	subscribers map[int]chan Message
	nextID      int
	cancel      context.CancelFunc
	stopped     chan struct{}
}

// NewBridge builds a Bridge in StateCreated. It does not touch Redis until
// the first Subscribe call.
func NewBridge(client streamClient, stream, group, consumer string, log logger.Logger) *Bridge {
	return &Bridge{
		client:      client,
		stream:      stream,
		group:       group,
		consumer:    consumer,
		log:         log,
		state:       StateCreated,
		subscribers: map[int]chan Message{},
	}
}

// State reports the bridge's current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers a new local subscriber, starting the bridge's read
// loop if this is the first one. The returned func unsubscribes; calling
// it more than once is a no-op.
func (b *Bridge) Subscribe(ctx context.Context) (<-chan Message, func(), error) {
	b.mu.Lock()
	if b.state == StateStopping || b.state == StateStopped {
		b.mu.Unlock()
		return nil, nil, errors.New("pubsub: bridge is shutting down")
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Message, subscriberBufferSize)
	b.subscribers[id] = ch
	starting := b.state == StateCreated
	if starting {
		b.state = StateRunning
	}
	b.mu.Unlock()

	if starting {
		if err := b.start(ctx); err != nil {
			b.mu.Lock()
			delete(b.subscribers, id)
			b.state = StateCreated
			b.mu.Unlock()
			return nil, nil, err
		}
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { b.unsubscribe(id) })
	}
	return ch, unsubscribe, nil
}

func (b *Bridge) unsubscribe(id int) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	last := len(b.subscribers) == 0 && b.state == StateRunning
	if last {
		b.state = StateStopping
	}
	cancel := b.cancel
	stopped := b.stopped
	b.mu.Unlock()

	if last && cancel != nil {
		cancel()
		<-stopped
		b.mu.Lock()
		b.state = StateStopped
		b.mu.Unlock()
	}
}

// Shutdown stops the bridge unconditionally, regardless of remaining
// subscribers — used by the process-wide shutdown signal (spec §5).
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	if b.state != StateRunning {
		b.state = StateStopped
		b.mu.Unlock()
		return
	}
	b.state = StateStopping
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	cancel := b.cancel
	stopped := b.stopped
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
	b.mu.Lock()
	b.state = StateStopped
	b.mu.Unlock()
}

func (b *Bridge) start(ctx context.Context) error {
	if err := b.client.XGroupCreateMkStream(ctx, b.stream, b.group, "0").Err(); err != nil && !isBusyGroupErr(err) {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.cancel = cancel
	b.stopped = make(chan struct{})
	b.mu.Unlock()

	go b.run(runCtx)
	return nil
}

func isBusyGroupErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "BUSYGROUP")
}

func (b *Bridge) run(ctx context.Context) {
	defer close(b.stopped)
	recoveryTicker := time.NewTicker(recoveryInterval)
	defer recoveryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-recoveryTicker.C:
			b.recoverPending(ctx)
		default:
		}

		res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{b.stream, ">"},
			Count:    32,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			b.log.Warn("pubsub: XREADGROUP failed", "stream", b.stream, "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, entry := range stream.Messages {
				b.deliver(Message{ID: entry.ID, Values: entry.Values})
				b.client.XAck(ctx, b.stream, b.group, entry.ID)
			}
		}
	}
}

// recoverPending reclaims entries another consumer read but never acked
// within min_idle_ms (spec §5).
func (b *Bridge) recoverPending(ctx context.Context) {
	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: b.stream,
		Group:  b.group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil || len(pending) == 0 {
		return
	}

	var stale []string
	for _, p := range pending {
		if p.Idle >= recoveryInterval {
			stale = append(stale, p.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	claimed, err := b.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   b.stream,
		Group:    b.group,
		Consumer: b.consumer,
		MinIdle:  recoveryInterval,
		Messages: stale,
	}).Result()
	if err != nil {
		b.log.Warn("pubsub: XCLAIM failed", "stream", b.stream, "error", err)
		return
	}
	for _, entry := range claimed {
		b.deliver(Message{ID: entry.ID, Values: entry.Values})
		b.client.XAck(ctx, b.stream, b.group, entry.ID)
	}
}

func (b *Bridge) deliver(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			b.log.Warn("pubsub: dropping message for slow subscriber", "stream", b.stream)
		}
	}
}
