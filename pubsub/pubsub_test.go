package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/internal/logger"
)

// fakeStreamClient is a minimal streamClient double: reads always return
// redis.Nil (an empty/timed-out XREADGROUP) so the bridge's run loop spins
// harmlessly until its context is cancelled, which is all these tests
// exercise (lifecycle/refcounting, not message delivery).
type fakeStreamClient struct {
	mu           sync.Mutex
	groupCreates int
	xlen         int64
	xlenErr      error
	addErr       error
	addedIDs     []string
}

func (f *fakeStreamClient) XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd {
	f.mu.Lock()
	f.groupCreates++
	f.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeStreamClient) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	time.Sleep(time.Millisecond)
	cmd := redis.NewXStreamSliceCmd(ctx)
	cmd.SetErr(redis.Nil)
	return cmd
}

func (f *fakeStreamClient) XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(ids)))
	return cmd
}

func (f *fakeStreamClient) XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) *redis.XPendingExtCmd {
	cmd := redis.NewXPendingExtCmd(ctx)
	cmd.SetVal(nil)
	return cmd
}

func (f *fakeStreamClient) XClaim(ctx context.Context, a *redis.XClaimArgs) *redis.XMessageSliceCmd {
	cmd := redis.NewXMessageSliceCmd(ctx)
	cmd.SetVal(nil)
	return cmd
}

func (f *fakeStreamClient) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if f.addErr != nil {
		cmd.SetErr(f.addErr)
		return cmd
	}
	f.mu.Lock()
	id := "1-" + string(rune('0'+len(f.addedIDs)))
	f.addedIDs = append(f.addedIDs, id)
	f.mu.Unlock()
	cmd.SetVal(id)
	return cmd
}

func (f *fakeStreamClient) XLen(ctx context.Context, stream string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.xlenErr != nil {
		cmd.SetErr(f.xlenErr)
		return cmd
	}
	cmd.SetVal(f.xlen)
	return cmd
}

func TestBridge_SubscribeStartsRunningOnFirstSubscriber(t *testing.T) {
	client := &fakeStreamClient{}
	b := NewBridge(client, "stream1", "group1", "consumer1", logger.Discard())
	assert.Equal(t, StateCreated, b.State())

	_, unsub, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateRunning, b.State())
	assert.Equal(t, 1, client.groupCreates)

	unsub()
}

func TestBridge_SecondSubscriberDoesNotRestart(t *testing.T) {
	client := &fakeStreamClient{}
	b := NewBridge(client, "stream1", "group1", "consumer1", logger.Discard())

	_, unsub1, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	_, unsub2, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, client.groupCreates)
	unsub1()
	unsub2()
}

func TestBridge_LastUnsubscribeStopsBridge(t *testing.T) {
	client := &fakeStreamClient{}
	b := NewBridge(client, "stream1", "group1", "consumer1", logger.Discard())

	_, unsub1, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	_, unsub2, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	unsub1()
	assert.Equal(t, StateRunning, b.State(), "one subscriber remains")

	unsub2()
	assert.Equal(t, StateStopped, b.State())
}

func TestBridge_UnsubscribeIsIdempotent(t *testing.T) {
	client := &fakeStreamClient{}
	b := NewBridge(client, "stream1", "group1", "consumer1", logger.Discard())
	_, unsub, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	unsub()
	assert.NotPanics(t, func() { unsub() })
	assert.Equal(t, StateStopped, b.State())
}

func TestBridge_ShutdownStopsEvenWithActiveSubscribers(t *testing.T) {
	client := &fakeStreamClient{}
	b := NewBridge(client, "stream1", "group1", "consumer1", logger.Discard())
	ch, _, err := b.Subscribe(context.Background())
	require.NoError(t, err)

	b.Shutdown()
	assert.Equal(t, StateStopped, b.State())

	_, ok := <-ch
	assert.False(t, ok, "subscriber channel is closed on shutdown")
}

func TestBridge_SubscribeAfterShutdownFails(t *testing.T) {
	client := &fakeStreamClient{}
	b := NewBridge(client, "stream1", "group1", "consumer1", logger.Discard())
	b.Shutdown()

	_, _, err := b.Subscribe(context.Background())
	assert.Error(t, err)
}

func TestManager_ReusesBridgePerStream(t *testing.T) {
	client := &fakeStreamClient{}
	m := NewManager(client, "consumer1", logger.Discard())

	_, unsub1, err := m.Subscribe(context.Background(), "stream1", "group1")
	require.NoError(t, err)
	_, unsub2, err := m.Subscribe(context.Background(), "stream1", "group1")
	require.NoError(t, err)

	assert.Equal(t, 1, client.groupCreates)
	unsub1()
	unsub2()
}

func TestManager_ShutdownStopsAllBridgesAndRejectsNewSubscribes(t *testing.T) {
	client := &fakeStreamClient{}
	m := NewManager(client, "consumer1", logger.Discard())

	_, _, err := m.Subscribe(context.Background(), "stream1", "group1")
	require.NoError(t, err)
	_, _, err = m.Subscribe(context.Background(), "stream2", "group1")
	require.NoError(t, err)

	m.Shutdown()

	_, _, err = m.Subscribe(context.Background(), "stream3", "group1")
	assert.Error(t, err)
}

func TestPublisher_PublishSucceedsUnderCapacity(t *testing.T) {
	client := &fakeStreamClient{xlen: 2}
	p := NewPublisher(client, 10, 5)

	id, err := p.Publish(context.Background(), "stream1", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestPublisher_BackpressureAtCapacity(t *testing.T) {
	client := &fakeStreamClient{xlen: 10}
	p := NewPublisher(client, 10, 7)

	_, err := p.Publish(context.Background(), "stream1", map[string]any{"k": "v"})
	require.Error(t, err)
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, apierr.KindBackpressure, apiErr.Kind)
	assert.Equal(t, 7, apiErr.RetryAfter)
}

func TestPublisher_CapacityDisabledWhenZero(t *testing.T) {
	client := &fakeStreamClient{xlen: 999999}
	p := NewPublisher(client, 0, 5)

	_, err := p.Publish(context.Background(), "stream1", map[string]any{"k": "v"})
	assert.NoError(t, err)
}
