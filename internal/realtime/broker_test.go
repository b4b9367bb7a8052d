package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryBrokerFiltersByCollection(t *testing.T) {
	b := NewMemoryBroker()
	appeals, cancelAppeals := b.Subscribe(CollectionAppeals)
	defer cancelAppeals()
	all, cancelAll := b.Subscribe()
	defer cancelAll()

	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, Event{Collection: CollectionUsers, Op: OpUpdate, ID: "u1"}))
	require.NoError(t, b.Publish(ctx, Event{Collection: CollectionAppeals, Op: OpInsert, ID: "a1", UserID: "u1"}))

	got := receive(t, appeals)
	assert.Equal(t, "a1", got.ID)
	assert.False(t, got.At.IsZero())

	assert.Equal(t, "u1", receive(t, all).ID)
	assert.Equal(t, "a1", receive(t, all).ID)
}

func TestMemoryBrokerCancelClosesChannel(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel := b.Subscribe(CollectionTransactions)
	require.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())
	require.NoError(t, b.Publish(context.Background(), Event{Collection: CollectionTransactions}))
}

func TestMemoryBrokerDropsWhenBufferFull(t *testing.T) {
	b := NewMemoryBroker()
	ch, cancel := b.Subscribe()
	defer cancel()
	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{Collection: CollectionAppeals}))
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	addr := os.Getenv("APPEAL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APPEAL_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	b := NewRedisBroker(client, "appeal-service:test:"+time.Now().Format("150405.000"))
	require.NoError(t, b.Start(ctx))

	ch, unsubscribe := b.Subscribe(CollectionAppeals)
	defer unsubscribe()
	require.NoError(t, b.Publish(ctx, Event{Collection: CollectionAppeals, Op: OpUpdate, ID: "a9"}))
	assert.Equal(t, "a9", receive(t, ch).ID)
}
