package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultChannel is the Redis pub/sub channel shared by every server instance.
const DefaultChannel = "appeal-service:changes"

// RedisBroker relays events through Redis pub/sub so every instance sees every write.
// Events reach local subscribers only after the round trip through Redis.
type RedisBroker struct {
	client  *redis.Client
	channel string
	local   *MemoryBroker
}

// NewRedisBroker constructs a RedisBroker on channel (DefaultChannel when empty).
func NewRedisBroker(client *redis.Client, channel string) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{client: client, channel: channel, local: NewMemoryBroker()}
}

// Start subscribes to the channel and relays messages until ctx is done.
func (b *RedisBroker) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, errReceive := pubsub.Receive(ctx); errReceive != nil {
		_ = pubsub.Close()
		return fmt.Errorf("realtime: subscribe %s: %w", b.channel, errReceive)
	}
	go b.run(ctx, pubsub)
	return nil
}

func (b *RedisBroker) run(ctx context.Context, pubsub *redis.PubSub) {
	defer func() {
		if errClose := pubsub.Close(); errClose != nil {
			log.WithError(errClose).Warn("realtime: close redis subscription")
		}
	}()
	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var evt Event
			if errUnmarshal := json.Unmarshal([]byte(msg.Payload), &evt); errUnmarshal != nil {
				log.WithError(errUnmarshal).Warn("realtime: malformed event payload")
				continue
			}
			_ = b.local.Publish(ctx, evt)
		}
	}
}

// Publish sends evt to every instance.
func (b *RedisBroker) Publish(ctx context.Context, evt Event) error {
	payload, errMarshal := json.Marshal(evt)
	if errMarshal != nil {
		return fmt.Errorf("realtime: marshal event: %w", errMarshal)
	}
	if errPublish := b.client.Publish(ctx, b.channel, payload).Err(); errPublish != nil {
		return fmt.Errorf("realtime: publish: %w", errPublish)
	}
	return nil
}

// Subscribe registers a subscriber on this instance.
func (b *RedisBroker) Subscribe(collections ...Collection) (<-chan Event, func()) {
	return b.local.Subscribe(collections...)
}
