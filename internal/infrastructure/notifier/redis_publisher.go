package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"support-relay/internal/domain/notify"
	"support-relay/internal/realtime"
)

// RedisPublisher publishes events on a Redis channel for a RedisBridge to pick up.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisPublisher creates a publisher writing to channel.
func NewRedisPublisher(client redis.UniversalClient, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// Publish serializes the event and publishes it.
func (p *RedisPublisher) Publish(ctx context.Context, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

var _ notify.Publisher = (*RedisPublisher)(nil)

// RedisBridge subscribes to the Redis channel and replays events into the local hub.
type RedisBridge struct {
	client  redis.UniversalClient
	channel string
	hub     *realtime.Hub
	log     zerolog.Logger
}

// NewRedisBridge creates a bridge from channel to hub.
func NewRedisBridge(client redis.UniversalClient, channel string, hub *realtime.Hub, log zerolog.Logger) *RedisBridge {
	return &RedisBridge{
		client:  client,
		channel: channel,
		hub:     hub,
		log:     log.With().Str("component", "redis-bridge").Logger(),
	}
}

// Run forwards events until ctx is done. ready is closed once the subscription is active.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	b.log.Info().Str("channel", b.channel).Msg("redis bridge subscribed")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var event notify.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Msg("dropping malformed event")
				continue
			}
			b.hub.Publish(event.ConversationID, event)
		}
	}
}
