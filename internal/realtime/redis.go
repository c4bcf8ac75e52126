package realtime

import (
	"context"
	"fmt"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const RedisChannel = "forum:realtime"

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: RedisChannel}
}

func (p *RedisPublisher) Publish(ctx context.Context, group string, ev models.Event) error {
	body, err := encodeEnvelope(group, ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis channel %s: %w", p.channel, err)
	}
	return nil
}

// RunRedisBridge replays the shared Redis channel into hub until ctx is done.
func RunRedisBridge(ctx context.Context, client *redis.Client, hub *Hub, logger *zap.Logger) error {
	pubsub := client.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	// Make sure the subscription is live before reading.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to redis channel %s: %w", RedisChannel, err)
	}
	logger.Info("realtime redis bridge started", zap.String("channel", RedisChannel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				logger.Warn("dropping realtime message", zap.Error(err))
				continue
			}
			hub.Publish(ctx, env.Group, env.Event)
		}
	}
}
