package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceWritePrefix = "presence:lastwrite:"

type RedisPresenceWriteLimiter struct {
	client *redis.Client
}

func NewRedisPresenceWriteLimiter(client *redis.Client) *RedisPresenceWriteLimiter {
	return &RedisPresenceWriteLimiter{client: client}
}

// Allow records a write marker for the session and reports whether none was
// present yet. The marker expires after interval.
func (r *RedisPresenceWriteLimiter) Allow(ctx context.Context, sessionID string, interval time.Duration) (bool, error) {
	key := presenceWritePrefix + sessionID

	ok, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339Nano), interval).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set presence write marker: %w", err)
	}
	return ok, nil
}
