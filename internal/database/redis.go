package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	RedisClientName  = "forum-notify"
	RedisDialTimeout = 3 * time.Second
	// Presence and counter pushes are bounded by the 1s push timeout anyway.
	RedisWriteTimeout = time.Second
)

// NewRedisClient connects the cache used for presence, write markers and the
// realtime channel. Settings in the URL win over the defaults above.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}
	if opts.ClientName == "" {
		opts.ClientName = RedisClientName
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = RedisDialTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = RedisWriteTimeout
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("error pinging redis: %w", err)
	}

	return client, nil
}
