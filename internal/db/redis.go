package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ratehub/rating-notifications/internal/config"
)

// ConnectRedis opens and pings a Redis client for the durable notification
// store backend. Retries a few times because Redis may still be starting
// when the service comes up.
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	var lastErr error
	for i := 0; i < cfg.RedisRetryAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RedisRetryInterval):
			}
		}

		client := redis.NewClient(opts)
		pingErr := client.Ping(ctx).Err()
		if pingErr == nil {
			return client, nil
		}
		lastErr = pingErr
		_ = client.Close()
	}
	return nil, fmt.Errorf("redis not ready: %w", lastErr)
}
