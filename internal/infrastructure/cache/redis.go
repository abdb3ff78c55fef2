package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisFragmentCache caches rendered HTML fragments in Redis.
type RedisFragmentCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisFragmentCache connects to Redis and verifies the connection
// with a ping.
func NewRedisFragmentCache(addr string, logger zerolog.Logger) (*RedisFragmentCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("addr", addr).Msg("Connected to Redis fragment cache")
	return &RedisFragmentCache{client: client, logger: logger}, nil
}

func (c *RedisFragmentCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read fragment %s: %w", key, err)
	}
	return val, true, nil
}

func (c *RedisFragmentCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache fragment %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisFragmentCache) Close() error {
	return c.client.Close()
}
