package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"halacha-yomi-bot/internal/domain"
)

// RedisCache implements domain.Cache on Redis.
type RedisCache struct {
	client *redis.Client
}

var _ domain.Cache = (*RedisCache)(nil)

// NewRedis creates the cache.
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Once runs fn if the key was not set yet and reports whether it ran. The key
// is released again when fn fails, so the next attempt retries.
func (c *RedisCache) Once(key string, ttl time.Duration, fn func() error) (bool, error) {
	ctx := context.Background()
	ok, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := fn(); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return true, err
	}
	return true, nil
}

// Set stores a value.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.client.Set(context.Background(), key, value, ttl).Err()
}

// Get loads a value.
func (c *RedisCache) Get(key string) ([]byte, error) {
	return c.client.Get(context.Background(), key).Bytes()
}
