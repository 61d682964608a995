package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle decides whether a caller identified by key may proceed.
// Reset gives back a slot whose event did not happen.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// RedisRateLimiter allows one event per key per window
type RedisRateLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewRedisRateLimiter creates a limiter whose keys live under prefix
func NewRedisRateLimiter(client *redis.Client, prefix string, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, prefix: prefix, window: window}
}

// Allow records the event and reports whether the window was free
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), "1", r.window).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Reset frees the window for key
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *RedisRateLimiter) key(key string) string {
	return fmt.Sprintf("rate_limit:%s:%s", r.prefix, key)
}
