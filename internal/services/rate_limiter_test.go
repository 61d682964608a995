package services

import (
	"context"
	"testing"
	"time"
)

func TestRedisRateLimiter(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	limiter := NewRedisRateLimiter(client, "order", time.Minute)

	ok, err := limiter.Allow(ctx, "0812")
	if err != nil || !ok {
		t.Fatalf("expected first call allowed, got %t (%v)", ok, err)
	}
	ok, _ = limiter.Allow(ctx, "0812")
	if ok {
		t.Fatalf("expected second call within the window to be refused")
	}
	ok, _ = limiter.Allow(ctx, "0813")
	if !ok {
		t.Fatalf("expected other key to be allowed")
	}

	mr.FastForward(time.Minute + time.Second)
	ok, _ = limiter.Allow(ctx, "0812")
	if !ok {
		t.Fatalf("expected key to be allowed after the window")
	}

	if err := limiter.Reset(ctx, "0812"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	ok, _ = limiter.Allow(ctx, "0812")
	if !ok {
		t.Fatalf("expected key to be allowed after reset")
	}
}
