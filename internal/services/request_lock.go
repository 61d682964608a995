package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-ledger-api/pkg/logging"

	"github.com/redis/go-redis/v9"
)

// Locker is the process-wide advisory lock every request runs under.
type Locker interface {
	// Acquire blocks until the lock is held or ctx is done. On ctx expiry it
	// returns ErrLockTimeout. The release func is safe to call more than once.
	Acquire(ctx context.Context) (release func(), err error)
}

// MemoryLocker serializes requests inside one process.
type MemoryLocker struct {
	sem chan struct{}
}

// NewMemoryLocker creates an unlocked MemoryLocker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{sem: make(chan struct{}, 1)}
}

func (l *MemoryLocker) Acquire(ctx context.Context) (func(), error) {
	if ctx.Err() != nil {
		return nil, ErrLockTimeout
	}
	select {
	case l.sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.sem }) }, nil
	case <-ctx.Done():
		return nil, ErrLockTimeout
	}
}

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes requests across every replica sharing one Redis.
// The TTL bounds how long a crashed holder can keep the lock.
type RedisLocker struct {
	client        *redis.Client
	key           string
	ttl           time.Duration
	retryInterval time.Duration
}

// NewRedisLocker creates a lock stored under key
func NewRedisLocker(client *redis.Client, key string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:        client,
		key:           key,
		ttl:           ttl,
		retryInterval: 25 * time.Millisecond,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context) (func(), error) {
	owner, err := randomHex(16)
	if err != nil {
		return nil, err
	}

	for {
		if ctx.Err() != nil {
			return nil, ErrLockTimeout
		}
		ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			return l.releaseFunc(owner), nil
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrLockTimeout
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) releaseFunc(owner string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := releaseScript.Run(ctx, l.client, []string{l.key}, owner).Err()
			if err != nil && !errors.Is(err, redis.Nil) {
				logging.Errorf("Failed to release request lock %s: %v", l.key, err)
			}
		})
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
