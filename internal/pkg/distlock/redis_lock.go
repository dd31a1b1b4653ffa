package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/phishing-simulator/internal/pkg/logger"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLocker provides per-key locking via Redis SET NX with TTL.
// Each acquisition uses a random ownership value and a Lua script for
// atomic release, so a lock that expired and was taken by another process
// is never released by the old owner.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisLocker creates a Redis-backed keyed lock. ttl bounds how long a
// crashed holder can block others.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, retryWait: 25 * time.Millisecond}
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := fmt.Sprintf("lock:%s", key)
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating lock owner: %w", err)
	}
	owner := hex.EncodeToString(b)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, owner, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", redisKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must run even if the caller's context was cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{redisKey}, owner).Err(); err != nil {
				logger.Error("distlock: release failed", "key", redisKey, "error", err)
			}
		})
	}, nil
}
