// Package distlock provides mutual exclusion scoped to a single key.
//
// The campaign store uses it to linearize counter updates per campaign id
// while leaving different ids free to proceed in parallel.
package distlock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker acquires exclusive access to a key. Lock blocks until the key is
// free or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// New returns a lock backend. If redisClient is non-nil, uses Redis;
// otherwise falls back to an in-process keyed mutex. Redis locks do not make
// a data directory multi-writer: filestore.Open still admits one process.
func New(redisClient *redis.Client, ttl time.Duration) Locker {
	if redisClient != nil {
		return NewRedisLocker(redisClient, ttl)
	}
	return NewLocalLocker()
}

// =============================================================================
// In-process keyed mutex (default backend)
// =============================================================================

// LocalLocker hands out one mutex per key. Entries are reference counted and
// dropped once no goroutine holds or waits on them, so the map stays bounded
// by the number of keys in use.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates an empty keyed mutex.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

// Lock acquires key.
func (l *LocalLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *LocalLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}
