package distlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// exerciseMutualExclusion increments a shared counter with a deliberately
// racy read-sleep-write while holding the lock.
func exerciseMutualExclusion(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "campaign-1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, counter)
}

func TestLocalLockerMutualExclusion(t *testing.T) {
	exerciseMutualExclusion(t, NewLocalLocker())
}

func TestLocalLockerIndependentKeys(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err, "different keys must not contend")
	unlockB()
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // idempotent

	l.mu.Lock()
	assert.Empty(t, l.locks)
	l.mu.Unlock()
}

func TestRedisLockerMutualExclusion(t *testing.T) {
	_, client := newRedis(t)
	exerciseMutualExclusion(t, NewRedisLocker(client, 5*time.Second))
}

func TestRedisLockerReleaseOnlyOwnLock(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedisLocker(client, time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Lock expires and someone else takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("lock:k", "other-owner"))

	unlock()
	got, err := mr.Get("lock:k")
	require.NoError(t, err)
	assert.Equal(t, "other-owner", got)
}

func TestNewPicksBackend(t *testing.T) {
	_, client := newRedis(t)
	assert.IsType(t, &RedisLocker{}, New(client, time.Second))
	assert.IsType(t, &LocalLocker{}, New(nil, time.Second))
}
