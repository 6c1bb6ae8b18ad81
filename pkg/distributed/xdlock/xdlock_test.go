package xdlock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:         mr.Addr(),
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
		PoolSize:     4,
		MaxRetries:   1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// lockers 两种后端共享同一契约测试。
func lockers(t *testing.T, client redis.UniversalClient) map[string]Locker {
	t.Helper()
	simple, err := NewRedisLocker(client, WithOwnerID("proc-a"))
	require.NoError(t, err)
	rs, err := NewRedsyncLocker([]redis.UniversalClient{client}, WithOwnerID("proc-a"))
	require.NoError(t, err)
	return map[string]Locker{"redis": simple, "redsync": rs}
}

func TestLocker_AcquireContendRelease(t *testing.T) {
	_, client := newTestRedis(t)
	for name, l := range lockers(t, client) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Given: 第一次获取成功
			h1, err := l.TryLock(ctx, "order:1-"+name, 10*time.Second)
			require.NoError(t, err)
			require.NotNil(t, h1)
			assert.Equal(t, "lock:order:1-"+name, h1.Key())
			assert.True(t, strings.HasPrefix(h1.Token(), "proc-a-"))

			// When: 第二次获取
			h2, err := l.TryLock(ctx, "order:1-"+name, 10*time.Second)

			// Then: 竞争返回 (nil, nil)
			require.NoError(t, err)
			assert.Nil(t, h2)

			// 释放后可再次获取
			require.NoError(t, h1.Unlock(ctx))
			h3, err := l.TryLock(ctx, "order:1-"+name, 10*time.Second)
			require.NoError(t, err)
			require.NotNil(t, h3)
			assert.NotEqual(t, h1.Token(), h3.Token())
			require.NoError(t, h3.Unlock(ctx))
		})
	}
}

func TestLocker_ExpiredHolderCannotDeleteNewOwner(t *testing.T) {
	mr, client := newTestRedis(t)
	for name, l := range lockers(t, client) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := "shop:7-" + name

			// Given: A 持有锁后租约过期，B 重新获取
			a, err := l.TryLock(ctx, key, time.Second)
			require.NoError(t, err)
			require.NotNil(t, a)
			mr.FastForward(2 * time.Second)

			b, err := l.TryLock(ctx, key, 10*time.Second)
			require.NoError(t, err)
			require.NotNil(t, b)

			// When: A 迟到的释放
			require.NoError(t, a.Unlock(ctx))

			// Then: B 的锁仍在
			got, err := client.Get(ctx, "lock:"+key).Result()
			require.NoError(t, err)
			assert.Equal(t, b.Token(), got)

			c, err := l.TryLock(ctx, key, time.Second)
			require.NoError(t, err)
			assert.Nil(t, c)
			require.NoError(t, b.Unlock(ctx))
		})
	}
}

func TestRedisLocker_Extend(t *testing.T) {
	mr, client := newTestRedis(t)
	l, err := NewRedisLocker(client)
	require.NoError(t, err)
	ctx := context.Background()

	h, err := l.TryLock(ctx, "job", time.Second)
	require.NoError(t, err)
	require.NotNil(t, h)

	require.NoError(t, h.Extend(ctx, 5*time.Second))
	mr.FastForward(2 * time.Second)
	assert.True(t, mr.Exists("lock:job"))

	mr.FastForward(4 * time.Second)
	assert.ErrorIs(t, h.Extend(ctx, time.Second), ErrNotLocked)
	assert.ErrorIs(t, h.Extend(ctx, 0), ErrInvalidTTL)
}

func TestRedsyncLocker_ExtendSameTTL(t *testing.T) {
	_, client := newTestRedis(t)
	l, err := NewRedsyncLocker([]redis.UniversalClient{client})
	require.NoError(t, err)
	ctx := context.Background()

	h, err := l.TryLock(ctx, "job", 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, h)
	require.NoError(t, h.Extend(ctx, 2*time.Second))
	assert.ErrorIs(t, h.Extend(ctx, time.Second), ErrInvalidTTL)
	require.NoError(t, h.Unlock(ctx))
}

func TestLocker_MutualExclusionUnderConcurrency(t *testing.T) {
	_, client := newTestRedis(t)
	l, err := NewRedisLocker(client)
	require.NoError(t, err)

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := l.TryLock(context.Background(), "hot", 10*time.Second)
			if err == nil && h != nil {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), acquired.Load())
}

func TestRelease_Contract(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "lock:x", "tok-1", 0).Err())

	ok, err := Release(ctx, client, "lock:x", "tok-2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Release(ctx, client, "lock:x", "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Release(ctx, client, "lock:x", "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnlock_CanceledContextStillReleases(t *testing.T) {
	_, client := newTestRedis(t)
	l, err := NewRedisLocker(client)
	require.NoError(t, err)

	h, err := l.TryLock(context.Background(), "c", 10*time.Second)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Unlock(ctx))

	n, err := client.Exists(context.Background(), "lock:c").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestValidation(t *testing.T) {
	_, err := NewRedisLocker(nil)
	assert.ErrorIs(t, err, ErrNilClient)
	_, err = NewRedsyncLocker(nil)
	assert.ErrorIs(t, err, ErrNilClient)
	_, err = NewRedsyncLocker([]redis.UniversalClient{nil})
	assert.ErrorIs(t, err, ErrNilClient)

	_, client := newTestRedis(t)
	for name, l := range lockers(t, client) {
		t.Run(name, func(t *testing.T) {
			_, err := l.TryLock(context.Background(), " ", time.Second)
			assert.ErrorIs(t, err, ErrEmptyKey)
			_, err = l.TryLock(context.Background(), "k", 0)
			assert.ErrorIs(t, err, ErrInvalidTTL)
		})
	}
}

func TestRedisLocker_StoreDown(t *testing.T) {
	mr, client := newTestRedis(t)
	l, err := NewRedisLocker(client)
	require.NoError(t, err)
	mr.Close()

	h, err := l.TryLock(context.Background(), "k", time.Second)
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrLockFailed)
}
