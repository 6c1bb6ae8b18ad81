package xcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

type shop struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

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

func newTestCache(t *testing.T, client redis.UniversalClient, opts ...Option) Cache {
	t.Helper()
	opts = append([]Option{WithLogger(xlog.Discard())}, opts...)
	c, err := New(client, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// fakeClock 可手动推进的时钟。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func shopLoader(calls *int, mu *sync.Mutex, result *shop) LoadFunc[shop, int64] {
	return func(_ context.Context, _ int64) (*shop, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return result, nil
	}
}
