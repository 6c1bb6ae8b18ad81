package xcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestCache_SetAndDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	c := newTestCache(t, client)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "cache:shop:1", shop{ID: 1, Name: "a"}, time.Minute))
	got, err := mr.Get("cache:shop:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"a"}`, got)
	assert.Equal(t, time.Minute, mr.TTL("cache:shop:1"))

	require.NoError(t, c.Delete(ctx, "cache:shop:1"))
	assert.False(t, mr.Exists("cache:shop:1"))
}

func TestCache_SetWithLogicalExpire(t *testing.T) {
	mr, client := newTestRedis(t)
	clock := newFakeClock()
	c := newTestCache(t, client, WithClock(clock.Now))

	require.NoError(t, c.SetWithLogicalExpire(context.Background(), "cache:shop:1", shop{ID: 1}, 30*time.Second))

	got, err := mr.Get("cache:shop:1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"id":1,"name":""},"expireTime":"2024-05-01T12:00:30Z"}`, got)
	// 逻辑过期条目不设置物理 TTL
	assert.Zero(t, mr.TTL("cache:shop:1"))
}

func TestCache_InvalidArguments(t *testing.T) {
	_, client := newTestRedis(t)
	c := newTestCache(t, client)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrEmptyKey)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, 0), ErrInvalidTTL)
	assert.ErrorIs(t, c.SetWithLogicalExpire(ctx, "k", 1, -time.Second), ErrInvalidTTL)
	assert.ErrorIs(t, c.Delete(ctx, ""), ErrEmptyKey)
}

func TestCache_ClosedRejectsOperations(t *testing.T) {
	_, client := newTestRedis(t)
	c := newTestCache(t, client)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Set(context.Background(), "k", 1, time.Minute), ErrClosed)
	_, err := GetOrLoad(context.Background(), c, "cache:shop:", int64(1),
		func(context.Context, int64) (*shop, error) { return nil, nil }, time.Minute)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCache_StoreUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	c := newTestCache(t, client)
	mr.Close()

	err := c.Set(context.Background(), "k", 1, time.Minute)
	assert.ErrorIs(t, err, ErrStore)
}
