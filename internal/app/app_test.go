package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/distributed/xcron"
	"github.com/omeyang/xseckill/pkg/lifecycle/xrun"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Lock.Backend = "zookeeper"

	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_RequiresDSNWithoutStores(t *testing.T) {
	_, client := newTestRedis(t)

	_, err := New(context.Background(), testConfig(),
		WithRedis(client), WithLogger(xlog.Discard()), WithObserver(xmetrics.NoopObserver{}))
	assert.ErrorIs(t, err, repository.ErrEmptyDSN)
}

func TestNew_InvalidPrewarmSpec(t *testing.T) {
	_, client := newTestRedis(t)
	cfg := testConfig()
	cfg.Prewarm = PrewarmConfig{Spec: "every tuesday", ShopIDs: []int64{1}}

	_, err := New(context.Background(), cfg,
		WithRedis(client),
		WithStores(newFakeShopRepo(), newFakeOrderStore()),
		WithLogger(xlog.Discard()),
		WithObserver(xmetrics.NoopObserver{}))
	assert.ErrorIs(t, err, xcron.ErrInvalidSpec)
}

func TestNew_RedsyncBackend(t *testing.T) {
	extra := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Lock = LockConfig{Backend: LockBackendRedsync, Nodes: []string{extra.Addr()}}
	_, a, repo, _ := newTestApp(t, cfg)
	repo.put(repository.Shop{ID: 1, Name: "店"})

	shop, err := a.Shops().GetShop(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "店", shop.Name)
}

func TestApp_ServicesRunAndStop(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.ShopMode = ShopModeLogical
	cfg.Prewarm = PrewarmConfig{Spec: "@every 1h", ShopIDs: []int64{1}}
	mr, a, repo, _ := newTestApp(t, cfg)
	repo.put(repository.Shop{ID: 1, Name: "热点店"})

	services := a.Services()
	require.Len(t, services, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- xrun.Run(ctx, []xrun.Option{xrun.WithoutSignalHandler(), xrun.WithLogger(xlog.Discard())}, services...)
	}()

	// Then: 逻辑过期模式启动即预热
	require.Eventually(t, func() bool { return mr.Exists(ShopCachePrefix + "1") }, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("services did not stop")
	}
}

func TestApp_CloseIdempotent(t *testing.T) {
	_, a, _, _ := newTestApp(t, testConfig())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, level, closer, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer func() { _ = closer() }()

	logger.Info("dropped")
	logger.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
	assert.NotNil(t, level)

	_, _, _, err = NewLogger(LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

func TestPrewarmRetryable(t *testing.T) {
	cfg := testConfig()
	cfg.Prewarm.ShopIDs = []int64{1, 2}
	_, a, repo, _ := newTestApp(t, cfg)
	repo.put(repository.Shop{ID: 1, Name: "一号店"})
	ctx := context.Background()

	// 仅有不存在的商铺：重试无意义
	_, err := a.Prewarm(ctx)
	require.ErrorIs(t, err, ErrShopNotFound)
	assert.False(t, prewarmRetryable(err))

	// 数据库故障：重试
	repo.down.Store(true)
	_, err = a.Prewarm(ctx)
	require.ErrorIs(t, err, errRepoDown)
	assert.True(t, prewarmRetryable(err))

	assert.True(t, prewarmRetryable(errors.New("redis down")))
	assert.False(t, prewarmRetryable(ErrShopNotFound))
}

func TestPrewarmRetryer_StopsOnNotFound(t *testing.T) {
	var calls int
	err := prewarmRetryer().Do(context.Background(), func(context.Context) error {
		calls++
		return errors.Join(fmt.Errorf("warm shop 9: %w", ErrShopNotFound))
	})
	assert.ErrorIs(t, err, ErrShopNotFound)
	assert.Equal(t, 1, calls)
}
