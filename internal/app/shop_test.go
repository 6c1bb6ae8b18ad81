package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
)

func TestShopService_PassthroughCachesHitAndMiss(t *testing.T) {
	mr, a, repo, _ := newTestApp(t, testConfig())
	repo.put(repository.Shop{ID: 1, Name: "茶餐厅"})
	ctx := context.Background()

	// When: 连续读取存在与不存在的商铺
	for range 3 {
		shop, err := a.Shops().GetShop(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "茶餐厅", shop.Name)

		_, err = a.Shops().GetShop(ctx, 404)
		assert.ErrorIs(t, err, ErrShopNotFound)
	}

	// Then: 每个 id 只回源一次，不存在的 id 写入空值标记
	assert.Equal(t, int32(2), repo.gets.Load())
	marker, err := mr.Get(ShopCachePrefix + "404")
	require.NoError(t, err)
	assert.Empty(t, marker)
	assert.Greater(t, mr.TTL(ShopCachePrefix+"404"), time.Duration(0))
}

func TestShopService_ConcurrentMissLoadsOnce(t *testing.T) {
	_, a, repo, _ := newTestApp(t, testConfig())
	repo.put(repository.Shop{ID: 7, Name: "面馆"})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shop, err := a.Shops().GetShop(context.Background(), 7)
			assert.NoError(t, err)
			assert.Equal(t, int64(7), shop.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), repo.gets.Load())
}

func TestShopService_UpdateInvalidatesPassthrough(t *testing.T) {
	mr, a, repo, _ := newTestApp(t, testConfig())
	repo.put(repository.Shop{ID: 1, Name: "旧名"})
	ctx := context.Background()

	_, err := a.Shops().GetShop(ctx, 1)
	require.NoError(t, err)
	require.True(t, mr.Exists(ShopCachePrefix+"1"))

	// When
	require.NoError(t, a.Shops().UpdateShop(ctx, &repository.Shop{ID: 1, Name: "新名"}))

	// Then: 缓存被删除，下一次读到新值
	assert.False(t, mr.Exists(ShopCachePrefix+"1"))
	shop, err := a.Shops().GetShop(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "新名", shop.Name)
}

func TestShopService_UpdateErrors(t *testing.T) {
	mr, a, repo, _ := newTestApp(t, testConfig())
	repo.put(repository.Shop{ID: 1, Name: "店"})
	ctx := context.Background()

	err := a.Shops().UpdateShop(ctx, &repository.Shop{ID: 99})
	assert.ErrorIs(t, err, ErrShopNotFound)

	err = a.Shops().UpdateShop(ctx, &repository.Shop{})
	assert.ErrorIs(t, err, repository.ErrInvalidShop)

	// 数据库失败时不动缓存
	_, err = a.Shops().GetShop(ctx, 1)
	require.NoError(t, err)
	repo.down.Store(true)
	err = a.Shops().UpdateShop(ctx, &repository.Shop{ID: 1, Name: "x"})
	assert.ErrorIs(t, err, errRepoDown)
	assert.True(t, mr.Exists(ShopCachePrefix+"1"))
}

func TestShopService_LogicalMode(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.ShopMode = ShopModeLogical
	cfg.Prewarm.ShopIDs = []int64{1, 2, 3}
	mr, a, repo, _ := newTestApp(t, cfg)
	repo.put(repository.Shop{ID: 1, Name: "一号店"})
	repo.put(repository.Shop{ID: 2, Name: "二号店"})
	ctx := context.Background()

	// Given: 未预热的商铺视为不存在，且不回源
	_, err := a.Shops().GetShop(ctx, 1)
	assert.ErrorIs(t, err, ErrShopNotFound)
	assert.Zero(t, repo.gets.Load())

	// When: 预热，3 号店数据库不存在
	n, err := a.Prewarm(ctx)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, ErrShopNotFound)

	// Then: 缓存为逻辑过期包装，无物理 TTL
	raw, err := mr.Get(ShopCachePrefix + "1")
	require.NoError(t, err)
	var entry struct {
		Data       repository.Shop `json:"data"`
		ExpireTime time.Time       `json:"expireTime"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, "一号店", entry.Data.Name)
	assert.Zero(t, mr.TTL(ShopCachePrefix+"1"))

	shop, err := a.Shops().GetShop(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "二号店", shop.Name)

	// 更新直接写回新值
	require.NoError(t, a.Shops().UpdateShop(ctx, &repository.Shop{ID: 2, Name: "二号店(新)"}))
	shop, err = a.Shops().GetShop(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "二号店(新)", shop.Name)
}

func TestShopService_PrewarmPassthroughUsesTTL(t *testing.T) {
	cfg := testConfig()
	cfg.Prewarm.ShopIDs = []int64{5}
	mr, a, repo, _ := newTestApp(t, cfg)
	repo.put(repository.Shop{ID: 5, Name: "五号店"})

	n, err := a.Prewarm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Greater(t, mr.TTL(ShopCachePrefix+"5"), time.Duration(0))

	shop, err := a.Shops().GetShop(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "五号店", shop.Name)
	assert.Equal(t, int32(1), repo.gets.Load(), "read after prewarm must hit cache")
}

func TestShopService_ListShopTypes(t *testing.T) {
	_, a, repo, _ := newTestApp(t, testConfig())
	ctx := context.Background()

	// 空表返回空列表而不是 nil
	types, err := a.Shops().ListShopTypes(ctx)
	require.NoError(t, err)
	assert.NotNil(t, types)
	assert.Empty(t, types)

	// 空结果被缓存为空值标记，直到过期
	repo.mu.Lock()
	repo.types = []repository.ShopType{{ID: 1, Name: "美食"}}
	repo.mu.Unlock()
	types, err = a.Shops().ListShopTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)
	assert.Equal(t, int32(1), repo.typeQs.Load())
}

func TestShopService_CorruptedEntry(t *testing.T) {
	mr, a, _, _ := newTestApp(t, testConfig())
	require.NoError(t, mr.Set(ShopCachePrefix+"9", "{not json"))

	_, err := a.Shops().GetShop(context.Background(), 9)
	assert.ErrorIs(t, err, xcache.ErrCorrupted)
}
