//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// =============================================================================
// 测试环境设置
// =============================================================================

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("XSECKILL_POSTGRES_DSN")
	if dsn == "" {
		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16-alpine",
				ExposedPorts: []string{"5432/tcp"},
				Env: map[string]string{
					"POSTGRES_USER":     "seckill",
					"POSTGRES_PASSWORD": "seckill",
					"POSTGRES_DB":       "seckill",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).WithStartupTimeout(60 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			t.Skipf("postgres container not available: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(ctx) })

		host, err := container.Host(ctx)
		require.NoError(t, err)
		port, err := container.MappedPort(ctx, "5432/tcp")
		require.NoError(t, err)
		dsn = fmt.Sprintf("host=%s port=%s user=seckill password=seckill dbname=seckill sslmode=disable", host, port.Port())
	}

	db, err := Open(Config{DSN: dsn, MaxOpenConns: 20}, xlog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Ping(ctx, db))
	require.NoError(t, db.Migrator().DropTable(&VoucherOrder{}, &SeckillVoucher{}, &Shop{}, &ShopType{}))
	require.NoError(t, AutoMigrate(ctx, db))
	return db
}

// =============================================================================
// OrderStore
// =============================================================================

func TestOrderStore_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	shops, err := NewShopStore(db)
	require.NoError(t, err)
	orders, err := NewOrderStore(db)
	require.NoError(t, err)

	require.NoError(t, shops.CreateSeckillVoucher(ctx, &SeckillVoucher{VoucherID: 1, Stock: 2}))

	t.Run("条件扣减不会为负", func(t *testing.T) {
		for range 2 {
			ok, err := orders.DecrementStockIfPositive(ctx, 1)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := orders.DecrementStockIfPositive(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)
		stock, err := orders.GetStock(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, stock)
	})

	t.Run("重复订单翻译为 ErrDuplicateOrder", func(t *testing.T) {
		order := xseckill.Order{ID: 10, UserID: 7, VoucherID: 1, CreatedAt: time.Now()}
		require.NoError(t, orders.InsertOrder(ctx, order))
		order.ID = 11
		err := orders.InsertOrder(ctx, order)
		assert.ErrorIs(t, err, xseckill.ErrDuplicateOrder)

		n, err := orders.CountOrders(ctx, 7, 1)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("事务回滚撤销扣减", func(t *testing.T) {
		require.NoError(t, shops.CreateSeckillVoucher(ctx, &SeckillVoucher{VoucherID: 2, Stock: 1}))
		err := orders.WithTransaction(ctx, func(ctx context.Context) error {
			ok, err := orders.DecrementStockIfPositive(ctx, 2)
			require.NoError(t, err)
			require.True(t, ok)
			return orders.InsertOrder(ctx, xseckill.Order{ID: 12, UserID: 7, VoucherID: 1, CreatedAt: time.Now()})
		})
		require.ErrorIs(t, err, xseckill.ErrDuplicateOrder)
		stock, err := orders.GetStock(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, stock)
	})
}

func TestOrderStore_ConcurrentDecrement_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	shops, _ := NewShopStore(db)
	orders, _ := NewOrderStore(db)
	require.NoError(t, shops.CreateSeckillVoucher(ctx, &SeckillVoucher{VoucherID: 3, Stock: 10}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := orders.DecrementStockIfPositive(ctx, 3)
			if assert.NoError(t, err) && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, wins.Load())
	stock, err := orders.GetStock(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, stock)
}

// =============================================================================
// ShopStore
// =============================================================================

func TestShopStore_Integration(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	shops, err := NewShopStore(db)
	require.NoError(t, err)

	got, err := shops.GetShop(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, shops.CreateShop(ctx, &Shop{ID: 1, Name: "茶餐厅", TypeID: 1}))
	got, err = shops.GetShop(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "茶餐厅", got.Name)

	got.Name = "新茶餐厅"
	found, err := shops.UpdateShop(ctx, got)
	require.NoError(t, err)
	assert.True(t, found)
	got, err = shops.GetShop(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "新茶餐厅", got.Name)

	found, err = shops.UpdateShop(ctx, &Shop{ID: 404, Name: "x"})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.Create(&[]ShopType{{ID: 2, Name: "KTV", Sort: 2}, {ID: 1, Name: "美食", Sort: 1}}).Error)
	types, err := shops.ListShopTypes(ctx)
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "美食", types[0].Name)
}
