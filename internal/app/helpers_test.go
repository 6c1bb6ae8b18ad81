package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/internal/pool.(*ConnPool).tryDial"),
		goleak.IgnoreTopFunction("github.com/redis/go-redis/v9/maintnotifications.(*CircuitBreakerManager).cleanupLoop"),
		goleak.IgnoreTopFunction("time.Sleep"),
	)
}

var errRepoDown = errors.New("repository down")

func newTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:         mr.Addr(),
		DialTimeout:  200 * time.Millisecond,
		ReadTimeout:  200 * time.Millisecond,
		WriteTimeout: 200 * time.Millisecond,
		PoolSize:     8,
		MaxRetries:   1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.Seckill.Block = 50 * time.Millisecond
	cfg.Limit.Enabled = false
	return cfg
}

// newTestApp 用 miniredis 与内存数据源构建 App。
func newTestApp(t *testing.T, cfg Config) (*miniredis.Miniredis, *App, *fakeShopRepo, *fakeOrderStore) {
	t.Helper()
	mr, client := newTestRedis(t)
	shops := newFakeShopRepo()
	orders := newFakeOrderStore()
	a, err := New(context.Background(), cfg,
		WithRedis(client),
		WithStores(shops, orders),
		WithLogger(xlog.Discard()),
		WithObserver(xmetrics.NoopObserver{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return mr, a, shops, orders
}

// =============================================================================
// fakeShopRepo
// =============================================================================

type fakeShopRepo struct {
	mu       sync.Mutex
	shops    map[int64]repository.Shop
	types    []repository.ShopType
	vouchers map[int64]repository.SeckillVoucher

	down   atomic.Bool
	gets   atomic.Int32
	typeQs atomic.Int32
}

func newFakeShopRepo() *fakeShopRepo {
	return &fakeShopRepo{
		shops:    map[int64]repository.Shop{},
		vouchers: map[int64]repository.SeckillVoucher{},
	}
}

func (r *fakeShopRepo) put(shop repository.Shop) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shops[shop.ID] = shop
}

func (r *fakeShopRepo) GetShop(_ context.Context, id int64) (*repository.Shop, error) {
	r.gets.Add(1)
	if r.down.Load() {
		return nil, errRepoDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	shop, ok := r.shops[id]
	if !ok {
		return nil, nil
	}
	return &shop, nil
}

func (r *fakeShopRepo) UpdateShop(_ context.Context, shop *repository.Shop) (bool, error) {
	if shop == nil || shop.ID <= 0 {
		return false, repository.ErrInvalidShop
	}
	if r.down.Load() {
		return false, errRepoDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shops[shop.ID]; !ok {
		return false, nil
	}
	r.shops[shop.ID] = *shop
	return true, nil
}

func (r *fakeShopRepo) ListShopTypes(context.Context) ([]repository.ShopType, error) {
	r.typeQs.Add(1)
	if r.down.Load() {
		return nil, errRepoDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repository.ShopType(nil), r.types...), nil
}

func (r *fakeShopRepo) CreateSeckillVoucher(_ context.Context, v *repository.SeckillVoucher) error {
	if v == nil || v.VoucherID <= 0 || v.Stock < 0 {
		return repository.ErrInvalidVoucher
	}
	if r.down.Load() {
		return errRepoDown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vouchers[v.VoucherID] = *v
	return nil
}

// =============================================================================
// fakeOrderStore
// =============================================================================

type fakeOrderStore struct {
	mu     sync.Mutex
	stock  map[int64]int
	orders []xseckill.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{stock: map[int64]int{}}
}

func (s *fakeOrderStore) setStock(voucherID int64, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[voucherID] = n
}

func (s *fakeOrderStore) Orders() []xseckill.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]xseckill.Order(nil), s.orders...)
}

func (s *fakeOrderStore) GetStock(_ context.Context, voucherID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[voucherID], nil
}

func (s *fakeOrderStore) DecrementStockIfPositive(_ context.Context, voucherID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stock[voucherID] <= 0 {
		return false, nil
	}
	s.stock[voucherID]--
	return true, nil
}

func (s *fakeOrderStore) CountOrders(_ context.Context, userID, voucherID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.orders {
		if o.UserID == userID && o.VoucherID == voucherID {
			n++
		}
	}
	return n, nil
}

func (s *fakeOrderStore) InsertOrder(_ context.Context, order xseckill.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.UserID == order.UserID && o.VoucherID == order.VoucherID {
			return xseckill.ErrDuplicateOrder
		}
	}
	s.orders = append(s.orders, order)
	return nil
}

func (s *fakeOrderStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
