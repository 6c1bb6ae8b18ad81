package xseckill

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

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/util/xid"
)

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

func newTestPipeline(t *testing.T, client redis.UniversalClient, store Store, opts ...Option) *Pipeline {
	t.Helper()
	ids, err := xid.NewGenerator(client)
	require.NoError(t, err)
	locker, err := xdlock.NewRedisLocker(client)
	require.NoError(t, err)

	opts = append([]Option{
		WithLogger(xlog.Discard()),
		WithBlock(50 * time.Millisecond),
		WithRecoveryBackoff(time.Millisecond, 10*time.Millisecond),
	}, opts...)
	p, err := New(client, store, ids, locker, opts...)
	require.NoError(t, err)
	return p
}

// runConsumer 后台运行消费循环，返回停止函数。
func runConsumer(t *testing.T, p *Pipeline) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("consumer did not stop")
		}
	}
}

// memStore 内存版 Store，事务通过快照回滚实现，事务之间串行。
type memStore struct {
	txMu sync.Mutex

	mu     sync.Mutex
	stock  map[int64]int
	orders []Order

	failInserts atomic.Int32
	inserts     atomic.Int32
}

func newMemStore(stock map[int64]int) *memStore {
	s := &memStore{stock: map[int64]int{}}
	for k, v := range stock {
		s.stock[k] = v
	}
	return s
}

func (s *memStore) GetStock(_ context.Context, voucherID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stock[voucherID], nil
}

func (s *memStore) DecrementStockIfPositive(_ context.Context, voucherID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stock[voucherID] <= 0 {
		return false, nil
	}
	s.stock[voucherID]--
	return true, nil
}

func (s *memStore) CountOrders(_ context.Context, userID, voucherID int64) (int64, error) {
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

func (s *memStore) InsertOrder(_ context.Context, order Order) error {
	s.inserts.Add(1)
	if s.failInserts.Load() > 0 {
		s.failInserts.Add(-1)
		return errInjected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.UserID == order.UserID && o.VoucherID == order.VoucherID {
			return ErrDuplicateOrder
		}
	}
	s.orders = append(s.orders, order)
	return nil
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	stock := make(map[int64]int, len(s.stock))
	for k, v := range s.stock {
		stock[k] = v
	}
	orders := append([]Order(nil), s.orders...)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.stock, s.orders = stock, orders
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Order(nil), s.orders...)
}

var errInjected = errors.New("injected failure")
