package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/distributed/xcron"
	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/lifecycle/xrun"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/resilience/xbreaker"
	"github.com/omeyang/xseckill/pkg/resilience/xlimit"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
	"github.com/omeyang/xseckill/pkg/util/xid"
)

// LimitKeyPrefix 限流计数 key 前缀。
const LimitKeyPrefix = "xseckill:limit:"

// ===================== Options =====================

type appOptions struct {
	logger   *slog.Logger
	observer xmetrics.Observer
	redis    redis.UniversalClient
	shops    ShopRepository
	orders   xseckill.Store
}

// Option App 构建选项。
type Option func(*appOptions)

// WithLogger 设置日志记录器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) { o.logger = logger }
}

// WithObserver 设置可观测性接口，默认使用全局 OTel provider。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *appOptions) { o.observer = obs }
}

// WithRedis 注入 Redis 客户端，App 不负责关闭。
func WithRedis(client redis.UniversalClient) Option {
	return func(o *appOptions) { o.redis = client }
}

// WithStores 注入数据源，设置后不再连接数据库。
func WithStores(shops ShopRepository, orders xseckill.Store) Option {
	return func(o *appOptions) {
		o.shops = shops
		o.orders = orders
	}
}

// ===================== App =====================

// App 持有全部运行期依赖。
type App struct {
	cfg       Config
	logger    *slog.Logger
	redis     redis.UniversalClient
	cache     xcache.Cache
	pipeline  *xseckill.Pipeline
	shops     *ShopService
	vouchers  *VoucherService
	limiter   *xlimit.Limiter
	scheduler *xcron.Scheduler
	handler   http.Handler
	closers   []func() error
}

// New 按配置构建 App。失败时已创建的资源会被释放。
func New(ctx context.Context, cfg Config, opts ...Option) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{cfg: cfg, logger: xlog.OrDefault(o.logger)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if o.observer == nil {
		if o.observer, err = xmetrics.NewOTelObserver(xmetrics.WithInstrumentationName("xseckill")); err != nil {
			return nil, err
		}
	}

	a.redis = o.redis
	if a.redis == nil {
		a.redis = newRedisClient(cfg.Redis)
		a.closers = append(a.closers, a.redis.Close)
	}

	shopRepo, orderStore := o.shops, o.orders
	if shopRepo == nil || orderStore == nil {
		if shopRepo, orderStore, err = a.openStores(ctx); err != nil {
			return nil, err
		}
	}

	locker, err := a.newLocker()
	if err != nil {
		return nil, err
	}

	a.cache, err = xcache.New(a.redis,
		xcache.WithLocker(locker),
		xcache.WithNullTTL(cfg.Cache.NullTTL),
		xcache.WithRebuildLockTTL(cfg.Cache.RebuildLockTTL),
		xcache.WithRebuildWorkers(cfg.Cache.RebuildWorkers),
		xcache.WithRebuildQueueSize(cfg.Cache.RebuildQueueSize),
		xcache.WithObserver(o.observer),
		xcache.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.cache.Close)

	ids, err := xid.NewGenerator(a.redis)
	if err != nil {
		return nil, err
	}
	breaker := xbreaker.New("xseckill-store",
		xbreaker.WithFailureThreshold(cfg.Breaker.FailureThreshold),
		xbreaker.WithTimeout(cfg.Breaker.Timeout),
		xbreaker.WithInterval(cfg.Breaker.Interval),
		xbreaker.WithMaxRequests(cfg.Breaker.MaxRequests),
		xbreaker.WithLogger(a.logger),
	)
	a.pipeline, err = xseckill.New(a.redis, orderStore, ids, locker,
		xseckill.WithStream(cfg.Seckill.Stream),
		xseckill.WithGroup(cfg.Seckill.Group),
		xseckill.WithConsumer(cfg.Seckill.Consumer),
		xseckill.WithBlock(cfg.Seckill.Block),
		xseckill.WithLockTTL(cfg.Seckill.LockTTL),
		xseckill.WithClaimIdle(cfg.Seckill.ClaimIdle),
		xseckill.WithBreaker(breaker),
		xseckill.WithObserver(o.observer),
		xseckill.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Limit.Enabled {
		a.limiter, err = xlimit.New(a.redis,
			xlimit.Rule{Rate: cfg.Limit.Rate, Burst: cfg.Limit.Burst, Period: cfg.Limit.Period},
			xlimit.WithKeyPrefix(LimitKeyPrefix),
			xlimit.WithLogger(a.logger),
		)
		if err != nil {
			return nil, err
		}
	}

	a.shops = NewShopService(a.cache, shopRepo, cfg.Cache, a.logger)
	a.vouchers = NewVoucherService(shopRepo, a.pipeline, a.logger)
	a.handler = NewRouter(NewHandler(a.shops, a.vouchers, a.pipeline, a.logger), a.limiter)

	a.scheduler = xcron.New(xcron.WithLocker(locker), xcron.WithLogger(a.logger))
	if err := a.schedulePrewarm(); err != nil {
		return nil, err
	}
	return a, nil
}

// Handler 返回 HTTP 路由。
func (a *App) Handler() http.Handler { return a.handler }

// Shops 返回商铺服务。
func (a *App) Shops() *ShopService { return a.shops }

// Vouchers 返回秒杀券服务。
func (a *App) Vouchers() *VoucherService { return a.vouchers }

// Pipeline 返回下单流水线。
func (a *App) Pipeline() *xseckill.Pipeline { return a.pipeline }

// Services 返回需要由 xrun 托管的后台服务：HTTP、订单消费者与预热调度。
func (a *App) Services() []xrun.Service {
	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.handler,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}
	return []xrun.Service{
		xrun.Named("http", xrun.HTTPServer(srv, a.cfg.HTTP.ShutdownTimeout)),
		xrun.Named("order-consumer", a.pipeline.Run),
		xrun.Named("scheduler", a.runScheduler),
	}
}

// Close 按创建的逆序释放资源。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStores(ctx context.Context) (ShopRepository, xseckill.Store, error) {
	db, err := repository.Open(a.cfg.Database, a.logger)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, func() error { return repository.Close(db) })

	if err := repository.Ping(ctx, db); err != nil {
		return nil, nil, err
	}
	if a.cfg.Database.AutoMigrate {
		if err := repository.AutoMigrate(ctx, db); err != nil {
			return nil, nil, err
		}
	}
	return newStores(db)
}

func newStores(db *gorm.DB) (ShopRepository, xseckill.Store, error) {
	shops, err := repository.NewShopStore(db)
	if err != nil {
		return nil, nil, err
	}
	orders, err := repository.NewOrderStore(db)
	if err != nil {
		return nil, nil, err
	}
	return shops, orders, nil
}

// newLocker 按配置创建锁。redsync 后端在主 Redis 之外加入额外节点，按多数派加锁。
func (a *App) newLocker() (xdlock.Locker, error) {
	if a.cfg.Lock.Backend != LockBackendRedsync {
		return xdlock.NewRedisLocker(a.redis)
	}
	clients := []redis.UniversalClient{a.redis}
	for _, addr := range a.cfg.Lock.Nodes {
		c := redis.NewClient(&redis.Options{Addr: addr, Password: a.cfg.Redis.Password})
		a.closers = append(a.closers, c.Close)
		clients = append(clients, c)
	}
	locker, err := xdlock.NewRedsyncLocker(clients)
	if err != nil {
		return nil, fmt.Errorf("app: create redsync locker: %w", err)
	}
	return locker, nil
}

func newRedisClient(cfg RedisConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
