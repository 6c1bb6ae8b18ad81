package xcache

import (
	"log/slog"
	"time"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

// 默认配置。
const (
	DefaultNullTTL          = 2 * time.Minute
	DefaultRebuildLockTTL   = 10 * time.Second
	DefaultRebuildWorkers   = 10
	DefaultRebuildQueueSize = 100
	DefaultLoadTimeout      = 30 * time.Second
)

type options struct {
	locker           xdlock.Locker
	nullTTL          time.Duration
	rebuildLockTTL   time.Duration
	rebuildWorkers   int
	rebuildQueueSize int
	loadTimeout      time.Duration
	singleflight     bool
	logger           *slog.Logger
	observer         xmetrics.Observer
	now              func() time.Time
}

// Option 缓存配置选项。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		nullTTL:          DefaultNullTTL,
		rebuildLockTTL:   DefaultRebuildLockTTL,
		rebuildWorkers:   DefaultRebuildWorkers,
		rebuildQueueSize: DefaultRebuildQueueSize,
		loadTimeout:      DefaultLoadTimeout,
		singleflight:     true,
		logger:           slog.Default(),
		observer:         xmetrics.NoopObserver{},
		now:              time.Now,
	}
}

// WithLocker 设置重建租约使用的锁，默认基于同一 Redis 的 xdlock.NewRedisLocker。
func WithLocker(l xdlock.Locker) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
	}
}

// WithNullTTL 设置空值标记的 TTL，默认 2 分钟。
func WithNullTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.nullTTL = d
		}
	}
}

// WithRebuildLockTTL 设置重建租约时长，默认 10 秒。
func WithRebuildLockTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.rebuildLockTTL = d
		}
	}
}

// WithRebuildWorkers 设置重建 worker 数量，默认 10。
func WithRebuildWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.rebuildWorkers = n
		}
	}
}

// WithRebuildQueueSize 设置重建队列容量，默认 100；队列满时提交被拒绝并释放租约。
func WithRebuildQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.rebuildQueueSize = n
		}
	}
}

// WithLoadTimeout 设置合并回源与异步重建的超时，默认 30 秒。
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// WithSingleflight 是否合并同一 key 的进程内并发回源，默认开启。
func WithSingleflight(enable bool) Option {
	return func(o *options) { o.singleflight = enable }
}

// WithLogger 设置日志器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置观测器，记录命中、穿透拦截、重建等事件。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock 替换逻辑过期判断使用的时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
