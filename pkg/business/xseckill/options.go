package xseckill

import (
	"log/slog"
	"time"

	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/resilience/xbreaker"
)

// 默认配置。
const (
	DefaultStream   = "stream.orders"
	DefaultGroup    = "g1"
	DefaultConsumer = "c1"
	DefaultBlock    = 2 * time.Second
	DefaultLockTTL  = 10 * time.Second

	DefaultRecoveryInitial = 20 * time.Millisecond
	DefaultRecoveryMax     = 2 * time.Second

	// StockKeyPrefix Redis 库存 key 前缀。
	StockKeyPrefix = "seckill:stock:"
	// OrderKeyPrefix 已下单用户集合 key 前缀。
	OrderKeyPrefix = "seckill:order:"
	// OrderLockPrefix 用户级履约锁名前缀。
	OrderLockPrefix = "order:"
	// OrderIDNamespace 订单号命名空间。
	OrderIDNamespace = "order"
)

type options struct {
	stream          string
	group           string
	consumer        string
	block           time.Duration
	lockTTL         time.Duration
	claimIdle       time.Duration
	breaker         *xbreaker.Breaker
	observer        xmetrics.Observer
	logger          *slog.Logger
	recoveryInitial time.Duration
	recoveryMax     time.Duration
	now             func() time.Time
}

// Option 流水线配置选项。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		stream:          DefaultStream,
		group:           DefaultGroup,
		consumer:        DefaultConsumer,
		block:           DefaultBlock,
		lockTTL:         DefaultLockTTL,
		observer:        xmetrics.NoopObserver{},
		logger:          slog.Default(),
		recoveryInitial: DefaultRecoveryInitial,
		recoveryMax:     DefaultRecoveryMax,
		now:             time.Now,
	}
}

// WithStream 设置订单流名称，默认 stream.orders。
func WithStream(name string) Option {
	return func(o *options) {
		if name != "" {
			o.stream = name
		}
	}
}

// WithGroup 设置消费组名称，默认 g1。
func WithGroup(name string) Option {
	return func(o *options) {
		if name != "" {
			o.group = name
		}
	}
}

// WithConsumer 设置消费者名称，默认 c1。多实例部署时每个进程应使用不同名称。
func WithConsumer(name string) Option {
	return func(o *options) {
		if name != "" {
			o.consumer = name
		}
	}
}

// WithBlock 设置 XREADGROUP 的阻塞时长，默认 2 秒。
func WithBlock(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.block = d
		}
	}
}

// WithLockTTL 设置用户级履约锁的租约时长，默认 10 秒。
func WithLockTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTTL = d
		}
	}
}

// WithClaimIdle 开启 XAUTOCLAIM：恢复阶段接管空闲超过 d 的他人 pending 消息。
// 默认 0，不接管。
func WithClaimIdle(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.claimIdle = d
		}
	}
}

// WithBreaker 设置保护数据库调用的熔断器，默认 xbreaker.New("xseckill-store")。
func WithBreaker(b *xbreaker.Breaker) Option {
	return func(o *options) {
		if b != nil {
			o.breaker = b
		}
	}
}

// WithObserver 设置观测器。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecoveryBackoff 设置 pending 恢复失败后的退避区间，默认 20ms 起、上限 2s。
func WithRecoveryBackoff(initial, maxDelay time.Duration) Option {
	return func(o *options) {
		if initial > 0 {
			o.recoveryInitial = initial
		}
		if maxDelay >= o.recoveryInitial {
			o.recoveryMax = maxDelay
		}
	}
}

// WithClock 替换订单创建时间使用的时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
