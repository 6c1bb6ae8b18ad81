package xbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// State 熔断器状态。
type State = gobreaker.State

// 熔断器状态常量。
const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// Breaker 熔断器执行器。
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[struct{}]
}

type options struct {
	failureThreshold uint32
	timeout          time.Duration
	interval         time.Duration
	maxRequests      uint32
	onStateChange    func(name string, from, to State)
	logger           *slog.Logger
}

// Option 熔断器配置选项。
type Option func(*options)

// WithFailureThreshold 连续失败次数达到阈值后熔断，默认 5。
func WithFailureThreshold(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.failureThreshold = n
		}
	}
}

// WithTimeout Open 状态持续多久后进入 HalfOpen，默认 30s。
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithInterval Closed 状态下清零计数的周期，默认 0（不清零）。
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.interval = d
		}
	}
}

// WithMaxRequests HalfOpen 状态允许的探测请求数，默认 1。
func WithMaxRequests(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调。
func WithOnStateChange(f func(name string, from, to State)) Option {
	return func(o *options) {
		o.onStateChange = f
	}
}

// WithLogger 设置日志器，状态变化以 Warn 级别记录。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// isSuccessful ctx 取消视为成功，调用方主动放弃不是下游故障。
func isSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// New 创建熔断器。
func New(name string, opts ...Option) *Breaker {
	o := &options{
		failureThreshold: 5,
		timeout:          30 * time.Second,
		maxRequests:      1,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	st := gobreaker.Settings{
		Name:         name,
		MaxRequests:  o.maxRequests,
		Interval:     o.interval,
		Timeout:      o.timeout,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			o.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			if o.onStateChange != nil {
				o.onStateChange(name, from, to)
			}
		},
	}
	return &Breaker{name: name, cb: gobreaker.NewCircuitBreaker[struct{}](st)}
}

// Do 执行受保护的操作。
// ctx 已结束时直接返回 ctx 错误；熔断拒绝返回 ErrOpen / ErrTooManyRequests。
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return translate(err)
}

// State 返回当前状态。
func (b *Breaker) State() State { return b.cb.State() }

// Name 返回熔断器名称。
func (b *Breaker) Name() string { return b.name }
