package xretry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Retryer 重试执行器，零值不可用，请使用 NewRetryer。
type Retryer struct {
	maxAttempts int
	backoff     BackoffPolicy
	onRetry     func(attempt int, err error)
	retryIf     func(err error) bool
}

// Option 执行器配置选项。
type Option func(*Retryer)

// WithMaxAttempts 设置最大尝试次数（含首次），0 表示无限重试。
func WithMaxAttempts(n int) Option {
	return func(r *Retryer) {
		if n >= 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff 设置退避策略。
func WithBackoff(p BackoffPolicy) Option {
	return func(r *Retryer) {
		if p != nil {
			r.backoff = p
		}
	}
}

// WithOnRetry 设置每次失败后的回调，attempt 从 1 开始。
func WithOnRetry(f func(attempt int, err error)) Option {
	return func(r *Retryer) {
		if f != nil {
			r.onRetry = f
		}
	}
}

// WithRetryIf 设置可重试判定，返回 false 立即结束。
func WithRetryIf(f func(err error) bool) Option {
	return func(r *Retryer) {
		if f != nil {
			r.retryIf = f
		}
	}
}

// NewRetryer 创建重试执行器，默认 3 次尝试 + 指数退避（100ms 起，上限 5s）。
func NewRetryer(opts ...Option) *Retryer {
	r := &Retryer{
		maxAttempts: 3,
		backoff:     NewExponentialBackoff(100*time.Millisecond, 5*time.Second),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Do 执行 fn 直到成功、不可重试、次数耗尽或 ctx 结束，返回最后一次错误。
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilFunc
	}
	return retry.New(r.options(ctx)...).Do(func() error {
		return fn(ctx)
	})
}

func (r *Retryer) options(ctx context.Context) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ retry.DelayContext) time.Duration {
			return r.backoff.NextDelay(toInt(n))
		}),
	}
	if r.maxAttempts == 0 {
		opts = append(opts, retry.UntilSucceeded())
	} else {
		opts = append(opts, retry.Attempts(uint(r.maxAttempts)))
	}
	if r.retryIf != nil {
		retryIf := r.retryIf
		opts = append(opts, retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && retryIf(err)
		}))
	}
	if r.onRetry != nil {
		opts = append(opts, retry.OnRetry(func(n uint, err error) {
			// retry-go 的 n 从 0 开始
			r.onRetry(toInt(n)+1, err)
		}))
	}
	return opts
}

func toInt(n uint) int {
	if n > uint(math.MaxInt) {
		return math.MaxInt
	}
	return int(n)
}
