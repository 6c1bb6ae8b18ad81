package xretry

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffPolicy 计算第 attempt 次（从 1 开始）失败后的等待时长。
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// FixedBackoff 固定延迟。
type FixedBackoff time.Duration

// NextDelay 实现 BackoffPolicy。
func (b FixedBackoff) NextDelay(int) time.Duration { return time.Duration(b) }

// ExponentialBackoff 指数退避：initial * 2^(attempt-1)，上限 max，附加 ±jitter 比例抖动。
type ExponentialBackoff struct {
	initial time.Duration
	max     time.Duration
	jitter  float64
}

// NewExponentialBackoff 创建指数退避，jitter 默认 0.2。
// initial <= 0 时取 100ms；max < initial 时取 initial。
func NewExponentialBackoff(initial, max time.Duration) *ExponentialBackoff {
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if max < initial {
		max = initial
	}
	return &ExponentialBackoff{initial: initial, max: max, jitter: 0.2}
}

// WithJitter 返回设置了抖动比例（0~1）的副本。
func (b *ExponentialBackoff) WithJitter(j float64) *ExponentialBackoff {
	cp := *b
	cp.jitter = math.Min(math.Max(j, 0), 1)
	return &cp
}

// NextDelay 实现 BackoffPolicy。
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.initial) * math.Pow(2, float64(attempt-1))
	if d > float64(b.max) || math.IsInf(d, 0) {
		d = float64(b.max)
	}
	if b.jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.jitter
	}
	return time.Duration(math.Min(d, float64(b.max)))
}
