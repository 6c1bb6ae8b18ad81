package xid

import "time"

// DefaultEpoch 2022-01-01T00:00:00Z。
const DefaultEpoch int64 = 1640995200

// DefaultKeyPrefix 计数器 key 前缀。
const DefaultKeyPrefix = "inc:"

type options struct {
	epoch     int64
	keyPrefix string
	now       func() time.Time
	location  *time.Location
}

// Option 配置选项函数。
type Option func(*options)

// WithEpoch 设置起始秒（Unix 秒）。
func WithEpoch(sec int64) Option {
	return func(o *options) { o.epoch = sec }
}

// WithKeyPrefix 设置计数器 key 前缀，默认 "inc:"。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

// WithClock 替换时钟，测试用。
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocation 设置日期分桶所用时区，默认 UTC。
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}
