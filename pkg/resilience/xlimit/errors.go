package xlimit

import "errors"

var (
	// ErrRateLimited 表示请求被限流。
	ErrRateLimited = errors.New("xlimit: rate limited")

	// ErrRedisUnavailable 表示限流存储不可用。
	ErrRedisUnavailable = errors.New("xlimit: redis unavailable")

	// ErrInvalidRule 表示限流规则无效。
	ErrInvalidRule = errors.New("xlimit: invalid rule")

	// ErrNilClient 表示 Redis 客户端为 nil。
	ErrNilClient = errors.New("xlimit: nil redis client")

	// ErrEmptyKey 表示限流键为空。
	ErrEmptyKey = errors.New("xlimit: empty key")
)
