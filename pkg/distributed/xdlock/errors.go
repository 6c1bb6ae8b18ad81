package xdlock

import "errors"

var (
	// ErrNilClient 客户端为空。
	ErrNilClient = errors.New("xdlock: client is nil")

	// ErrEmptyKey 锁名为空。
	ErrEmptyKey = errors.New("xdlock: key must not be empty")

	// ErrInvalidTTL 租约时长必须为正。
	ErrInvalidTTL = errors.New("xdlock: ttl must be positive")

	// ErrNotLocked 续期时发现锁已过期或被他人持有。
	ErrNotLocked = errors.New("xdlock: not locked")

	// ErrLockFailed 锁服务异常导致获取失败。
	ErrLockFailed = errors.New("xdlock: failed to acquire lock")
)
