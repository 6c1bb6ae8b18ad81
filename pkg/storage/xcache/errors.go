package xcache

import "errors"

var (
	// ErrNotFound 数据不存在（包括已确认不存在的空值标记）。
	ErrNotFound = errors.New("xcache: not found")

	// ErrCorrupted 缓存内容无法解析。
	ErrCorrupted = errors.New("xcache: corrupted cache entry")

	// ErrNilLoader loader 函数为 nil。
	ErrNilLoader = errors.New("xcache: loader is nil")

	// ErrEmptyKey 缓存 key 为空。
	ErrEmptyKey = errors.New("xcache: empty key")

	// ErrNilClient Redis 客户端为 nil。
	ErrNilClient = errors.New("xcache: nil redis client")

	// ErrInvalidTTL TTL 必须为正。
	ErrInvalidTTL = errors.New("xcache: ttl must be positive")

	// ErrClosed 缓存已关闭。
	ErrClosed = errors.New("xcache: cache is closed")

	// ErrLeaseLost 重建期间续期租约失败。
	ErrLeaseLost = errors.New("xcache: rebuild lease lost")

	// ErrStore 读写 Redis 失败。
	ErrStore = errors.New("xcache: store operation failed")
)
