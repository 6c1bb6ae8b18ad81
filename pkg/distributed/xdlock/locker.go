package xdlock

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultKeyPrefix 锁 key 的默认前缀。
const DefaultKeyPrefix = "lock:"

// unlockTimeout ctx 已取消时解锁使用的独立超时。
const unlockTimeout = 5 * time.Second

// Locker 非阻塞的分布式锁。
type Locker interface {
	// TryLock 尝试获取名为 name 的锁，租约 ttl。
	// 被他人持有时返回 (nil, nil)，不重试；锁服务异常返回 error。
	TryLock(ctx context.Context, name string, ttl time.Duration) (LockHandle, error)
}

// LockHandle 表示一次成功的获取。
type LockHandle interface {
	// Unlock 仅当锁仍属于本次获取时删除。
	// token 不匹配（已过期或被他人重新获取）时静默返回 nil。
	Unlock(ctx context.Context) error

	// Extend 将租约重置为 ttl，锁已不属于本次获取时返回 ErrNotLocked。
	Extend(ctx context.Context, ttl time.Duration) error

	// Key 返回完整的锁 key（含前缀）。
	Key() string

	// Token 返回本次获取的 owner token。
	Token() string
}

type options struct {
	keyPrefix string
	ownerID   string
}

// Option 锁配置选项。
type Option func(*options)

// WithKeyPrefix 设置锁 key 前缀，默认 "lock:"。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.keyPrefix = prefix }
}

// WithOwnerID 设置 token 的进程标识部分，默认随机 UUID。
func WithOwnerID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.ownerID = id
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{keyPrefix: DefaultKeyPrefix, ownerID: uuid.NewString()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// tokenSource 生成 "<ownerID>-<seq>"，每次获取唯一。
type tokenSource struct {
	ownerID string
	seq     atomic.Uint64
}

func (t *tokenSource) next() string {
	return t.ownerID + "-" + strconv.FormatUint(t.seq.Add(1), 10)
}

func validate(name string, ttl time.Duration) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

// releaseContext 在调用方 ctx 已结束时改用独立超时，尽量释放锁而不是等 TTL。
func releaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
}
