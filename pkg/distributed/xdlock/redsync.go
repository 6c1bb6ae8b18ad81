package xdlock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	rsredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

type redsyncLocker struct {
	rs     *redsync.Redsync
	prefix string
	tokens *tokenSource
}

// NewRedsyncLocker 创建基于 redsync 的锁。
// 单节点等价于 SET NX；多节点使用 Redlock，需多数节点成功。
func NewRedsyncLocker(clients []redis.UniversalClient, opts ...Option) (Locker, error) {
	if len(clients) == 0 {
		return nil, ErrNilClient
	}
	pools := make([]rsredis.Pool, len(clients))
	for i, c := range clients {
		if c == nil {
			return nil, fmt.Errorf("%w: client at index %s", ErrNilClient, strconv.Itoa(i))
		}
		pools[i] = goredis.NewPool(c)
	}
	o := applyOptions(opts)
	return &redsyncLocker{
		rs:     redsync.New(pools...),
		prefix: o.keyPrefix,
		tokens: &tokenSource{ownerID: o.ownerID},
	}, nil
}

func (l *redsyncLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (LockHandle, error) {
	if err := validate(name, ttl); err != nil {
		return nil, err
	}
	key := l.prefix + name
	token := l.tokens.next()
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
		redsync.WithGenValueFunc(func() (string, error) { return token, nil }),
	)

	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) {
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	return &redsyncHandle{mutex: mutex, key: key, token: token, ttl: ttl}, nil
}

type redsyncHandle struct {
	mutex *redsync.Mutex
	key   string
	token string
	ttl   time.Duration
}

func (h *redsyncHandle) Unlock(ctx context.Context) error {
	ctx, cancel := releaseContext(ctx)
	defer cancel()
	if _, err := h.mutex.UnlockContext(ctx); err != nil && !lostOwnership(err) {
		return err
	}
	return nil
}

// Extend redsync 按获取时的 ttl 续期；ttl 与获取时不同返回 ErrInvalidTTL。
func (h *redsyncHandle) Extend(ctx context.Context, ttl time.Duration) error {
	if ttl != h.ttl {
		return ErrInvalidTTL
	}
	ok, err := h.mutex.ExtendContext(ctx)
	if err != nil {
		if lostOwnership(err) || errors.Is(err, redsync.ErrExtendFailed) {
			return ErrNotLocked
		}
		return err
	}
	if !ok {
		return ErrNotLocked
	}
	return nil
}

func (h *redsyncHandle) Key() string   { return h.key }
func (h *redsyncHandle) Token() string { return h.token }

// lostOwnership 判断 redsync 错误是否表示锁已不属于本次获取（过期或被他人持有）。
func lostOwnership(err error) bool {
	var taken *redsync.ErrTaken
	if errors.As(err, &taken) {
		return true
	}
	var nodeTaken *redsync.ErrNodeTaken
	if errors.As(err, &nodeTaken) {
		return true
	}
	if errors.Is(err, redsync.ErrLockAlreadyExpired) {
		return true
	}
	var rerr *redsync.RedisError
	return errors.As(err, &rerr) && errors.Is(rerr.Err, redsync.ErrLockAlreadyExpired)
}
