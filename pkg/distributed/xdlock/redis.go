package xdlock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript KEYS[1]=lock key, ARGV[1]=owner token；返回删除数 0|1。
var releaseScript = redis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
end
return 0
`)

// extendScript KEYS[1]=lock key, ARGV[1]=owner token, ARGV[2]=ttl ms；返回 0|1。
var extendScript = redis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('pexpire', KEYS[1], ARGV[2])
end
return 0
`)

// Release 比较 token 后删除 key，返回是否删除。
func Release(ctx context.Context, c redis.Scripter, key, token string) (bool, error) {
	n, err := releaseScript.Run(ctx, c, []string{key}, token).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type redisLocker struct {
	client redis.UniversalClient
	prefix string
	tokens *tokenSource
}

// NewRedisLocker 创建基于 SET NX PX 的租约锁。
func NewRedisLocker(client redis.UniversalClient, opts ...Option) (Locker, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := applyOptions(opts)
	return &redisLocker{
		client: client,
		prefix: o.keyPrefix,
		tokens: &tokenSource{ownerID: o.ownerID},
	}, nil
}

func (l *redisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (LockHandle, error) {
	if err := validate(name, ttl); err != nil {
		return nil, err
	}
	key := l.prefix + name
	token := l.tokens.next()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	if !ok {
		return nil, nil
	}
	return &redisHandle{client: l.client, key: key, token: token}, nil
}

type redisHandle struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (h *redisHandle) Unlock(ctx context.Context) error {
	ctx, cancel := releaseContext(ctx)
	defer cancel()
	_, err := Release(ctx, h.client, h.key, h.token)
	return err
}

func (h *redisHandle) Extend(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	n, err := extendScript.Run(ctx, h.client, []string{h.key}, h.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotLocked
	}
	return nil
}

func (h *redisHandle) Key() string   { return h.key }
func (h *redisHandle) Token() string { return h.token }
