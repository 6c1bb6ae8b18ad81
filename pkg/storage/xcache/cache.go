package xcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/util/xpool"
)

const component = "xcache"

// nullMarker 表示“已确认不存在”。
const nullMarker = ""

// Cache 缓存门面。读操作通过包级泛型函数 [GetOrLoad] / [GetOrRebuildLogical] 完成。
type Cache interface {
	// Set 序列化 value 并以 ttl 写入。
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// SetWithLogicalExpire 写入逻辑过期条目，Redis 层不设置 TTL。
	SetWithLogicalExpire(ctx context.Context, key string, value any, logicalTTL time.Duration) error

	// Delete 删除 key，用于底层数据变更后的失效。
	Delete(ctx context.Context, key string) error

	// Client 返回底层 Redis 客户端。
	Client() redis.UniversalClient

	// Close 停止重建池，等待已排队的重建完成。
	Close() error

	core() *cache
}

// logicalEntry 逻辑过期条目。
type logicalEntry struct {
	Data       json.RawMessage `json:"data"`
	ExpireTime time.Time       `json:"expireTime"`
}

type cache struct {
	client  redis.UniversalClient
	opts    *options
	group   singleflight.Group
	rebuild *xpool.Pool[func()]
	closed  atomic.Bool
}

// New 创建缓存门面并启动重建池。
func New(client redis.UniversalClient, opts ...Option) (Cache, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.locker == nil {
		l, err := xdlock.NewRedisLocker(client)
		if err != nil {
			return nil, err
		}
		o.locker = l
	}

	pool, err := xpool.New(o.rebuildWorkers, o.rebuildQueueSize,
		func(task func()) { task() },
		xpool.WithLogger(o.logger), xpool.WithName("xcache-rebuild"))
	if err != nil {
		return nil, err
	}
	return &cache{client: client, opts: o, rebuild: pool}, nil
}

func (c *cache) core() *cache { return c }

func (c *cache) Client() redis.UniversalClient { return c.client }

func (c *cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.check(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("xcache: marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func (c *cache) SetWithLogicalExpire(ctx context.Context, key string, value any, logicalTTL time.Duration) error {
	if err := c.check(key); err != nil {
		return err
	}
	if logicalTTL <= 0 {
		return ErrInvalidTTL
	}
	data, err := c.encodeLogical(value, logicalTTL)
	if err != nil {
		return fmt.Errorf("xcache: marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func (c *cache) Delete(ctx context.Context, key string) error {
	if err := c.check(key); err != nil {
		return err
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	return nil
}

func (c *cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.rebuild.Close()
}

// =============================================================================
// 内部辅助
// =============================================================================

func (c *cache) check(key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

func (c *cache) encodeLogical(value any, logicalTTL time.Duration) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(logicalEntry{Data: data, ExpireTime: c.opts.now().Add(logicalTTL)})
}

func (c *cache) event(ctx context.Context, name, key string) {
	xmetrics.Event(ctx, c.opts.observer, component, name)
	c.opts.logger.DebugContext(ctx, "cache event", slog.String("event", name), xlog.Key(key))
}

// loadContext 与调用方取消解耦并设置独立超时，合并回源与异步重建共用。
func (c *cache) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.opts.loadTimeout)
}

func buildKey[ID any](prefix string, id ID) string {
	return prefix + fmt.Sprint(id)
}

func decode[T any](key string, data []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupted, key, err)
	}
	return v, nil
}
