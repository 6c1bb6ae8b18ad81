package xcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// LoadFunc 按 id 从数据源加载，返回 (nil, nil) 表示不存在。
type LoadFunc[T, ID any] func(ctx context.Context, id ID) (*T, error)

// GetOrLoad 防穿透读取 keyPrefix+id。
//
//   - 命中：反序列化返回，内容损坏返回 ErrCorrupted
//   - 命中空值标记：返回 ErrNotFound，不回源
//   - 未命中：回源；结果为空写入空值标记（nullTTL）并返回 ErrNotFound，否则以 ttl 写入
//   - Redis 读失败：记录日志后直接回源，不向调用方传播存储错误
//
// 回源错误原样返回且不写缓存；写回失败只记录日志。
func GetOrLoad[T, ID any](ctx context.Context, c Cache, keyPrefix string, id ID, loader LoadFunc[T, ID], ttl time.Duration) (*T, error) {
	if c == nil {
		return nil, ErrNilClient
	}
	cc := c.core()
	key := buildKey(keyPrefix, id)
	if err := cc.check(key); err != nil {
		return nil, err
	}
	if loader == nil {
		return nil, ErrNilLoader
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	val, err := cc.client.Get(ctx, key).Result()
	switch {
	case err == nil && val == nullMarker:
		cc.event(ctx, "null_hit", key)
		return nil, ErrNotFound
	case err == nil:
		cc.event(ctx, "hit", key)
		return decode[T](key, []byte(val))
	case errors.Is(err, redis.Nil):
		cc.event(ctx, "miss", key)
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		cc.opts.logger.WarnContext(ctx, "xcache: read failed, falling back to loader",
			xlog.Key(key), xlog.Err(err))
		cc.event(ctx, "read_error", key)
	}

	load := func(lctx context.Context) ([]byte, error) {
		return loadAndStore(lctx, cc, key, id, loader, ttl)
	}

	var data []byte
	if cc.opts.singleflight {
		data, err = cc.shared(ctx, key, load)
	} else {
		data, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	return decode[T](key, data)
}

// loadAndStore 回源并写回，返回序列化后的值；不存在时返回 ErrNotFound。
func loadAndStore[T, ID any](ctx context.Context, c *cache, key string, id ID, loader LoadFunc[T, ID], ttl time.Duration) ([]byte, error) {
	v, err := loader(ctx, id)
	if err != nil {
		c.event(ctx, "load_error", key)
		return nil, err
	}
	if v == nil {
		if werr := c.client.Set(ctx, key, nullMarker, c.opts.nullTTL).Err(); werr != nil {
			c.opts.logger.WarnContext(ctx, "xcache: write null marker failed", xlog.Key(key), xlog.Err(werr))
		}
		c.event(ctx, "null_stored", key)
		return nil, ErrNotFound
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("xcache: marshal %s: %w", key, err)
	}
	if werr := c.client.Set(ctx, key, data, ttl).Err(); werr != nil {
		c.opts.logger.WarnContext(ctx, "xcache: write back failed", xlog.Key(key), xlog.Err(werr))
	}
	return data, nil
}

// shared 合并同一 key 的进程内并发回源。
// 回源使用与调用方解耦的 ctx，单个调用方取消不会中断其他等待者。
func (c *cache) shared(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		lctx, cancel := c.loadContext(ctx)
		defer cancel()
		return load(lctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.opts.logger.DebugContext(ctx, "xcache: shared load", xlog.Key(key), slog.Bool("shared", true))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		data, _ := res.Val.([]byte)
		return data, nil
	}
}
