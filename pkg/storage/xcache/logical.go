package xcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// GetOrRebuildLogical 防击穿读取预热的热点 key。
//
//   - 不存在（或为空值标记）：返回 ErrNotFound，不回源
//   - 未逻辑过期：直接返回
//   - 已逻辑过期：尝试获取 lockPrefix+id 的重建租约；获取成功后再次检查，
//     仍过期则提交异步重建。无论是否拿到租约，都立即返回当前旧值。
//
// 异步重建：loader → 写入新的逻辑过期条目（logicalTTL）→ 释放租约。
// 重建期间每 rebuildLockTTL/3 续期租约，续期失败即取消本次重建。
// 回源失败只记录日志，租约在所有路径上释放。
// 条目损坏返回 ErrCorrupted；Redis 读失败返回 ErrStore。
func GetOrRebuildLogical[T, ID any](ctx context.Context, c Cache, keyPrefix, lockPrefix string, id ID, loader LoadFunc[T, ID], logicalTTL time.Duration) (*T, error) {
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
	if logicalTTL <= 0 {
		return nil, ErrInvalidTTL
	}

	entry, err := cc.readLogical(ctx, key)
	if err != nil {
		return nil, err
	}
	value, err := decode[T](key, entry.Data)
	if err != nil {
		return nil, err
	}
	if cc.opts.now().Before(entry.ExpireTime) {
		cc.event(ctx, "hit", key)
		return value, nil
	}

	cc.event(ctx, "stale", key)
	lockName := buildKey(lockPrefix, id)
	lease, err := cc.opts.locker.TryLock(ctx, lockName, cc.opts.rebuildLockTTL)
	if err != nil {
		cc.opts.logger.WarnContext(ctx, "xcache: acquire rebuild lease failed",
			xlog.Key(key), xlog.Err(err))
		return value, nil
	}
	if lease == nil {
		return value, nil
	}

	// 拿到租约后再次检查，其他持有者可能刚完成重建
	fresh, err := cc.readLogical(ctx, key)
	if err == nil && cc.opts.now().Before(fresh.ExpireTime) {
		cc.release(ctx, lease)
		if v, derr := decode[T](key, fresh.Data); derr == nil {
			return v, nil
		}
		return value, nil
	}

	task := func() {
		rctx, cancel := cc.loadContext(ctx)
		defer cancel()
		defer cc.release(rctx, lease)
		lctx, stop := cc.holdLease(rctx, key, lease)
		defer stop()
		cc.rebuildOne(lctx, key, func(lctx context.Context) (any, error) {
			v, err := loader(lctx, id)
			if v == nil && err == nil {
				return nil, ErrNotFound
			}
			return v, err
		}, logicalTTL)
	}
	if err := cc.rebuild.Submit(task); err != nil {
		cc.release(ctx, lease)
		cc.event(ctx, "rebuild_rejected", key)
		cc.opts.logger.WarnContext(ctx, "xcache: rebuild rejected", xlog.Key(key), xlog.Err(err))
		return value, nil
	}
	cc.event(ctx, "rebuild_submitted", key)
	return value, nil
}

// readLogical 读取并解析逻辑过期条目。
func (c *cache) readLogical(ctx context.Context, key string) (*logicalEntry, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || (err == nil && len(raw) == 0) {
		c.event(ctx, "miss", key)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	var entry logicalEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupted, key, err)
	}
	if len(entry.Data) == 0 {
		return nil, fmt.Errorf("%w: %s: missing data", ErrCorrupted, key)
	}
	return &entry, nil
}

// rebuildOne 在重建池中执行：回源并写入新的逻辑过期条目。
func (c *cache) rebuildOne(ctx context.Context, key string, load func(context.Context) (any, error), logicalTTL time.Duration) {
	start := time.Now()
	v, err := load(ctx)
	if err != nil {
		c.event(ctx, "rebuild_failed", key)
		c.opts.logger.WarnContext(ctx, "xcache: rebuild load failed", xlog.Key(key), xlog.Err(err))
		return
	}
	data, err := c.encodeLogical(v, logicalTTL)
	if err != nil {
		c.opts.logger.ErrorContext(ctx, "xcache: rebuild encode failed", xlog.Key(key), xlog.Err(err))
		return
	}
	if ctx.Err() != nil {
		c.event(ctx, "rebuild_failed", key)
		c.opts.logger.WarnContext(ctx, "xcache: rebuild abandoned", xlog.Key(key), xlog.Err(context.Cause(ctx)))
		return
	}
	if err := c.client.Set(ctx, key, data, 0).Err(); err != nil {
		c.event(ctx, "rebuild_failed", key)
		c.opts.logger.WarnContext(ctx, "xcache: rebuild write failed", xlog.Key(key), xlog.Err(err))
		return
	}
	c.event(ctx, "rebuild_done", key)
	c.opts.logger.DebugContext(ctx, "xcache: rebuilt", xlog.Key(key), xlog.Duration(time.Since(start)))
}

// holdLease 在重建期间续期租约。续期失败以 ErrLeaseLost 取消返回的 ctx，
// 此时其他读者可能已拿到新租约，本次重建不得再写回。
func (c *cache) holdLease(parent context.Context, key string, lease xdlock.LockHandle) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.opts.rebuildLockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lease.Extend(ctx, c.opts.rebuildLockTTL); err != nil {
					c.event(ctx, "lease_lost", key)
					c.opts.logger.WarnContext(ctx, "xcache: extend rebuild lease failed", xlog.Key(key), xlog.Err(err))
					cancel(fmt.Errorf("%w: %w", ErrLeaseLost, err))
					return
				}
			}
		}
	}()

	return ctx, func() {
		close(done)
		wg.Wait()
		cancel(nil)
	}
}

func (c *cache) release(ctx context.Context, lease xdlock.LockHandle) {
	if err := lease.Unlock(ctx); err != nil {
		c.opts.logger.WarnContext(ctx, "xcache: release rebuild lease failed",
			slog.String("lock", lease.Key()), xlog.Err(err))
	}
}
