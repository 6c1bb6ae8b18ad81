// Package xdlock 提供基于 Redis 的租约式分布式锁。
//
// 每次成功获取返回一个 [LockHandle]，内部持有唯一的 owner token
// （进程 UUID + 获取序号）。释放通过 Lua 脚本比较 token 后删除，
// 过期后被他人重新获取的锁不会被误删。
//
// 两种后端实现同一 [Locker] 契约：
//   - NewRedisLocker：SET NX PX + Lua compare-and-delete，单 Redis 节点
//   - NewRedsyncLocker：go-redsync（Redlock），支持多节点多数派
//
// 使用模式：
//
//	h, err := locker.TryLock(ctx, "order:42", 10*time.Second)
//	if err != nil {
//	    return err // 锁服务异常
//	}
//	if h == nil {
//	    return nil // 被其他执行上下文持有
//	}
//	defer h.Unlock(ctx)
package xdlock
