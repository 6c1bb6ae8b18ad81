// Package xcache 提供 Redis 旁路缓存门面，内置两种读策略：
//
//   - [GetOrLoad]：防穿透。回源结果为空时写入空串标记（短 TTL），
//     标记有效期内的重复查询直接返回 [ErrNotFound]，不再回源。
//   - [GetOrRebuildLogical]：防击穿。热点 key 预热后永不过期，过期判断依据
//     值内嵌的 expireTime；逻辑过期时由获得重建租约的调用方提交异步重建，
//     所有读者立即返回旧值，不等待重建。
//
// 逻辑过期条目格式：
//
//	{"data": <JSON 值>, "expireTime": "2024-01-01T00:00:00Z"}
//
// 异步重建在有界 worker pool（默认 10 个 worker）上执行，租约在任何情况下
// （成功、回源失败、panic、提交被拒）都会释放。
//
// 同一进程内，同一 key 的并发回源通过 singleflight 合并；跨进程的冷 key
// 并发回源是允许的。
package xcache
