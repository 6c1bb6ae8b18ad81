// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xdlock: 非阻塞租约锁，单 Redis 的 SET NX + Lua 比较删除，或 redsync 多节点多数派
//   - xcron: 定时任务调度，借助 xdlock 保证多副本下同一轮只执行一次
package distributed
