// Package xid 提供基于 Redis 日计数器的全局递增 ID。
//
// ID 布局（int64，63 位有效）：
//
//	| 31 位：自 epoch 起的秒数 | 32 位：当日计数 |
//
// 计数器 key 为 "inc:<namespace>:<yyyy:MM:dd>"，按天分桶，INCR 保证集群内唯一。
// 同一进程内（时钟不回拨时）ID 单调不减；跨进程只保证秒级有序。
// 默认 epoch 为 2022-01-01T00:00:00Z（1640995200）。
//
//	gen, _ := xid.NewGenerator(rdb)
//	id, err := gen.NextID(ctx, "order")
package xid
