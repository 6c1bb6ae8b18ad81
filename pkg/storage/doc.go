// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xcache: Redis 缓存门面，空值缓存防穿透、逻辑过期异步重建防击穿
package storage
