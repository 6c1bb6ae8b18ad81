// Package util 提供通用工具相关的子包。
//
// 子包列表：
//   - xid: 基于 Redis 按天计数的全局递增 ID（时间戳高 32 位 + 日内序号低 32 位）
//   - xpool: 泛型 Worker Pool，有界队列、满时拒绝、panic 隔离
package util
