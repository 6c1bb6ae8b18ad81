// Package xbreaker 基于 sony/gobreaker/v2 的熔断器。
//
// 下游（数据库）持续失败时快速失败，避免消费循环在故障期间堆积阻塞调用。
// 熔断拒绝的错误满足 errors.Is(err, ErrOpen)，调用方据此保留待处理消息稍后重放。
package xbreaker
