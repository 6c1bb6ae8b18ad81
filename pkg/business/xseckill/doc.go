// Package xseckill 实现秒杀下单流水线。
//
// 下单分两段：
//
//  1. 同步准入 [Pipeline.Admit]：生成订单号后执行一段 Lua 脚本，原子地完成
//     “库存检查 → 一人一单检查 → 扣减 Redis 库存 → 记录用户 → XADD 到订单流”。
//     返回 [OutcomeAdmitted] / [OutcomeOutOfStock] / [OutcomeDuplicate]，
//     竞争结果不是错误。
//  2. 异步履约 [Pipeline.Run]：消费组读取订单流，对每条消息调用
//     [Pipeline.Fulfill]，成功后才 XACK。处理失败的消息留在 pending 列表，
//     由 recoverPending 从最早的一条开始重放。
//
// Fulfill 在用户级分布式锁内执行“已有订单检查 → 条件扣减数据库库存 → 写入订单”，
// 后两步在同一个事务中；数据库调用经过熔断器保护。重复投递的消息不会产生
// 第二个订单。
//
// 状态流转：
//
//	Requested → Admitted → Enqueued → Locked → Persisted
//	         ↘ Rejected（库存不足 / 重复下单）
//
// Redis 数据布局：
//
//	seckill:stock:<voucherId>   剩余库存（String）
//	seckill:order:<voucherId>   已下单用户（Set）
//	stream.orders               订单流，字段 userId / voucherId / id
package xseckill
