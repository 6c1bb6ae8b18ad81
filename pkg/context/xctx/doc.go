// Package xctx 提供轻量级的请求上下文管理。
//
// 只承载跨越 HTTP 请求生命周期的少量字段：
//   - trace_id   : 追踪标识（W3C 规范，128-bit，32 个十六进制字符）
//   - request_id : 请求标识
//   - user_id    : 登录用户标识（由会话层解析后注入）
//
// # 命名约定
//
//	WithXxx(ctx, value)    - 注入：将 value 写入 context
//	Xxx(ctx)               - 读取：从 context 读取值，缺失时返回零值
//	EnsureXxx(ctx)         - 确保存在：缺失时自动生成
//
// # 异步边界
//
// context 中的值不会跨越异步边界。秒杀订单由后台消费者处理时，
// 所需的 user_id 必须显式放入消息体，而不是从 context 读取。
package xctx
