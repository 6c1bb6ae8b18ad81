// Package context 提供上下文相关的子包。
//
// 子包列表：
//   - xctx: 在 context.Context 中传递 trace id、request id 与用户 ID
//
// 所有请求级信息通过 context.Context 传递，不使用全局变量。
package context
