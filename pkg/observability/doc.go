// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog，支持 lumberjack 文件轮转与 context 信息注入
//   - xmetrics: 统一的 span/事件接口，OpenTelemetry 实现
package observability
