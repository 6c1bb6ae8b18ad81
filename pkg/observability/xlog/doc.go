// Package xlog 基于 log/slog 的结构化日志构建器。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - 自动从 context 注入 trace_id、request_id、user_id（EnrichHandler，默认启用）
//   - 动态级别调整（共享 slog.LevelVar）
//   - 常用属性构造函数（Err、Component、VoucherID、OrderID 等）
//
// # 创建 Logger
//
// Builder 采用 first-error-wins：遇到第一个配置错误后，Build 返回该错误。
//
//	logger, levelVar, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/xseckill/app.log").
//	    Build()
//	defer cleanup()
//
// 库内组件统一接收 *slog.Logger（通过各包的 WithLogger 选项），
// 未配置时使用 slog.Default()。应用启动时调用 [SetDefault] 即可让所有组件共享配置。
package xlog
