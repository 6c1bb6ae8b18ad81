// Package xmetrics 提供统一的观测接口：一次操作对应一个跨度（trace span +
// 次数计数 + 耗时直方图），离散事件（缓存命中、准入结果）对应事件计数。
//
// 默认实现基于 OpenTelemetry，未配置 Provider 时使用全局 Provider（默认为空实现）。
// 业务包只依赖 [Observer] 接口，nil Observer 视为 [NoopObserver]。
package xmetrics
