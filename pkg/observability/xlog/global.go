package xlog

import "log/slog"

// SetDefault 替换进程级默认 Logger，同时设置 slog.Default()。
// 传入 nil 会被忽略。
func SetDefault(logger *slog.Logger) {
	if logger == nil {
		return
	}
	slog.SetDefault(logger)
}

// Default 返回进程级默认 Logger。
func Default() *slog.Logger {
	return slog.Default()
}

// OrDefault 返回 logger，为 nil 时返回 slog.Default()。
// 供各组件在选项未设置时兜底。
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Discard 返回丢弃所有输出的 Logger，用于测试或显式禁用日志。
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
