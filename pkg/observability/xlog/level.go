package xlog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidLevel 无法识别的日志级别。
var ErrInvalidLevel = errors.New("xlog: invalid level")

// ParseLevel 解析配置中的级别字符串，空串为 info。
// 除 slog 的写法（含 "warn+2" 这类偏移）外，还接受 "warning"。
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return slog.LevelInfo, nil
	case "warning":
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return level, nil
}
