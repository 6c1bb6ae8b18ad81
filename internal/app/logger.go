package app

import (
	"io"
	"log/slog"

	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// NewLogger 按配置构建日志记录器。File 非空时写入文件并按大小轮转，否则写 w。
// 返回的 closer 关闭轮转文件，未启用轮转时为空操作。
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, *slog.LevelVar, func() error, error) {
	b := xlog.New().
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format)
	if cfg.File != "" {
		b = b.SetRotation(cfg.File, xlog.RotationOptions{
			MaxSizeMB:  cfg.MaxSizeMB,
			MaxBackups: cfg.MaxFiles,
			MaxAgeDays: 30,
			Compress:   true,
		})
	} else if w != nil {
		b = b.SetOutput(w)
	}
	return b.Build()
}
