package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// DefaultSlowThreshold 默认慢查询阈值。
const DefaultSlowThreshold = 200 * time.Millisecond

// gormLogger 将 gorm 日志输出到 slog，超过阈值的语句以 Warn 记录。
type gormLogger struct {
	logger        *slog.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger 创建 gorm 日志适配器。slowThreshold <= 0 时使用 DefaultSlowThreshold。
func NewGormLogger(logger *slog.Logger, slowThreshold time.Duration) gormlogger.Interface {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &gormLogger{
		logger:        xlog.OrDefault(logger).With(xlog.Component("gorm")),
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace 记录一条 SQL。记录不存在不视为错误。
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		sql, rows := fc()
		l.logger.ErrorContext(ctx, "sql failed",
			slog.String("sql", sql), slog.Int64("rows", rows), xlog.Duration(elapsed), xlog.Err(err))
	case elapsed >= l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.WarnContext(ctx, "slow sql",
			slog.String("sql", sql), slog.Int64("rows", rows), xlog.Duration(elapsed),
			slog.Duration("threshold", l.slowThreshold))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.DebugContext(ctx, "sql",
			slog.String("sql", sql), slog.Int64("rows", rows), xlog.Duration(elapsed))
	}
}
