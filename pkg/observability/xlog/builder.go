package xlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrEmptyFilename 表示轮转文件名为空
var ErrEmptyFilename = errors.New("xlog: rotation filename is empty")

// RotationOptions 定义日志文件轮转参数（lumberjack）。
type RotationOptions struct {
	MaxSizeMB  int  // 单文件最大体积，默认 100MB
	MaxBackups int  // 保留的旧文件数量，默认 7
	MaxAgeDays int  // 旧文件保留天数，默认 30
	Compress   bool // 是否 gzip 压缩旧文件
}

// Builder 日志配置构建器
type Builder struct {
	output       io.Writer
	levelVar     *slog.LevelVar
	format       string
	addSource    bool
	enableEnrich bool
	rotator      *lumberjack.Logger
	err          error
}

// New 创建配置构建器
// 默认输出到 stderr，Info 级别，text 格式，启用 enrich。
func New() *Builder {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)
	return &Builder{
		output:       os.Stderr,
		levelVar:     levelVar,
		format:       "text",
		enableEnrich: true,
	}
}

// SetOutput 设置日志输出目标
func (b *Builder) SetOutput(w io.Writer) *Builder {
	if w != nil {
		b.output = w
	}
	return b
}

// SetLevel 设置日志级别
func (b *Builder) SetLevel(level slog.Level) *Builder {
	b.levelVar.Set(level)
	return b
}

// SetLevelString 通过字符串设置日志级别
func (b *Builder) SetLevelString(s string) *Builder {
	level, err := ParseLevel(s)
	if err != nil {
		b.setErr(err)
		return b
	}
	return b.SetLevel(level)
}

// SetFormat 设置输出格式：text 或 json，空值视为 text
func (b *Builder) SetFormat(format string) *Builder {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		b.format = "text"
	case "text", "json":
		b.format = normalized
	default:
		b.setErr(fmt.Errorf("xlog: unknown format %q", format))
	}
	return b
}

// SetAddSource 是否在日志中添加源码位置
func (b *Builder) SetAddSource(enable bool) *Builder {
	b.addSource = enable
	return b
}

// SetEnrich 是否启用 context 信息自动注入
func (b *Builder) SetEnrich(enable bool) *Builder {
	b.enableEnrich = enable
	return b
}

// SetRotation 将输出切换为按体积轮转的文件。
func (b *Builder) SetRotation(filename string, opts ...RotationOptions) *Builder {
	if strings.TrimSpace(filename) == "" {
		b.setErr(ErrEmptyFilename)
		return b
	}
	o := RotationOptions{MaxSizeMB: 100, MaxBackups: 7, MaxAgeDays: 30}
	if len(opts) > 0 {
		o = opts[0]
	}
	b.rotator = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}
	b.output = b.rotator
	return b
}

func (b *Builder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build 构建 Logger 实例
//
// 返回值：
//   - *slog.Logger: 日志实例
//   - *slog.LevelVar: 级别变量，运行时修改立即生效
//   - func() error: 清理函数，用于关闭轮转文件
//   - error: 配置错误
func (b *Builder) Build() (*slog.Logger, *slog.LevelVar, func() error, error) {
	if b.err != nil {
		return nil, nil, nil, b.err
	}

	opts := &slog.HandlerOptions{
		Level:     b.levelVar,
		AddSource: b.addSource,
	}

	var handler slog.Handler
	if b.format == "json" {
		handler = slog.NewJSONHandler(b.output, opts)
	} else {
		handler = slog.NewTextHandler(b.output, opts)
	}
	if b.enableEnrich {
		// base 非 nil，此处不会失败
		handler, _ = NewEnrichHandler(handler)
	}

	var once sync.Once
	rotator := b.rotator
	cleanup := func() error {
		var err error
		once.Do(func() {
			if rotator != nil {
				err = rotator.Close()
			}
		})
		return err
	}

	return slog.New(handler), b.levelVar, cleanup, nil
}
