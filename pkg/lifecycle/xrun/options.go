package xrun

import (
	"log/slog"
	"os"
	"syscall"
)

type options struct {
	name      string
	logger    *slog.Logger
	signals   []os.Signal
	noSignals bool
}

// Option 配置 Group / Run。
type Option func(*options)

func defaultOptions() *options {
	return &options{
		name:    "xrun",
		logger:  slog.Default(),
		signals: DefaultSignals(),
	}
}

// DefaultSignals 返回默认监听的退出信号。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}

// WithName 设置 Group 名称，用于日志。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger 设置日志器。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSignals 替换监听的信号列表，空列表保持默认值。
func WithSignals(signals ...os.Signal) Option {
	return func(o *options) {
		if len(signals) > 0 {
			o.signals = signals
		}
	}
}

// WithoutSignalHandler 禁用信号监听，常用于测试。
func WithoutSignalHandler() Option {
	return func(o *options) {
		o.noSignals = true
	}
}
