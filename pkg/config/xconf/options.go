package xconf

import "os"

// Options 定义配置加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// Tag 结构体标签名，默认为 "koanf"。
	Tag string

	// EnvPrefix 非空时，以该前缀开头的环境变量会覆盖文件中的值。
	EnvPrefix string

	// Environ 环境变量来源，默认 os.Environ，测试中可替换。
	Environ func() []string
}

// Option 定义配置选项函数类型。
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Delim:   ".",
		Tag:     "koanf",
		Environ: os.Environ,
	}
}

// WithDelim 设置配置键分隔符。
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithTag 设置结构体标签名。
func WithTag(tag string) Option {
	return func(o *Options) {
		if tag != "" {
			o.Tag = tag
		}
	}
}

// WithEnvPrefix 启用环境变量覆盖。
// XSECKILL_SECKILL_LOCK_TTL 对应 seckill.lock_ttl：去掉前缀后，
// 第一个下划线视为层级分隔，其余保留为键名的一部分。
func WithEnvPrefix(prefix string) Option {
	return func(o *Options) {
		o.EnvPrefix = prefix
	}
}

// WithEnviron 替换环境变量来源。
func WithEnviron(fn func() []string) Option {
	return func(o *Options) {
		if fn != nil {
			o.Environ = fn
		}
	}
}
