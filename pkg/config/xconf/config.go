package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Config 是并发安全的配置容器。
type Config struct {
	mu     sync.RWMutex
	k      *koanf.Koanf
	path   string
	data   []byte
	format Format
	opts   *Options
}

// New 从文件路径创建配置实例，按扩展名识别格式（.yaml/.yml/.json）。
func New(path string, opts ...Option) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	c := &Config{path: path, format: format, opts: applyOptions(opts)}
	k, err := c.load(data)
	if err != nil {
		return nil, err
	}
	c.k = k
	return c, nil
}

// NewFromBytes 从字节数据创建配置实例，需要显式指定格式。
// 空数据得到空配置，Unmarshal 返回目标结构体的原值。
func NewFromBytes(data []byte, format Format, opts ...Option) (*Config, error) {
	if format != FormatYAML && format != FormatJSON {
		return nil, ErrUnsupportedFormat
	}
	c := &Config{data: data, format: format, opts: applyOptions(opts)}
	k, err := c.load(data)
	if err != nil {
		return nil, err
	}
	c.k = k
	return c, nil
}

// Client 返回底层的 koanf 实例。
func (c *Config) Client() *koanf.Koanf {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.k
}

// Unmarshal 将 path 下的配置反序列化到 target，path 为空时反序列化整个配置。
func (c *Config) Unmarshal(path string, target any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	err := c.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{
		Tag: c.opts.Tag,
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           target,
			WeaklyTypedInput: true,
			TagName:          c.opts.Tag,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// Reload 重新读取配置文件并原子替换。
func (c *Config) Reload() error {
	if c.path == "" {
		return ErrNotReloadable
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := c.load(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.k = k
	c.mu.Unlock()
	return nil
}

// Path 返回配置文件路径，字节来源返回空字符串。
func (c *Config) Path() string { return c.path }

// Format 返回配置格式。
func (c *Config) Format() Format { return c.format }

// =============================================================================
// 内部辅助函数
// =============================================================================

func applyOptions(opts []Option) *Options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (c *Config) load(data []byte) (*koanf.Koanf, error) {
	k := koanf.New(c.opts.Delim)
	if len(data) > 0 {
		var parser koanf.Parser = yaml.Parser()
		if c.format == FormatJSON {
			parser = json.Parser()
		}
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}
	if err := c.overlayEnv(k); err != nil {
		return nil, err
	}
	return k, nil
}

// overlayEnv 用带前缀的环境变量覆盖已加载的键。
func (c *Config) overlayEnv(k *koanf.Koanf) error {
	prefix := c.opts.EnvPrefix
	if prefix == "" {
		return nil
	}
	for _, kv := range c.opts.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := envKey(strings.TrimPrefix(name, prefix), c.opts.Delim)
		if key == "" {
			continue
		}
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("%w: env %s: %w", ErrLoadFailed, name, err)
		}
	}
	return nil
}

// envKey REDIS_ADDR -> redis.addr；SECKILL_LOCK_TTL -> seckill.lock_ttl。
func envKey(name, delim string) string {
	name = strings.ToLower(strings.Trim(name, "_"))
	section, rest, ok := strings.Cut(name, "_")
	if !ok {
		return name
	}
	return section + delim + rest
}

func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}
