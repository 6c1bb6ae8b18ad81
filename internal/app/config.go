package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/config/xconf"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
)

// EnvPrefix 环境变量覆盖前缀，例如 XSECKILL_REDIS_ADDRS=127.0.0.1:6379。
const EnvPrefix = "XSECKILL_"

// 锁后端。
const (
	LockBackendRedis   = "redis"
	LockBackendRedsync = "redsync"
)

// 商铺读取策略。
const (
	ShopModePassthrough = "passthrough"
	ShopModeLogical     = "logical"
)

// ErrInvalidConfig 配置校验失败。
var ErrInvalidConfig = errors.New("app: invalid config")

// Config 服务配置。
type Config struct {
	HTTP     HTTPConfig        `koanf:"http"`
	Redis    RedisConfig       `koanf:"redis"`
	Database repository.Config `koanf:"database"`
	Log      LogConfig         `koanf:"log"`
	Cache    CacheConfig       `koanf:"cache"`
	Seckill  SeckillConfig     `koanf:"seckill"`
	Lock     LockConfig        `koanf:"lock"`
	Limit    LimitConfig       `koanf:"limit"`
	Breaker  BreakerConfig     `koanf:"breaker"`
	Prewarm  PrewarmConfig     `koanf:"prewarm"`
}

// HTTPConfig HTTP 服务配置。
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RedisConfig Redis 连接配置。多个地址时以集群模式连接。
type RedisConfig struct {
	Addrs    []string `koanf:"addrs"`
	Password string   `koanf:"password"`
	DB       int      `koanf:"db"`
	PoolSize int      `koanf:"pool_size"`
}

// LogConfig 日志配置。File 非空时写入文件并按大小轮转。
type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	File      string `koanf:"file"`
	MaxSizeMB int    `koanf:"max_size_mb"`
	MaxFiles  int    `koanf:"max_files"`
}

// CacheConfig 缓存配置。
type CacheConfig struct {
	NullTTL          time.Duration `koanf:"null_ttl"`
	ShopTTL          time.Duration `koanf:"shop_ttl"`
	ShopLogicalTTL   time.Duration `koanf:"shop_logical_ttl"`
	ShopTypeTTL      time.Duration `koanf:"shop_type_ttl"`
	ShopMode         string        `koanf:"shop_mode"`
	RebuildWorkers   int           `koanf:"rebuild_workers"`
	RebuildQueueSize int           `koanf:"rebuild_queue_size"`
	RebuildLockTTL   time.Duration `koanf:"rebuild_lock_ttl"`
}

// SeckillConfig 下单流水线配置。
type SeckillConfig struct {
	Stream    string        `koanf:"stream"`
	Group     string        `koanf:"group"`
	Consumer  string        `koanf:"consumer"`
	Block     time.Duration `koanf:"block"`
	LockTTL   time.Duration `koanf:"lock_ttl"`
	ClaimIdle time.Duration `koanf:"claim_idle"`
}

// LockConfig 分布式锁配置。redsync 后端可额外配置独立节点地址。
type LockConfig struct {
	Backend string   `koanf:"backend"`
	Nodes   []string `koanf:"nodes"`
}

// LimitConfig 秒杀接口的用户级限流。
type LimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	Rate    int           `koanf:"rate"`
	Burst   int           `koanf:"burst"`
	Period  time.Duration `koanf:"period"`
}

// BreakerConfig 履约数据库调用的熔断配置。
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold"`
	Timeout          time.Duration `koanf:"timeout"`
	// Interval Closed 状态下清零失败计数的周期，0 表示不清零。
	Interval time.Duration `koanf:"interval"`
	// MaxRequests HalfOpen 状态放行的探测请求数。
	MaxRequests uint32 `koanf:"max_requests"`
}

// PrewarmConfig 热点商铺预热。Spec 为空时不启动定时任务。
type PrewarmConfig struct {
	Spec    string  `koanf:"spec"`
	ShopIDs []int64 `koanf:"shop_ids"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8081",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{Addrs: []string{"127.0.0.1:6379"}, PoolSize: 32},
		Database: repository.Config{
			MaxOpenConns:  100,
			MaxIdleConns:  10,
			SlowThreshold: repository.DefaultSlowThreshold,
		},
		Log: LogConfig{Level: "info", Format: "json", MaxSizeMB: 100, MaxFiles: 7},
		Cache: CacheConfig{
			NullTTL:          xcache.DefaultNullTTL,
			ShopTTL:          30 * time.Minute,
			ShopLogicalTTL:   30 * time.Minute,
			ShopTypeTTL:      time.Hour,
			ShopMode:         ShopModePassthrough,
			RebuildWorkers:   xcache.DefaultRebuildWorkers,
			RebuildQueueSize: xcache.DefaultRebuildQueueSize,
			RebuildLockTTL:   xcache.DefaultRebuildLockTTL,
		},
		Seckill: SeckillConfig{
			Stream:   xseckill.DefaultStream,
			Group:    xseckill.DefaultGroup,
			Consumer: xseckill.DefaultConsumer,
			Block:    xseckill.DefaultBlock,
			LockTTL:  xseckill.DefaultLockTTL,
		},
		Lock:    LockConfig{Backend: LockBackendRedis},
		Limit:   LimitConfig{Enabled: true, Rate: 5, Burst: 5, Period: time.Second},
		Breaker: BreakerConfig{FailureThreshold: 5, Timeout: 30 * time.Second, MaxRequests: 1},
	}
}

// LoadConfig 从文件加载配置并叠加 XSECKILL_ 前缀的环境变量。
// path 为空时只使用默认值与环境变量。
func LoadConfig(path string, opts ...xconf.Option) (Config, error) {
	cfg := DefaultConfig()
	opts = append([]xconf.Option{xconf.WithEnvPrefix(EnvPrefix)}, opts...)

	var (
		src *xconf.Config
		err error
	)
	if path == "" {
		src, err = xconf.NewFromBytes([]byte("{}"), xconf.FormatJSON, opts...)
	} else {
		src, err = xconf.New(path, opts...)
	}
	if err != nil {
		return cfg, err
	}
	if err := src.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate 校验配置。
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if len(c.Redis.Addrs) == 0 {
		errs = append(errs, errors.New("redis.addrs is required"))
	}
	switch c.Lock.Backend {
	case LockBackendRedis, LockBackendRedsync:
	default:
		errs = append(errs, fmt.Errorf("lock.backend %q must be %s or %s", c.Lock.Backend, LockBackendRedis, LockBackendRedsync))
	}
	switch c.Cache.ShopMode {
	case ShopModePassthrough, ShopModeLogical:
	default:
		errs = append(errs, fmt.Errorf("cache.shop_mode %q must be %s or %s", c.Cache.ShopMode, ShopModePassthrough, ShopModeLogical))
	}
	if c.Cache.ShopTTL <= 0 || c.Cache.ShopLogicalTTL <= 0 || c.Cache.ShopTypeTTL <= 0 {
		errs = append(errs, errors.New("cache ttls must be positive"))
	}
	if c.Limit.Enabled && (c.Limit.Rate <= 0 || c.Limit.Period <= 0) {
		errs = append(errs, errors.New("limit.rate and limit.period must be positive"))
	}
	if c.Breaker.Interval < 0 {
		errs = append(errs, errors.New("breaker.interval must not be negative"))
	}
	for _, id := range c.Prewarm.ShopIDs {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("prewarm.shop_ids contains invalid id %d", id))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
