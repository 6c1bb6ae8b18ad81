package xlimit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// Rule 限流规则：每 Period 补充 Rate 个令牌，桶容量 Burst。
type Rule struct {
	Rate   int
	Burst  int
	Period time.Duration
}

func (r Rule) validate() error {
	if r.Rate <= 0 || r.Period <= 0 {
		return fmt.Errorf("%w: rate=%d period=%s", ErrInvalidRule, r.Rate, r.Period)
	}
	return nil
}

// Result 限流检查结果。
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAfter time.Duration
}

// SetHeaders 写入标准限流响应头；Retry-After 向上取整到秒。
func (r *Result) SetHeaders(w http.ResponseWriter) {
	if r == nil || r.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(r.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(r.Remaining))
	if r.RetryAfter > 0 {
		h.Set("Retry-After", strconv.FormatInt(int64(math.Ceil(r.RetryAfter.Seconds())), 10))
	}
}

// Limiter 分布式限流器。
type Limiter struct {
	limiter    *redis_rate.Limiter
	limit      redis_rate.Limit
	prefix     string
	failClosed bool
	logger     *slog.Logger
}

// Option 限流器配置选项。
type Option func(*Limiter)

// WithKeyPrefix 设置存储键前缀，默认 "xlimit:"。
func WithKeyPrefix(prefix string) Option {
	return func(l *Limiter) { l.prefix = prefix }
}

// WithFailClosed Redis 不可用时拒绝请求。
func WithFailClosed() Option {
	return func(l *Limiter) { l.failClosed = true }
}

// WithLogger 设置日志器。
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New 创建限流器。Burst 为 0 时取 Rate。
func New(rdb redis.UniversalClient, rule Rule, opts ...Option) (*Limiter, error) {
	if rdb == nil {
		return nil, ErrNilClient
	}
	if err := rule.validate(); err != nil {
		return nil, err
	}
	if rule.Burst <= 0 {
		rule.Burst = rule.Rate
	}
	l := &Limiter{
		limiter: redis_rate.NewLimiter(rdb),
		limit:   redis_rate.Limit{Rate: rule.Rate, Burst: rule.Burst, Period: rule.Period},
		prefix:  "xlimit:",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Allow 消耗 key 的一个令牌。
// 存储错误时：fail-open 返回 Allowed=true 与 ErrRedisUnavailable；
// fail-closed 返回 Allowed=false 与 ErrRedisUnavailable。
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	res, err := l.limiter.Allow(ctx, l.prefix+key, l.limit)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limiter unavailable",
			slog.String("key", key), slog.Bool("fail_closed", l.failClosed), slog.Any("error", err))
		return &Result{Allowed: !l.failClosed}, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      l.limit.Burst,
		Remaining:  res.Remaining,
		RetryAfter: clampNegative(res.RetryAfter),
		ResetAfter: res.ResetAfter,
	}, nil
}

// Reset 清除 key 的限流状态。
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.limiter.Reset(ctx, l.prefix+key)
}

// redis_rate 在放行时以 -1 表示无需等待
func clampNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

// KeyFunc 从请求提取限流键，返回空字符串表示不限流。
type KeyFunc func(r *http.Request) string

// HTTPMiddleware 返回限流中间件，可直接用于 gorilla/mux 的 Router.Use。
// 被限流时返回 429 并写入限流响应头。
func HTTPMiddleware(l *Limiter, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			res, _ := l.Allow(r.Context(), key)
			res.SetHeaders(w)
			if res != nil && !res.Allowed {
				http.Error(w, ErrRateLimited.Error(), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
