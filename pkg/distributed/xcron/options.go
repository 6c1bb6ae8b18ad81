package xcron

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/resilience/xretry"
)

// ===================== Scheduler Options =====================

type schedulerOptions struct {
	locker   xdlock.Locker
	logger   *slog.Logger
	location *time.Location
	parser   cron.Parser
}

func defaultSchedulerOptions() *schedulerOptions {
	return &schedulerOptions{
		location: time.Local,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// SchedulerOption 调度器配置选项。
type SchedulerOption func(*schedulerOptions)

// WithLocker 设置任务锁。不设置时任务在每个副本上都会执行。
func WithLocker(locker xdlock.Locker) SchedulerOption {
	return func(o *schedulerOptions) { o.locker = locker }
}

// WithLogger 设置日志记录器，同时用于 robfig/cron 内部日志。
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(o *schedulerOptions) { o.logger = logger }
}

// WithLocation 设置 cron 表达式的时区，默认本地时区。
func WithLocation(loc *time.Location) SchedulerOption {
	return func(o *schedulerOptions) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithSeconds 启用秒级字段（6 段表达式）。
func WithSeconds() SchedulerOption {
	return func(o *schedulerOptions) {
		o.parser = cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		)
	}
}

// ===================== Job Options =====================

// MinLockTTL 锁 TTL 的下限，续期间隔为 TTL/3。
const MinLockTTL = 3 * time.Second

// DefaultLockTTL 默认锁 TTL。
const DefaultLockTTL = time.Minute

type jobOptions struct {
	name    string
	lockTTL time.Duration
	timeout time.Duration
	retryer *xretry.Retryer
}

// JobOption 任务配置选项。
type JobOption func(*jobOptions)

// WithName 设置任务名，同时作为锁名，多副本间必须一致。
func WithName(name string) JobOption {
	return func(o *jobOptions) { o.name = name }
}

// WithLockTTL 设置锁租约，默认 1 分钟。
func WithLockTTL(ttl time.Duration) JobOption {
	return func(o *jobOptions) { o.lockTTL = ttl }
}

// WithTimeout 设置单次执行超时，0 表示不限。
func WithTimeout(d time.Duration) JobOption {
	return func(o *jobOptions) { o.timeout = d }
}

// WithRetry 设置失败重试器，重试期间持续持锁。
func WithRetry(r *xretry.Retryer) JobOption {
	return func(o *jobOptions) { o.retryer = r }
}
