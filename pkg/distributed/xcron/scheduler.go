package xcron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// unlockTimeout 任务结束后释放锁使用的独立超时。
const unlockTimeout = 5 * time.Second

// JobID 任务标识，可用于 Remove。
type JobID = cron.EntryID

// JobFunc 任务函数，应响应 ctx 取消。
type JobFunc func(ctx context.Context) error

// Scheduler 带任务锁的 cron 调度器。
type Scheduler struct {
	cron   *cron.Cron
	locker xdlock.Locker
	logger *slog.Logger
}

// New 创建调度器，需调用 Start 或 Run 启动。
func New(opts ...SchedulerOption) *Scheduler {
	o := defaultSchedulerOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := xlog.OrDefault(o.logger).With(xlog.Component("xcron"))
	cl := cronLogger{logger: logger}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(o.location),
			cron.WithParser(o.parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		locker: o.locker,
		logger: logger,
	}
}

// AddFunc 按 spec 注册任务。
func (s *Scheduler) AddFunc(spec string, fn JobFunc, opts ...JobOption) (JobID, error) {
	if fn == nil {
		return 0, ErrNilJob
	}
	o := &jobOptions{lockTTL: DefaultLockTTL}
	for _, opt := range opts {
		opt(o)
	}
	if s.locker != nil {
		if o.name == "" {
			return 0, ErrMissingName
		}
		if o.lockTTL < MinLockTTL {
			return 0, fmt.Errorf("%w: %v < %v", ErrInvalidLockTTL, o.lockTTL, MinLockTTL)
		}
	}

	id, err := s.cron.AddJob(spec, &job{
		fn:     fn,
		opts:   o,
		locker: s.locker,
		logger: s.logger.With(slog.String("job", o.name)),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidSpec, spec, err)
	}
	return id, nil
}

// Remove 移除任务，不影响正在执行的实例。
func (s *Scheduler) Remove(id JobID) { s.cron.Remove(id) }

// Len 返回已注册任务数。
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start 在后台启动调度。
func (s *Scheduler) Start() { s.cron.Start() }

// Stop 停止调度，返回的 ctx 在所有运行中的任务结束后 Done。
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

// Run 启动调度并阻塞到 ctx 取消，返回前等待运行中的任务结束。
// 签名与 xrun.Service 兼容。
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start()
	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}

// ===================== job =====================

type job struct {
	fn     JobFunc
	opts   *jobOptions
	locker xdlock.Locker
	logger *slog.Logger
}

// Run 实现 cron.Job。
func (j *job) Run() {
	ctx := context.Background()
	start := time.Now()

	if j.locker != nil {
		handle, err := j.locker.TryLock(ctx, j.opts.name, j.opts.lockTTL)
		if err != nil {
			j.logger.Warn("acquire job lock failed, skipping", xlog.Err(err))
			return
		}
		if handle == nil {
			j.logger.Debug("job locked by another replica, skipping")
			return
		}
		defer j.unlock(handle)

		var stop func()
		ctx, stop = j.keepAlive(ctx, handle)
		defer stop()
	}

	if j.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.opts.timeout)
		defer cancel()
	}

	err := j.execute(ctx)
	if cause := context.Cause(ctx); err != nil && cause != nil && cause != ctx.Err() {
		err = fmt.Errorf("%w: %w", cause, err)
	}
	if err != nil {
		j.logger.Error("job failed", xlog.Err(err), xlog.Duration(time.Since(start)))
		return
	}
	j.logger.Debug("job completed", xlog.Duration(time.Since(start)))
}

func (j *job) execute(ctx context.Context) error {
	if j.opts.retryer != nil {
		return j.opts.retryer.Do(ctx, func(ctx context.Context) error { return j.fn(ctx) })
	}
	return j.fn(ctx)
}

// keepAlive 每 TTL/3 续期一次，续期失败以 ErrLockLost 取消任务 ctx。
func (j *job) keepAlive(parent context.Context, handle xdlock.LockHandle) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(j.opts.lockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := handle.Extend(ctx, j.opts.lockTTL); err != nil {
					j.logger.Warn("extend job lock failed", xlog.Err(err))
					cancel(fmt.Errorf("%w: %w", ErrLockLost, err))
					return
				}
			}
		}
	}()

	return ctx, func() {
		close(done)
		wg.Wait()
		cancel(nil)
	}
}

func (j *job) unlock(handle xdlock.LockHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()
	if err := handle.Unlock(ctx); err != nil {
		j.logger.Warn("release job lock failed", xlog.Err(err))
	}
}

// ===================== cron logger =====================

// cronLogger 将 robfig/cron 的日志接入 slog。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{xlog.Err(err)}, keysAndValues...)...)
}
