package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/omeyang/xseckill/pkg/distributed/xcron"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/resilience/xretry"
)

// PrewarmJobName 预热任务名，也是多副本间的互斥锁名。
const PrewarmJobName = "cron:shop-prewarm"

// prewarmTimeout 单轮预热的超时。
const prewarmTimeout = time.Minute

// Prewarm 将配置的热点商铺写入缓存，返回成功数量。
func (a *App) Prewarm(ctx context.Context) (int, error) {
	ids := a.cfg.Prewarm.ShopIDs
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := a.shops.Prewarm(ctx, ids)
	a.logger.InfoContext(ctx, "shop prewarm finished",
		slog.Int("warmed", n), slog.Int("total", len(ids)))
	return n, err
}

func (a *App) schedulePrewarm() error {
	if a.cfg.Prewarm.Spec == "" || len(a.cfg.Prewarm.ShopIDs) == 0 {
		return nil
	}
	_, err := a.scheduler.AddFunc(a.cfg.Prewarm.Spec, func(ctx context.Context) error {
		_, err := a.Prewarm(ctx)
		return err
	}, xcron.WithName(PrewarmJobName), xcron.WithTimeout(prewarmTimeout), xcron.WithRetry(prewarmRetryer()))
	return err
}

func prewarmRetryer() *xretry.Retryer {
	return xretry.NewRetryer(
		xretry.WithMaxAttempts(3),
		xretry.WithBackoff(xretry.NewExponentialBackoff(time.Second, 10*time.Second)),
		xretry.WithRetryIf(prewarmRetryable),
	)
}

// prewarmRetryable 失败全部是商铺不存在时不重试。
func prewarmRetryable(err error) bool {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return !errors.Is(err, ErrShopNotFound)
	}
	for _, e := range joined.Unwrap() {
		if !errors.Is(e, ErrShopNotFound) {
			return true
		}
	}
	return false
}

// runScheduler 逻辑过期模式下启动时先预热一轮，缓存缺失的商铺在该模式下不可读。
func (a *App) runScheduler(ctx context.Context) error {
	if a.cfg.Cache.ShopMode == ShopModeLogical {
		if _, err := a.Prewarm(ctx); err != nil {
			a.logger.WarnContext(ctx, "initial shop prewarm incomplete", xlog.Err(err))
		}
	}
	if a.scheduler.Len() == 0 {
		<-ctx.Done()
		return nil
	}
	return a.scheduler.Run(ctx)
}
