package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xseckill/internal/app"
	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/lifecycle/xrun"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// usageError 表示参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// createServeCommand 创建 serve 子命令。
func createServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "启动 HTTP 服务、订单消费者与预热调度",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, logger, cleanup, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info("xseckill starting", slog.String("version", Version))
			err = xrun.Run(ctx, []xrun.Option{xrun.WithName("xseckill"), xrun.WithLogger(logger)}, a.Services()...)
			if errors.Is(err, xrun.ErrSignal) {
				logger.Info("xseckill stopped", xlog.Err(err))
				return nil
			}
			return err
		},
	}
}

// createPrewarmCommand 创建 prewarm 子命令。
func createPrewarmCommand() *cli.Command {
	return &cli.Command{
		Name:  "prewarm",
		Usage: "立即预热 prewarm.shop_ids 中的商铺",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, _, cleanup, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := a.Prewarm(ctx)
			fmt.Fprintf(cmd.Root().Writer, "warmed %d shop(s)\n", n)
			return err
		},
	}
}

// createPublishVoucherCommand 创建 publish-voucher 子命令。
func createPublishVoucherCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish-voucher",
		Usage: "将秒杀券库存写入 Redis",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "voucher-id", Aliases: []string{"v"}, Usage: "秒杀券 ID"},
			&cli.IntFlag{Name: "stock", Aliases: []string{"n"}, Usage: "库存数量", Value: -1},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			voucherID, stock := cmd.Int64("voucher-id"), cmd.Int("stock")
			if voucherID <= 0 {
				return usagef("--voucher-id must be positive")
			}
			if stock < 0 {
				return usagef("--stock must be >= 0")
			}

			a, _, cleanup, err := bootstrap(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Pipeline().PublishVoucher(ctx, voucherID, stock); err != nil {
				return err
			}
			fmt.Fprintf(cmd.Root().Writer, "voucher %d stock set to %d\n", voucherID, stock)
			return nil
		},
	}
}

// createMigrateCommand 创建 migrate 子命令，只连接数据库。
func createMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "创建或更新数据库表结构",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, logger, closeLog, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			db, err := repository.Open(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer func() { _ = repository.Close(db) }()
			if err := repository.AutoMigrate(ctx, db); err != nil {
				return err
			}
			logger.Info("database migrated")
			return nil
		},
	}
}

// loadConfig 读取配置并构建日志，日志同时设为全局默认。
func loadConfig(cmd *cli.Command) (app.Config, *slog.Logger, func() error, error) {
	cfg, err := app.LoadConfig(cmd.String("config"))
	if err != nil {
		return cfg, nil, nil, err
	}
	logger, _, closeLog, err := app.NewLogger(cfg.Log, cmd.Root().ErrWriter)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("%w: log: %w", app.ErrInvalidConfig, err)
	}
	xlog.SetDefault(logger)
	return cfg, logger, closeLog, nil
}

// bootstrap 加载配置并构建 App，cleanup 依次释放 App 与日志文件。
func bootstrap(ctx context.Context, cmd *cli.Command) (*app.App, *slog.Logger, func(), error) {
	cfg, logger, closeLog, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := app.New(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		_ = closeLog()
		return nil, nil, nil, err
	}
	return a, logger, func() {
		if err := a.Close(); err != nil {
			logger.Warn("close app failed", xlog.Err(err))
		}
		_ = closeLog()
	}, nil
}
