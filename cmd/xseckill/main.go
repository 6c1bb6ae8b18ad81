// xseckill 是秒杀与商铺缓存服务的入口。
//
// 用法:
//
//	xseckill [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径（yaml/json），也可通过 XSECKILL_CONFIG 指定
//
// 命令:
//
//	serve            启动 HTTP 服务、订单消费者与预热调度
//	prewarm          立即预热配置中的热点商铺后退出
//	publish-voucher  将秒杀券库存写入 Redis（补发或重置）
//	migrate          创建或更新数据库表结构
//
// 退出码:
//
//	0: 成功（serve 收到 SIGINT/SIGTERM 后正常退出也返回 0）
//	1: 运行失败
//	2: 参数或配置错误
//
// 示例:
//
//	xseckill -c /etc/xseckill.yaml serve
//	xseckill -c /etc/xseckill.yaml publish-voucher --voucher-id 10 --stock 100
//	XSECKILL_REDIS_ADDRS=10.0.0.1:6379 xseckill prewarm
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xseckill/internal/app"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xseckill",
		Usage:   "秒杀与商铺缓存服务",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
				Sources: cli.EnvVars("XSECKILL_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			createServeCommand(),
			createPrewarmCommand(),
			createPublishVoucherCommand(),
			createMigrateCommand(),
		},
		// 退出码统一由 run 映射，不让 urfave/cli 直接 os.Exit。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string) int {
	err := createApp().Run(ctx, args)
	if err == nil {
		return 0
	}
	code := exitCode(err)
	if code == 2 {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
	}
	return code
}

// exitCode 将错误映射为退出码。
func exitCode(err error) int {
	var uerr *usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &uerr), errors.Is(err, app.ErrInvalidConfig):
		return 2
	default:
		return 1
	}
}
