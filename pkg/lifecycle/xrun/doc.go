// Package xrun 管理进程内多个长期运行服务的启动与协调关闭。
//
// 基于 errgroup：任一服务返回错误或收到退出信号时，其余服务通过 ctx 收到取消。
//
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithName("xseckill")},
//	    xrun.Named("http", xrun.HTTPServer(srv, 10*time.Second)),
//	    xrun.Named("order-consumer", pipeline.Run),
//	)
//	if errors.Is(err, xrun.ErrSignal) { /* 正常退出 */ }
package xrun
