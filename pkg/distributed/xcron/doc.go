// Package xcron 提供多副本安全的定时任务调度。
//
// 基于 [robfig/cron/v3]，每次触发前以任务名为锁名调用 [xdlock.Locker.TryLock]：
// 获取失败或锁服务异常时本副本跳过本轮，保证多副本部署下同一轮只执行一次。
// 任务执行期间按 TTL/3 续期，续期失败会取消任务 ctx。
//
// 用法：
//
//	s, _ := xcron.New(xcron.WithLocker(locker), xcron.WithLogger(logger))
//	_, err := s.AddFunc("@every 5m", prewarm,
//	    xcron.WithName("shop-prewarm"),
//	    xcron.WithTimeout(time.Minute),
//	)
//	err = s.Run(ctx) // 阻塞直到 ctx 取消，退出前等待运行中的任务
//
// [robfig/cron/v3]: https://github.com/robfig/cron
package xcron
