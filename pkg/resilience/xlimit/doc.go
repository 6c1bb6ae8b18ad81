// Package xlimit 基于 go-redis/redis_rate（GCRA）的分布式限流。
//
// 多个进程共享同一 Redis 计数，限流键由调用方提供（例如 "seckill:user:42"）。
// Redis 不可用时默认放行（fail-open），可通过 WithFailClosed 改为拒绝。
//
//	l, _ := xlimit.New(rdb, xlimit.Rule{Rate: 5, Burst: 5, Period: time.Second})
//	router.Use(xlimit.HTTPMiddleware(l, userKey))
package xlimit
