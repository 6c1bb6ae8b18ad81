// Package xpool 提供有界的泛型 worker pool。
//
// 固定数量的 worker 消费有界队列；Submit 永不阻塞，队列满时返回 ErrQueueFull，
// 由调用方决定降级方式（例如缓存重建被拒绝时释放重建锁）。
// 单个任务 panic 会被恢复并记录堆栈，不影响其他任务。
//
// Close 等待队列中已有任务处理完毕；Shutdown(ctx) 在 ctx 到期时提前返回，
// 残留任务继续在后台执行，可通过 Done() 等待。
package xpool
