// Package xretry 基于 avast/retry-go/v5 的重试执行器。
//
// Retryer 组合最大尝试次数与退避策略。MaxAttempts 为 0 表示一直重试，
// 直到成功或 ctx 结束，用于后台恢复循环：
//
//	r := xretry.NewRetryer(
//	    xretry.WithMaxAttempts(0),
//	    xretry.WithBackoff(xretry.NewExponentialBackoff(20*time.Millisecond, time.Second)),
//	)
//	err := r.Do(ctx, drainPending)
//
// 用 [Unrecoverable] 包装的错误不会被重试。
package xretry
