package xctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// =============================================================================
// Key 常量
// =============================================================================

// 日志属性 Key，遵循下划线分隔的语义约定。
const (
	KeyTraceID   = "trace_id"
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
)

// TraceIDSize W3C 规范: 128-bit (16 bytes) -> 32 hex chars
const TraceIDSize = 16

type contextKey int

const (
	traceIDKey contextKey = iota
	requestIDKey
	userIDKey
)

// =============================================================================
// Trace
// =============================================================================

// WithTraceID 将 trace ID 写入 context。
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 从 context 读取 trace ID，缺失时返回空字符串。
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// EnsureTraceID 确保 context 中存在 trace ID，缺失时生成新的随机 ID。
func EnsureTraceID(ctx context.Context) context.Context {
	if TraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, NewTraceID())
}

// NewTraceID 生成 W3C 格式的 trace ID。
// crypto/rand 失败时返回全零以外的固定占位值，调用方无需处理错误。
func NewTraceID() string {
	b := make([]byte, TraceIDSize)
	if _, err := rand.Read(b); err != nil {
		return "00000000000000000000000000000001"
	}
	return hex.EncodeToString(b)
}

// WithRequestID 将 request ID 写入 context。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID 从 context 读取 request ID。
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// =============================================================================
// User
// =============================================================================

// WithUserID 将登录用户 ID 写入 context。
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID 从 context 读取用户 ID，第二个返回值表示是否存在。
func UserID(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	v, ok := ctx.Value(userIDKey).(int64)
	return v, ok
}

// RequireUserID 从 context 获取用户 ID，不存在则返回错误。
func RequireUserID(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}
	v, ok := UserID(ctx)
	if !ok {
		return 0, ErrMissingUserID
	}
	return v, nil
}
