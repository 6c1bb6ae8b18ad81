package xctx

import (
	"context"
	"log/slog"
)

// AppendAttrs 将 context 中的追踪与用户信息追加到现有切片，只追加非空字段。
func AppendAttrs(attrs []slog.Attr, ctx context.Context) []slog.Attr {
	if ctx == nil {
		return attrs
	}
	if v := TraceID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyTraceID, v))
	}
	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(KeyRequestID, v))
	}
	if v, ok := UserID(ctx); ok {
		attrs = append(attrs, slog.Int64(KeyUserID, v))
	}
	return attrs
}
