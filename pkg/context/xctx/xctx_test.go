package xctx

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "abc")
	assert.Equal(t, "abc", TraceID(ctx))
	assert.Empty(t, TraceID(context.Background()))
}

func TestEnsureTraceID_GeneratesOnce(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := TraceID(ctx)
	require.Len(t, id, TraceIDSize*2)

	// 已存在时保持不变
	assert.Equal(t, id, TraceID(EnsureTraceID(ctx)))
}

func TestUserID_RequireMissing(t *testing.T) {
	_, err := RequireUserID(context.Background())
	assert.ErrorIs(t, err, ErrMissingUserID)

	//nolint:staticcheck // 验证 nil context 防御
	_, err = RequireUserID(nil)
	assert.ErrorIs(t, err, ErrNilContext)

	id, err := RequireUserID(WithUserID(context.Background(), 1010))
	require.NoError(t, err)
	assert.Equal(t, int64(1010), id)
}

func TestAppendAttrs_OnlyNonEmpty(t *testing.T) {
	assert.Empty(t, AppendAttrs(nil, context.Background()))

	ctx := WithUserID(WithTraceID(context.Background(), "t1"), 7)
	attrs := AppendAttrs(nil, ctx)
	require.Len(t, attrs, 2)
	assert.Equal(t, slog.String(KeyTraceID, "t1"), attrs[0])
	assert.Equal(t, slog.Int64(KeyUserID, 7), attrs[1])
}
