package xmetrics

import (
	"context"
	"time"
)

// Kind 表示观测跨度类型。
type Kind int

const (
	KindInternal Kind = iota
	KindServer
	KindClient
	KindProducer
	KindConsumer
)

// Status 表示观测结果状态。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attr 表示观测属性。
type Attr struct {
	Key   string
	Value any
}

// String 创建字符串属性。
func String(key, value string) Attr { return Attr{Key: key, Value: value} }

// Int64 创建 int64 属性。
func Int64(key string, value int64) Attr { return Attr{Key: key, Value: value} }

// Bool 创建布尔属性。
func Bool(key string, value bool) Attr { return Attr{Key: key, Value: value} }

// Duration 创建时长属性，以毫秒记录。
func Duration(key string, value time.Duration) Attr { return Attr{Key: key, Value: value} }

// SpanOptions 定义观测跨度的创建参数。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 表示跨度结束时的结果。Status 为空时由 Err 推导。
type Result struct {
	Status Status
	Err    error
	Attrs  []Attr
}

// Span 表示一次观测跨度。
type Span interface {
	End(result Result)
}

// Observer 定义统一观测接口。
type Observer interface {
	// Start 开始一次观测跨度。
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
	// Event 记录一次离散事件，例如 component=xcache event=hit。
	Event(ctx context.Context, component, event string, attrs ...Attr)
}

// NoopObserver 是空实现。
type NoopObserver struct{}

// Start 返回原 ctx 和空跨度。
func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// Event 空实现。
func (NoopObserver) Event(context.Context, string, string, ...Attr) {}

// NoopSpan 是空跨度实现。
type NoopSpan struct{}

// End 空实现。
func (NoopSpan) End(Result) {}

// Start 使用 observer 开始观测；observer 为 nil 时返回空跨度。
// 保证返回非 nil 的 ctx 和 Span。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}

// Event 使用 observer 记录事件；observer 为 nil 时忽略。
func Event(ctx context.Context, observer Observer, component, event string, attrs ...Attr) {
	if observer == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	observer.Event(ctx, component, event, attrs...)
}

func resolveStatus(result Result) Status {
	if result.Status != "" {
		return result.Status
	}
	if result.Err != nil {
		return StatusError
	}
	return StatusOK
}
