package xseckill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xseckill/pkg/distributed/xdlock"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
	"github.com/omeyang/xseckill/pkg/resilience/xbreaker"
	"github.com/omeyang/xseckill/pkg/resilience/xretry"
)

const component = "xseckill"

// Pipeline 秒杀下单流水线。Admit 可并发调用；Run 每个进程启动一个。
type Pipeline struct {
	client  redis.UniversalClient
	store   Store
	ids     IDSource
	locker  xdlock.Locker
	breaker *xbreaker.Breaker
	retryer *xretry.Retryer
	opts    *options
	logger  *slog.Logger
}

// New 创建流水线。
func New(client redis.UniversalClient, store Store, ids IDSource, locker xdlock.Locker, opts ...Option) (*Pipeline, error) {
	switch {
	case client == nil:
		return nil, ErrNilClient
	case store == nil:
		return nil, ErrNilStore
	case ids == nil:
		return nil, ErrNilIDSource
	case locker == nil:
		return nil, ErrNilLocker
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.breaker == nil {
		o.breaker = xbreaker.New("xseckill-store", xbreaker.WithLogger(o.logger))
	}
	logger := o.logger.With(xlog.Component(component))

	p := &Pipeline{
		client:  client,
		store:   store,
		ids:     ids,
		locker:  locker,
		breaker: o.breaker,
		opts:    o,
		logger:  logger,
	}
	p.retryer = xretry.NewRetryer(
		xretry.WithMaxAttempts(0),
		xretry.WithBackoff(xretry.NewExponentialBackoff(o.recoveryInitial, o.recoveryMax)),
		xretry.WithOnRetry(func(attempt int, err error) {
			logger.Warn("pending recovery failed, backing off",
				slog.Int("attempt", attempt), xlog.Err(err))
		}),
	)
	return p, nil
}

// PublishVoucher 发布秒杀券：将库存写入 Redis，覆盖已有值。
// 已下单用户集合保持不变。
func (p *Pipeline) PublishVoucher(ctx context.Context, voucherID int64, stock int) error {
	if voucherID <= 0 {
		return fmt.Errorf("%w: voucher=%d", ErrInvalidRequest, voucherID)
	}
	if stock < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStock, stock)
	}
	if err := p.client.Set(ctx, StockKey(voucherID), stock, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p.logger.InfoContext(ctx, "seckill voucher published", xlog.VoucherID(voucherID), slog.Int("stock", stock))
	return nil
}

// Admit 同步准入。返回的 orderID 仅在 OutcomeAdmitted 时有意义。
// 库存不足与重复下单通过 Outcome 表达；err 只表示暂时性失败，此时 Outcome 为 OutcomeUnknown。
func (p *Pipeline) Admit(ctx context.Context, voucherID, userID int64) (orderID int64, outcome Outcome, err error) {
	if voucherID <= 0 || userID <= 0 {
		return 0, OutcomeUnknown, fmt.Errorf("%w: voucher=%d user=%d", ErrInvalidRequest, voucherID, userID)
	}

	ctx, span := xmetrics.Start(ctx, p.opts.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "admit",
		Kind:      xmetrics.KindProducer,
		Attrs:     []xmetrics.Attr{xmetrics.Int64("voucher_id", voucherID)},
	})
	defer func() {
		span.End(xmetrics.Result{Err: err, Attrs: []xmetrics.Attr{xmetrics.String("outcome", outcome.String())}})
	}()

	orderID, err = p.ids.NextID(ctx, OrderIDNamespace)
	if err != nil {
		return 0, OutcomeUnknown, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	code, err := admissionScript.Run(ctx, p.client,
		[]string{StockKey(voucherID), OrderSetKey(voucherID), p.opts.stream},
		userID, orderID, voucherID,
	).Int()
	if err != nil {
		return 0, OutcomeUnknown, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	outcome = Outcome(code)
	switch outcome {
	case OutcomeAdmitted:
		p.logger.DebugContext(ctx, "seckill admitted",
			xlog.VoucherID(voucherID), xlog.UserID(userID), xlog.OrderID(orderID))
		return orderID, outcome, nil
	case OutcomeOutOfStock, OutcomeDuplicate:
		return 0, outcome, nil
	default:
		return 0, OutcomeUnknown, fmt.Errorf("%w: %d", ErrUnexpectedResult, code)
	}
}
