package xseckill

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

// Fulfill 持久化一条已准入的订单，可重复调用。
//
// 在用户级锁内：已有订单则跳过；否则在同一事务中条件扣减库存并写入订单。
// 锁竞争、重复订单、库存耗尽都返回 nil（消息会被确认）；
// 返回错误表示暂时性失败，消息应留在 pending 列表等待重放。
func (p *Pipeline) Fulfill(ctx context.Context, req AdmissionRequest) (err error) {
	if err := req.validate(); err != nil {
		return err
	}

	ctx, span := xmetrics.Start(ctx, p.opts.observer, xmetrics.SpanOptions{
		Component: component,
		Operation: "fulfill",
		Kind:      xmetrics.KindConsumer,
		Attrs:     []xmetrics.Attr{xmetrics.Int64("voucher_id", req.VoucherID)},
	})
	defer func() { span.End(xmetrics.Result{Err: err}) }()

	lease, err := p.locker.TryLock(ctx, OrderLockPrefix+strconv.FormatInt(req.UserID, 10), p.opts.lockTTL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if lease == nil {
		p.logger.WarnContext(ctx, "order lock held elsewhere, skipping",
			xlog.UserID(req.UserID), xlog.VoucherID(req.VoucherID), xlog.OrderID(req.OrderID))
		xmetrics.Event(ctx, p.opts.observer, component, "lock_contended")
		return nil
	}
	defer func() {
		if uerr := lease.Unlock(ctx); uerr != nil {
			p.logger.WarnContext(ctx, "release order lock failed", xlog.Key(lease.Key()), xlog.Err(uerr))
		}
	}()

	return p.breaker.Do(ctx, func(ctx context.Context) error {
		return p.persist(ctx, req)
	})
}

func (p *Pipeline) persist(ctx context.Context, req AdmissionRequest) error {
	n, err := p.store.CountOrders(ctx, req.UserID, req.VoucherID)
	if err != nil {
		return fmt.Errorf("%w: count orders: %w", ErrUnavailable, err)
	}
	if n > 0 {
		p.logger.WarnContext(ctx, "user already ordered this voucher",
			xlog.UserID(req.UserID), xlog.VoucherID(req.VoucherID), xlog.OrderID(req.OrderID))
		xmetrics.Event(ctx, p.opts.observer, component, "duplicate_skipped")
		return nil
	}

	err = p.store.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := p.store.DecrementStockIfPositive(ctx, req.VoucherID)
		if err != nil {
			return fmt.Errorf("%w: decrement stock: %w", ErrUnavailable, err)
		}
		if !ok {
			p.logger.WarnContext(ctx, "voucher sold out in database",
				xlog.VoucherID(req.VoucherID), xlog.OrderID(req.OrderID))
			xmetrics.Event(ctx, p.opts.observer, component, "stock_exhausted")
			return nil
		}
		if err := p.store.InsertOrder(ctx, Order{
			ID:        req.OrderID,
			UserID:    req.UserID,
			VoucherID: req.VoucherID,
			CreatedAt: p.opts.now(),
		}); err != nil {
			return err
		}
		p.logger.InfoContext(ctx, "order persisted",
			xlog.UserID(req.UserID), xlog.VoucherID(req.VoucherID), xlog.OrderID(req.OrderID))
		return nil
	})
	if errors.Is(err, ErrDuplicateOrder) {
		xmetrics.Event(ctx, p.opts.observer, component, "duplicate_skipped")
		return nil
	}
	return err
}
