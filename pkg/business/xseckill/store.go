package xseckill

import "context"

// Store 履约阶段依赖的关系型存储。
//
// WithTransaction 内部的调用通过 fn 收到的 ctx 共享同一事务，
// fn 返回错误时事务回滚。
type Store interface {
	// GetStock 查询券的数据库剩余库存。
	GetStock(ctx context.Context, voucherID int64) (int, error)

	// DecrementStockIfPositive 库存大于 0 时减一，返回是否扣减成功。
	DecrementStockIfPositive(ctx context.Context, voucherID int64) (bool, error)

	// CountOrders 统计用户在该券下的订单数。
	CountOrders(ctx context.Context, userID, voucherID int64) (int64, error)

	// InsertOrder 写入订单。同一 (userID, voucherID) 已存在时返回 ErrDuplicateOrder。
	InsertOrder(ctx context.Context, order Order) error

	// WithTransaction 在事务中执行 fn。
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// IDSource 订单号生成器，*xid.Generator 实现了此接口。
type IDSource interface {
	NextID(ctx context.Context, namespace string) (int64, error)
}
