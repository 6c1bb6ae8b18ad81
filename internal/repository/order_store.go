package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/omeyang/xseckill/pkg/business/xseckill"
)

// OrderStore 秒杀履约存储。
type OrderStore struct {
	baseStore
}

var _ xseckill.Store = (*OrderStore)(nil)

// NewOrderStore 创建 OrderStore。
func NewOrderStore(db *gorm.DB) (*OrderStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &OrderStore{baseStore{db: db}}, nil
}

// GetStock 查询数据库剩余库存，券不存在时返回 0。
func (s *OrderStore) GetStock(ctx context.Context, voucherID int64) (int, error) {
	var v SeckillVoucher
	err := s.conn(ctx).Select("stock").Where("voucher_id = ?", voucherID).Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("repository: get stock %d: %w", voucherID, err)
	}
	return v.Stock, nil
}

// DecrementStockIfPositive 条件扣减：stock > 0 时减一。
func (s *OrderStore) DecrementStockIfPositive(ctx context.Context, voucherID int64) (bool, error) {
	res := s.conn(ctx).Model(&SeckillVoucher{}).
		Where("voucher_id = ? AND stock > 0", voucherID).
		Update("stock", gorm.Expr("stock - 1"))
	if res.Error != nil {
		return false, fmt.Errorf("repository: decrement stock %d: %w", voucherID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CountOrders 统计用户在该券下的订单数。
func (s *OrderStore) CountOrders(ctx context.Context, userID, voucherID int64) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&VoucherOrder{}).
		Where("user_id = ? AND voucher_id = ?", userID, voucherID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("repository: count orders: %w", err)
	}
	return n, nil
}

// InsertOrder 写入订单，唯一约束冲突返回 xseckill.ErrDuplicateOrder。
func (s *OrderStore) InsertOrder(ctx context.Context, order xseckill.Order) error {
	row := VoucherOrder{
		ID:        order.ID,
		UserID:    order.UserID,
		VoucherID: order.VoucherID,
		CreatedAt: order.CreatedAt,
	}
	err := s.conn(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: user=%d voucher=%d", xseckill.ErrDuplicateOrder, order.UserID, order.VoucherID)
	}
	if err != nil {
		return fmt.Errorf("repository: insert order %d: %w", order.ID, err)
	}
	return nil
}
