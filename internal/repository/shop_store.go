package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ShopStore 商铺与秒杀券存储。
type ShopStore struct {
	baseStore
}

// NewShopStore 创建 ShopStore。
func NewShopStore(db *gorm.DB) (*ShopStore, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &ShopStore{baseStore{db: db}}, nil
}

// GetShop 按 ID 查询商铺，不存在返回 (nil, nil)。
func (s *ShopStore) GetShop(ctx context.Context, id int64) (*Shop, error) {
	var shop Shop
	err := s.conn(ctx).Where("id = ?", id).Take(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get shop %d: %w", id, err)
	}
	return &shop, nil
}

// UpdateShop 更新商铺全部字段，返回是否命中记录。
func (s *ShopStore) UpdateShop(ctx context.Context, shop *Shop) (bool, error) {
	if shop == nil || shop.ID <= 0 {
		return false, ErrInvalidShop
	}
	res := s.conn(ctx).Model(&Shop{ID: shop.ID}).Select("*").Omit("id", "created_at").Updates(shop)
	if res.Error != nil {
		return false, fmt.Errorf("repository: update shop %d: %w", shop.ID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CreateShop 新建商铺。
func (s *ShopStore) CreateShop(ctx context.Context, shop *Shop) error {
	if shop == nil || shop.ID <= 0 {
		return ErrInvalidShop
	}
	if err := s.conn(ctx).Create(shop).Error; err != nil {
		return fmt.Errorf("repository: create shop %d: %w", shop.ID, err)
	}
	return nil
}

// ListShopTypes 按 sort 升序列出商铺类型。
func (s *ShopStore) ListShopTypes(ctx context.Context) ([]ShopType, error) {
	var types []ShopType
	if err := s.conn(ctx).Order("sort ASC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("repository: list shop types: %w", err)
	}
	return types, nil
}

// CreateSeckillVoucher 新建秒杀券。
func (s *ShopStore) CreateSeckillVoucher(ctx context.Context, v *SeckillVoucher) error {
	if v == nil || v.VoucherID <= 0 || v.Stock < 0 {
		return ErrInvalidVoucher
	}
	if !v.EndTime.IsZero() && v.EndTime.Before(v.BeginTime) {
		return fmt.Errorf("%w: end before begin", ErrInvalidVoucher)
	}
	if err := s.conn(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("repository: create voucher %d: %w", v.VoucherID, err)
	}
	return nil
}
