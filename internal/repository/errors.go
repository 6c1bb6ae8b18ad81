package repository

import "errors"

var (
	// ErrNilDB gorm 句柄为 nil。
	ErrNilDB = errors.New("repository: nil db")

	// ErrEmptyDSN 未配置数据库连接串。
	ErrEmptyDSN = errors.New("repository: empty dsn")

	// ErrInvalidShop 商铺缺少 ID。
	ErrInvalidShop = errors.New("repository: shop id is required")

	// ErrInvalidVoucher 秒杀券参数无效。
	ErrInvalidVoucher = errors.New("repository: invalid seckill voucher")
)
