package repository

import "time"

// Shop 商铺。
type Shop struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	TypeID    int64     `gorm:"index" json:"typeId"`
	Images    string    `gorm:"size:1024" json:"images"`
	Area      string    `gorm:"size:128" json:"area"`
	Address   string    `gorm:"size:255" json:"address"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	AvgPrice  int64     `json:"avgPrice"`
	Sold      int32     `json:"sold"`
	Comments  int32     `json:"comments"`
	Score     int32     `json:"score"`
	OpenHours string    `gorm:"size:32" json:"openHours"`
	CreatedAt time.Time `json:"createTime"`
	UpdatedAt time.Time `json:"updateTime"`
}

// TableName 表名。
func (Shop) TableName() string { return "tb_shop" }

// ShopType 商铺类型。
type ShopType struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:32;not null" json:"name"`
	Icon string `gorm:"size:255" json:"icon"`
	Sort int32  `gorm:"index" json:"sort"`
}

// TableName 表名。
func (ShopType) TableName() string { return "tb_shop_type" }

// SeckillVoucher 秒杀券，库存以数据库为准。
type SeckillVoucher struct {
	VoucherID int64     `gorm:"primaryKey;autoIncrement:false" json:"voucherId"`
	Stock     int       `gorm:"not null;check:stock >= 0" json:"stock"`
	BeginTime time.Time `json:"beginTime"`
	EndTime   time.Time `json:"endTime"`
	CreatedAt time.Time `json:"createTime"`
	UpdatedAt time.Time `json:"updateTime"`
}

// TableName 表名。
func (SeckillVoucher) TableName() string { return "tb_seckill_voucher" }

// VoucherOrder 秒杀订单，(user_id, voucher_id) 唯一。
type VoucherOrder struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64     `gorm:"not null;uniqueIndex:uk_user_voucher"`
	VoucherID int64     `gorm:"not null;uniqueIndex:uk_user_voucher"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName 表名。
func (VoucherOrder) TableName() string { return "tb_voucher_order" }
