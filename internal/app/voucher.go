package app

import (
	"context"
	"log/slog"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/business/xseckill"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
)

// Seckill 下单流水线的同步入口，*xseckill.Pipeline 实现了此接口。
type Seckill interface {
	Admit(ctx context.Context, voucherID, userID int64) (int64, xseckill.Outcome, error)
	PublishVoucher(ctx context.Context, voucherID int64, stock int) error
}

// VoucherService 秒杀券发布。
type VoucherService struct {
	repo    ShopRepository
	seckill Seckill
	logger  *slog.Logger
}

// NewVoucherService 创建 VoucherService。
func NewVoucherService(repo ShopRepository, seckill Seckill, logger *slog.Logger) *VoucherService {
	return &VoucherService{repo: repo, seckill: seckill, logger: xlog.OrDefault(logger)}
}

// Create 写入数据库后将库存发布到 Redis。
// 发布失败时数据库记录保留，可通过 publish-voucher 命令补发。
func (s *VoucherService) Create(ctx context.Context, v *repository.SeckillVoucher) error {
	if err := s.repo.CreateSeckillVoucher(ctx, v); err != nil {
		return err
	}
	if err := s.seckill.PublishVoucher(ctx, v.VoucherID, v.Stock); err != nil {
		s.logger.ErrorContext(ctx, "publish voucher stock failed", xlog.VoucherID(v.VoucherID), xlog.Err(err))
		return err
	}
	return nil
}
