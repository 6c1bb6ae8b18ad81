package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/omeyang/xseckill/internal/repository"
	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/storage/xcache"
)

// 缓存 key 前缀。
const (
	ShopCachePrefix     = "cache:shop:"
	ShopLockPrefix      = "shop:"
	ShopTypeCachePrefix = "cache:shop-type:"
	shopTypeListID      = "list"
)

// ErrShopNotFound 商铺不存在。
var ErrShopNotFound = errors.New("app: shop not found")

// ShopRepository 商铺数据源，*repository.ShopStore 实现了此接口。
type ShopRepository interface {
	GetShop(ctx context.Context, id int64) (*repository.Shop, error)
	UpdateShop(ctx context.Context, shop *repository.Shop) (bool, error)
	ListShopTypes(ctx context.Context) ([]repository.ShopType, error)
	CreateSeckillVoucher(ctx context.Context, v *repository.SeckillVoucher) error
}

// ShopService 商铺查询与维护，读路径经过缓存门面。
type ShopService struct {
	cache  xcache.Cache
	repo   ShopRepository
	cfg    CacheConfig
	logger *slog.Logger
}

// NewShopService 创建 ShopService。
func NewShopService(cache xcache.Cache, repo ShopRepository, cfg CacheConfig, logger *slog.Logger) *ShopService {
	return &ShopService{cache: cache, repo: repo, cfg: cfg, logger: xlog.OrDefault(logger)}
}

// GetShop 按配置的策略读取商铺。
// 逻辑过期模式下未预热的商铺视为不存在。
func (s *ShopService) GetShop(ctx context.Context, id int64) (*repository.Shop, error) {
	var (
		shop *repository.Shop
		err  error
	)
	if s.cfg.ShopMode == ShopModeLogical {
		shop, err = xcache.GetOrRebuildLogical(ctx, s.cache, ShopCachePrefix, ShopLockPrefix, id, s.repo.GetShop, s.cfg.ShopLogicalTTL)
	} else {
		shop, err = xcache.GetOrLoad(ctx, s.cache, ShopCachePrefix, id, s.repo.GetShop, s.cfg.ShopTTL)
	}
	if errors.Is(err, xcache.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrShopNotFound, id)
	}
	return shop, err
}

// UpdateShop 先更新数据库再处理缓存：直读模式删除缓存，
// 逻辑过期模式直接写回新值（该模式下缓存缺失即视为不存在）。
func (s *ShopService) UpdateShop(ctx context.Context, shop *repository.Shop) error {
	found, err := s.repo.UpdateShop(ctx, shop)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %d", ErrShopNotFound, shop.ID)
	}
	if s.cfg.ShopMode == ShopModeLogical {
		return s.warm(ctx, shop.ID)
	}
	if err := s.cache.Delete(ctx, shopKey(shop.ID)); err != nil {
		s.logger.WarnContext(ctx, "invalidate shop cache failed", slog.Int64("shop_id", shop.ID), xlog.Err(err))
		return err
	}
	return nil
}

// ListShopTypes 读取商铺类型列表，整表缓存。空表按不存在处理，写入空值标记。
func (s *ShopService) ListShopTypes(ctx context.Context) ([]repository.ShopType, error) {
	types, err := xcache.GetOrLoad(ctx, s.cache, ShopTypeCachePrefix, shopTypeListID,
		func(ctx context.Context, _ string) (*[]repository.ShopType, error) {
			list, err := s.repo.ListShopTypes(ctx)
			if err != nil || len(list) == 0 {
				return nil, err
			}
			return &list, nil
		}, s.cfg.ShopTypeTTL)
	if errors.Is(err, xcache.ErrNotFound) {
		return []repository.ShopType{}, nil
	}
	if err != nil {
		return nil, err
	}
	return *types, nil
}

// Prewarm 从数据库加载商铺并写入缓存，返回成功数量。
// 逻辑过期模式写入带逻辑过期时间的包装值，直读模式写入普通 TTL 值。
// 单个商铺失败不影响其他商铺。
func (s *ShopService) Prewarm(ctx context.Context, ids []int64) (int, error) {
	var errs []error
	n := 0
	for _, id := range ids {
		if err := s.warm(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func (s *ShopService) warm(ctx context.Context, id int64) error {
	shop, err := s.repo.GetShop(ctx, id)
	if err != nil {
		return fmt.Errorf("warm shop %d: %w", id, err)
	}
	if shop == nil {
		return fmt.Errorf("warm shop %d: %w", id, ErrShopNotFound)
	}
	if s.cfg.ShopMode == ShopModeLogical {
		return s.cache.SetWithLogicalExpire(ctx, shopKey(id), shop, s.cfg.ShopLogicalTTL)
	}
	return s.cache.Set(ctx, shopKey(id), shop, s.cfg.ShopTTL)
}

func shopKey(id int64) string {
	return ShopCachePrefix + strconv.FormatInt(id, 10)
}
