package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config 数据库连接配置。
type Config struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	SlowThreshold   time.Duration `koanf:"slow_threshold"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// Open 连接 PostgreSQL 并设置连接池。
// 唯一约束冲突会被翻译为 gorm.ErrDuplicatedKey。
func Open(cfg Config, logger *slog.Logger) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, ErrEmptyDSN
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:         NewGormLogger(logger, cfg.SlowThreshold),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("repository: open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("repository: get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 100))
	sqlDB.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 10))
	sqlDB.SetConnMaxLifetime(orDefault(cfg.ConnMaxLifetime, time.Hour))
	sqlDB.SetConnMaxIdleTime(orDefault(cfg.ConnMaxIdleTime, 10*time.Minute))
	return db, nil
}

// Close 关闭底层连接池。
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("repository: get database instance: %w", err)
	}
	return sqlDB.Close()
}

// Ping 检查数据库连通性。
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("repository: get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate 创建或更新表结构。
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Shop{}, &ShopType{}, &SeckillVoucher{}, &VoucherOrder{}); err != nil {
		return fmt.Errorf("repository: migrate: %w", err)
	}
	return nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}
