package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// baseStore 事务感知的 gorm 句柄。
type baseStore struct {
	db *gorm.DB
}

// conn 返回 ctx 中的事务句柄，不存在时返回普通会话。
func (s *baseStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// WithTransaction 在事务中执行 fn，fn 返回错误时回滚。
// ctx 中已有事务时直接复用，不嵌套。
func (s *baseStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}
