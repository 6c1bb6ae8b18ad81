package xlog

import (
	"log/slog"
	"time"
)

// 常用属性 Key 常量
const (
	KeyError     = "error"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyUserID    = "user_id"
	KeyVoucherID = "voucher_id"
	KeyOrderID   = "order_id"
	KeyKey       = "key"
)

// Err 创建错误属性，err 为 nil 时返回空属性（会被 slog 忽略）
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Duration 创建耗时属性
func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

// Component 创建组件名称属性
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// Operation 创建操作名称属性
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// UserID 创建用户 ID 属性
func UserID(id int64) slog.Attr {
	return slog.Int64(KeyUserID, id)
}

// VoucherID 创建优惠券 ID 属性
func VoucherID(id int64) slog.Attr {
	return slog.Int64(KeyVoucherID, id)
}

// OrderID 创建订单 ID 属性
func OrderID(id int64) slog.Attr {
	return slog.Int64(KeyOrderID, id)
}

// Key 创建缓存/锁 key 属性
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}
