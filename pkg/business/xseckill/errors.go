package xseckill

import "errors"

var (
	// ErrNilClient Redis 客户端为 nil。
	ErrNilClient = errors.New("xseckill: nil redis client")

	// ErrNilStore Store 为 nil。
	ErrNilStore = errors.New("xseckill: nil store")

	// ErrNilIDSource 订单号生成器为 nil。
	ErrNilIDSource = errors.New("xseckill: nil id source")

	// ErrNilLocker 分布式锁为 nil。
	ErrNilLocker = errors.New("xseckill: nil locker")

	// ErrInvalidRequest 请求参数无效（非正的 ID）。
	ErrInvalidRequest = errors.New("xseckill: invalid request")

	// ErrInvalidStock 库存不能为负。
	ErrInvalidStock = errors.New("xseckill: invalid stock")

	// ErrUnavailable 准入或履约依赖的存储暂不可用，调用方可重试。
	ErrUnavailable = errors.New("xseckill: store unavailable")

	// ErrUnexpectedResult 准入脚本返回了未知结果码。
	ErrUnexpectedResult = errors.New("xseckill: unexpected admission result")

	// ErrMalformedEntry 订单流消息无法解析。
	ErrMalformedEntry = errors.New("xseckill: malformed stream entry")

	// ErrDuplicateOrder 同一用户同一券的订单已存在。
	// Store 在唯一约束冲突时返回此错误，Fulfill 将其视为已完成。
	ErrDuplicateOrder = errors.New("xseckill: duplicate order")
)
