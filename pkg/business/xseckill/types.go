package xseckill

import (
	"fmt"
	"strconv"
	"time"
)

// Outcome 准入结果。
type Outcome int

const (
	// OutcomeUnknown 准入未完成，伴随非 nil 错误返回。
	OutcomeUnknown Outcome = -1
	// OutcomeAdmitted 准入成功，订单已入队。
	OutcomeAdmitted Outcome = 0
	// OutcomeOutOfStock 库存不足。
	OutcomeOutOfStock Outcome = 1
	// OutcomeDuplicate 该用户已抢到过此券。
	OutcomeDuplicate Outcome = 2
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdmitted:
		return "admitted"
	case OutcomeOutOfStock:
		return "out_of_stock"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeUnknown:
		return "unknown"
	default:
		return "unknown(" + strconv.Itoa(int(o)) + ")"
	}
}

// AdmissionRequest 订单流中的一条消息。
type AdmissionRequest struct {
	OrderID   int64
	UserID    int64
	VoucherID int64
}

func (r AdmissionRequest) validate() error {
	if r.OrderID <= 0 || r.UserID <= 0 || r.VoucherID <= 0 {
		return fmt.Errorf("%w: order=%d user=%d voucher=%d", ErrInvalidRequest, r.OrderID, r.UserID, r.VoucherID)
	}
	return nil
}

// Order 持久化的秒杀订单。
type Order struct {
	ID        int64
	UserID    int64
	VoucherID int64
	CreatedAt time.Time
}

// 订单流消息字段名。
const (
	fieldUserID    = "userId"
	fieldVoucherID = "voucherId"
	fieldOrderID   = "id"
)

// decodeEntry 从流消息字段解析 AdmissionRequest。
func decodeEntry(values map[string]any) (AdmissionRequest, error) {
	var req AdmissionRequest
	var err error
	if req.UserID, err = int64Field(values, fieldUserID); err != nil {
		return req, err
	}
	if req.VoucherID, err = int64Field(values, fieldVoucherID); err != nil {
		return req, err
	}
	if req.OrderID, err = int64Field(values, fieldOrderID); err != nil {
		return req, err
	}
	if err := req.validate(); err != nil {
		return req, fmt.Errorf("%w: %w", ErrMalformedEntry, err)
	}
	return req, nil
}

func int64Field(values map[string]any, name string) (int64, error) {
	raw, ok := values[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing field %q", ErrMalformedEntry, name)
	}
	s, ok := raw.(string)
	if !ok {
		s = fmt.Sprint(raw)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %w", ErrMalformedEntry, name, err)
	}
	return v, nil
}

// StockKey 返回券的 Redis 库存 key。
func StockKey(voucherID int64) string {
	return StockKeyPrefix + strconv.FormatInt(voucherID, 10)
}

// OrderSetKey 返回券的已下单用户集合 key。
func OrderSetKey(voucherID int64) string {
	return OrderKeyPrefix + strconv.FormatInt(voucherID, 10)
}
