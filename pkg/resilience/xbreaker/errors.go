package xbreaker

import (
	"errors"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrOpen 熔断器处于 Open 状态，请求被拒绝。
	ErrOpen = errors.New("xbreaker: circuit open")

	// ErrTooManyRequests HalfOpen 状态下探测请求已满。
	ErrTooManyRequests = errors.New("xbreaker: too many requests in half-open state")
)

// translate 将 gobreaker 的拒绝错误映射为本包哨兵错误，业务错误原样返回。
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState):
		return ErrOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return ErrTooManyRequests
	default:
		return err
	}
}

// IsRejected 判断错误是否为熔断拒绝。
func IsRejected(err error) bool {
	return errors.Is(err, ErrOpen) || errors.Is(err, ErrTooManyRequests)
}
