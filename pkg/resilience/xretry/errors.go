package xretry

import (
	"errors"

	retry "github.com/avast/retry-go/v5"
)

var (
	// ErrNilFunc 表示传入的执行函数为 nil。
	ErrNilFunc = errors.New("xretry: nil function")
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xretry: nil context")
)

// Unrecoverable 标记错误为不可重试。
func Unrecoverable(err error) error {
	return retry.Unrecoverable(err)
}

// IsRecoverable 判断错误是否可重试。
func IsRecoverable(err error) bool {
	return retry.IsRecoverable(err)
}
