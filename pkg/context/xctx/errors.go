package xctx

import "errors"

var (
	// ErrNilContext 表示传入的 context 为 nil。
	ErrNilContext = errors.New("xctx: nil context")

	// ErrMissingUserID 表示 context 中不存在用户标识。
	ErrMissingUserID = errors.New("xctx: missing user id")
)
