package xrun

import (
	"errors"
	"os"
)

var (
	// ErrSignal 所有 SignalError 都匹配此哨兵错误。
	ErrSignal = errors.New("xrun: received signal")

	// ErrNilService 注册了 nil 服务。
	ErrNilService = errors.New("xrun: nil service")

	// ErrNilServer HTTPServer 传入了 nil server。
	ErrNilServer = errors.New("xrun: nil server")
)

// SignalError 表示因收到系统信号而退出。
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return "xrun: received signal " + e.Signal.String()
}

// Is 使 errors.Is(err, ErrSignal) 成立。
func (e *SignalError) Is(target error) bool {
	return target == ErrSignal
}
