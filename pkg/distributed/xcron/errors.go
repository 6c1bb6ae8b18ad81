package xcron

import "errors"

var (
	// ErrNilJob 任务函数为 nil。
	ErrNilJob = errors.New("xcron: nil job")

	// ErrInvalidSpec cron 表达式无法解析。
	ErrInvalidSpec = errors.New("xcron: invalid spec")

	// ErrMissingName 配置了分布式锁但任务未命名。
	ErrMissingName = errors.New("xcron: job name required when locker is set")

	// ErrInvalidLockTTL 锁 TTL 小于 MinLockTTL。
	ErrInvalidLockTTL = errors.New("xcron: lock ttl too short")

	// ErrLockLost 任务执行期间续期失败，锁已不属于本副本。
	ErrLockLost = errors.New("xcron: lock lost during execution")
)
