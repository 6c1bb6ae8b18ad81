package xid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// 错误定义
// =============================================================================

var (
	// ErrNilClient Redis 客户端为 nil。
	ErrNilClient = errors.New("xid: nil redis client")

	// ErrEmptyNamespace 命名空间为空。
	ErrEmptyNamespace = errors.New("xid: empty namespace")

	// ErrClockBeforeEpoch 当前时间早于 epoch。
	ErrClockBeforeEpoch = errors.New("xid: clock is before epoch")

	// ErrSequenceOverflow 当日计数超过 32 位。
	ErrSequenceOverflow = errors.New("xid: daily sequence overflow")

	// ErrIncrFailed 计数器自增失败。
	ErrIncrFailed = errors.New("xid: counter increment failed")

	// ErrInvalidID ID 非正数。
	ErrInvalidID = errors.New("xid: invalid id")
)

const (
	sequenceBits = 32
	sequenceMask = (1 << sequenceBits) - 1
	dateLayout   = "2006:01:02"
)

// Generator 基于 Redis 的 ID 生成器，并发安全。
type Generator struct {
	client redis.UniversalClient
	opts   options
}

// NewGenerator 创建生成器。
func NewGenerator(client redis.UniversalClient, opts ...Option) (*Generator, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := options{
		epoch:     DefaultEpoch,
		keyPrefix: DefaultKeyPrefix,
		now:       time.Now,
		location:  time.UTC,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Generator{client: client, opts: o}, nil
}

// NextID 生成 namespace 下的下一个 ID：(秒偏移 << 32) | 当日计数。
// 存储错误原样包装返回，不在内部重试。
func (g *Generator) NextID(ctx context.Context, namespace string) (int64, error) {
	if strings.TrimSpace(namespace) == "" {
		return 0, ErrEmptyNamespace
	}
	now := g.opts.now()
	offset := now.Unix() - g.opts.epoch
	if offset < 0 {
		return 0, fmt.Errorf("%w: %s", ErrClockBeforeEpoch, now.Format(time.RFC3339))
	}

	key := g.CounterKey(namespace, now)
	seq, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIncrFailed, err)
	}
	if seq > sequenceMask {
		return 0, fmt.Errorf("%w: %s=%d", ErrSequenceOverflow, key, seq)
	}
	return offset<<sequenceBits | seq, nil
}

// CounterKey 返回 namespace 在 t 所在日期的计数器 key。
func (g *Generator) CounterKey(namespace string, t time.Time) string {
	return g.opts.keyPrefix + namespace + ":" + t.In(g.opts.location).Format(dateLayout)
}

// Decompose 按生成器的 epoch 分解 ID。
func (g *Generator) Decompose(id int64) (Components, error) {
	return decompose(id, g.opts.epoch)
}

// =============================================================================
// 分解
// =============================================================================

// Components ID 的组成部分。
type Components struct {
	ID       int64
	Seconds  int64 // 自 epoch 起的秒数
	Sequence int64 // 当日计数
	epoch    int64
}

// Time 返回 ID 生成时刻（秒精度）。
func (c Components) Time() time.Time {
	return time.Unix(c.epoch+c.Seconds, 0).UTC()
}

// Decompose 按默认 epoch 分解 ID。
func Decompose(id int64) (Components, error) {
	return decompose(id, DefaultEpoch)
}

func decompose(id, epoch int64) (Components, error) {
	if id <= 0 {
		return Components{}, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return Components{
		ID:       id,
		Seconds:  id >> sequenceBits,
		Sequence: id & sequenceMask,
		epoch:    epoch,
	}, nil
}
