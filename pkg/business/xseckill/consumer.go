package xseckill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xseckill/pkg/observability/xlog"
	"github.com/omeyang/xseckill/pkg/observability/xmetrics"
)

// =============================================================================
// 消费循环
// =============================================================================

// Run 启动履约消费循环，阻塞直到 ctx 结束，正常退出返回 nil。
//
// 启动时先确保消费组存在并清空本消费者的 pending 列表，然后循环读取新消息。
// 读取、解析或履约失败后进入 pending 恢复，恢复完成再继续读取新消息。
// Redis 不可用时按退避重试，不会让 Run 返回错误。
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.InfoContext(ctx, "order consumer started",
		slog.String("stream", p.opts.stream),
		slog.String("group", p.opts.group),
		slog.String("consumer", p.opts.consumer))

	// 首轮恢复内部会创建消费组
	p.recoverPending(ctx)
	for ctx.Err() == nil {
		msg, err := p.readNew(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.ErrorContext(ctx, "read order stream failed", xlog.Err(err))
			p.recoverPending(ctx)
			continue
		}
		if msg == nil {
			continue
		}
		if err := p.process(ctx, *msg); err != nil {
			p.logger.ErrorContext(ctx, "process order entry failed",
				slog.String("entry", msg.ID), xlog.Err(err))
			p.recoverPending(ctx)
		}
	}
	p.logger.InfoContext(ctx, "order consumer stopped")
	return nil
}

// EnsureGroup 创建消费组（流不存在时一并创建），组已存在不是错误。
func (p *Pipeline) EnsureGroup(ctx context.Context) error {
	err := p.client.XGroupCreateMkStream(ctx, p.opts.stream, p.opts.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("%w: create group: %w", ErrUnavailable, err)
	}
	return nil
}

// readNew 读取一条新消息，阻塞超时返回 (nil, nil)。
func (p *Pipeline) readNew(ctx context.Context) (*redis.XMessage, error) {
	return p.read(ctx, ">", p.opts.block)
}

// readPending 读取本消费者最早的一条 pending 消息，为空返回 (nil, nil)。
func (p *Pipeline) readPending(ctx context.Context) (*redis.XMessage, error) {
	return p.read(ctx, "0", -1)
}

func (p *Pipeline) read(ctx context.Context, id string, block time.Duration) (*redis.XMessage, error) {
	streams, err := p.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    p.opts.group,
		Consumer: p.opts.consumer,
		Streams:  []string{p.opts.stream, id},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, s := range streams {
		if len(s.Messages) > 0 {
			msg := s.Messages[0]
			return &msg, nil
		}
	}
	return nil, nil
}

// process 解析并履约一条消息，成功后 XACK。
// 无法解析的消息记录日志后直接确认，避免阻塞 pending 列表。
func (p *Pipeline) process(ctx context.Context, msg redis.XMessage) error {
	req, err := decodeEntry(msg.Values)
	if err != nil {
		p.logger.ErrorContext(ctx, "dropping malformed order entry",
			slog.String("entry", msg.ID), slog.Any("values", msg.Values), xlog.Err(err))
		xmetrics.Event(ctx, p.opts.observer, component, "poison_dropped")
		return p.ack(ctx, msg.ID)
	}
	if err := p.Fulfill(ctx, req); err != nil {
		return err
	}
	return p.ack(ctx, msg.ID)
}

func (p *Pipeline) ack(ctx context.Context, id string) error {
	if err := p.client.XAck(ctx, p.opts.stream, p.opts.group, id).Err(); err != nil {
		return fmt.Errorf("%w: ack %s: %w", ErrUnavailable, id, err)
	}
	return nil
}

// =============================================================================
// pending 恢复
// =============================================================================

// recoverPending 按时间顺序重放 pending 消息直到列表为空。
// 失败时按指数退避重试，直到成功或 ctx 结束。
// 每轮先重建消费组：Redis 丢失流后 XADD 会重新建流但不会建组。
func (p *Pipeline) recoverPending(ctx context.Context) {
	err := p.retryer.Do(ctx, func(ctx context.Context) error {
		if err := p.EnsureGroup(ctx); err != nil {
			return err
		}
		if p.opts.claimIdle > 0 {
			if err := p.claimIdle(ctx); err != nil {
				return err
			}
		}
		for {
			msg, err := p.readPending(ctx)
			if err != nil {
				return err
			}
			if msg == nil {
				return nil
			}
			if err := p.process(ctx, *msg); err != nil {
				return err
			}
			xmetrics.Event(ctx, p.opts.observer, component, "pending_recovered")
		}
	})
	if err != nil && ctx.Err() == nil {
		p.logger.ErrorContext(ctx, "pending recovery aborted", xlog.Err(err))
	}
}

// claimIdle 将其他消费者空闲过久的 pending 消息转移到本消费者。
func (p *Pipeline) claimIdle(ctx context.Context) error {
	start := "0-0"
	for {
		msgs, next, err := p.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   p.opts.stream,
			Group:    p.opts.group,
			Consumer: p.opts.consumer,
			MinIdle:  p.opts.claimIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil {
			return fmt.Errorf("%w: autoclaim: %w", ErrUnavailable, err)
		}
		if len(msgs) > 0 {
			p.logger.InfoContext(ctx, "claimed idle order entries", slog.Int("count", len(msgs)))
		}
		if next == "0-0" || next == "" || len(msgs) == 0 {
			return nil
		}
		start = next
	}
}
