package xpool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

// Pool 是有界的泛型 worker pool，New 之后 worker 立即运行。
type Pool[T any] struct {
	handler func(T)
	queue   chan T
	opts    options

	mu     sync.RWMutex
	closed bool

	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

// New 创建并启动 pool。
// workers 取值 [1, 65536]，queueSize 取值 [1, 16777216]。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	p := &Pool[T]{
		handler: handler,
		queue:   make(chan T, queueSize),
		opts:    o,
		done:    make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.logger.Error("xpool: task panic recovered",
				slog.String("pool", p.opts.name),
				slog.String("task_type", fmt.Sprintf("%T", task)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close 拒绝新任务并等待队列中的任务全部完成。幂等。
// 不可在 handler 内调用。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 拒绝新任务，等待已排队任务完成或 ctx 结束。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 在所有 worker 退出后关闭。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// Pending 返回队列中等待执行的任务数。
func (p *Pool[T]) Pending() int {
	return len(p.queue)
}
