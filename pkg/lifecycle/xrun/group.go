package xrun

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service 是阻塞运行直到 ctx 取消的服务。
type Service interface {
	Run(ctx context.Context) error
}

// ServiceFunc 将函数适配为 Service。
type ServiceFunc func(ctx context.Context) error

// Run 实现 Service。
func (f ServiceFunc) Run(ctx context.Context) error { return f(ctx) }

// namedService 带名称的服务，名称只用于日志。
type namedService struct {
	name string
	fn   func(ctx context.Context) error
}

func (s namedService) Run(ctx context.Context) error { return s.fn(ctx) }

// Named 为服务函数附加名称。
func Named(name string, fn func(ctx context.Context) error) Service {
	return namedService{name: name, fn: fn}
}

// Group 基于 errgroup 的服务组。
// Go 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *options
}

// NewGroup 创建 Group，返回的 ctx 在任一服务出错或 Cancel 后被取消。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

// Go 启动一个服务。
func (g *Group) Go(svc Service) {
	name := "anonymous"
	if ns, ok := svc.(namedService); ok {
		name = ns.name
	}
	g.eg.Go(func() error {
		if svc == nil {
			return ErrNilService
		}
		g.opts.logger.Debug("service starting",
			slog.String("group", g.opts.name), slog.String("service", name))
		err := svc.Run(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn("service exited with error",
				slog.String("group", g.opts.name), slog.String("service", name),
				slog.Any("error", err))
		}
		return err
	})
}

// Cancel 以 cause 为原因取消所有服务；Wait 会返回该 cause。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Wait 等待所有服务退出。
// 普通取消返回 nil；显式 cause（例如 *SignalError）会被返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	if g.causeCtx.Err() != nil {
		cause := context.Cause(g.causeCtx)
		if errors.Is(err, context.Canceled) || err == nil {
			if cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}
			return nil
		}
	}
	return err
}

// Run 运行服务并监听退出信号，收到信号时返回 *SignalError。
// 所有服务正常返回后 Run 也随之返回。
func Run(ctx context.Context, opts []Option, services ...Service) error {
	g, _ := NewGroup(ctx, opts...)

	var wg sync.WaitGroup
	servicesDone := make(chan struct{})
	for _, svc := range services {
		wg.Add(1)
		g.Go(trackDone(svc, wg.Done))
	}
	go func() {
		wg.Wait()
		close(servicesDone)
	}()

	if !g.opts.noSignals {
		g.eg.Go(func() error {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, g.opts.signals...)
			defer signal.Stop(ch)
			select {
			case sig := <-ch:
				g.opts.logger.Info("received signal",
					slog.String("group", g.opts.name), slog.String("signal", sig.String()))
				g.cancel(&SignalError{Signal: sig})
			case <-g.ctx.Done():
			case <-servicesDone:
			}
			return nil
		})
	}
	return g.Wait()
}

// trackDone 在服务返回后调用 done，保留服务名称。
func trackDone(svc Service, done func()) Service {
	if svc == nil {
		done()
		return nil
	}
	name := "anonymous"
	if ns, ok := svc.(namedService); ok {
		name = ns.name
	}
	return namedService{name: name, fn: func(ctx context.Context) error {
		defer done()
		return svc.Run(ctx)
	}}
}

// HTTPServerInterface 是 HTTPServer 需要的 *http.Server 子集。
type HTTPServerInterface interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServer 将 http.Server 包装为支持优雅关闭的服务函数。
// shutdownTimeout <= 0 表示无限等待在途请求。
func HTTPServer(server HTTPServerInterface, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		listenDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				sctx := context.Background()
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(sctx)
			case <-listenDone:
			}
		}()

		err := server.ListenAndServe()
		close(listenDone)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		if ctx.Err() != nil {
			if serr := <-shutdownErr; serr != nil {
				return serr
			}
			return ctx.Err()
		}
		return nil
	}
}
