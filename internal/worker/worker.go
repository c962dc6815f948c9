package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Pool runs long-lived tasks under one context. The first task to fail
// cancels the context so the others stop too.
type Pool struct {
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	errOnce sync.Once
	err     error
}

// NewPool creates a new worker pool bound to parent
func NewPool(parent context.Context, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Go adds a named task to the pool and tracks it
func (p *Pool) Go(name string, task func(ctx context.Context) error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.logger.Debug("▶️ [Worker] Task started", "task", name)
		if err := task(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("❌ [Worker] Task failed", "task", name, "error", err)
			p.errOnce.Do(func() { p.err = err })
			p.cancel()
			return
		}
		p.logger.Debug("⏹️ [Worker] Task finished", "task", name)
	}()
}

// Context returns the pool's context; it is done on shutdown, on parent
// cancellation or when a task fails.
func (p *Pool) Context() context.Context {
	return p.ctx
}

// Shutdown signals all tasks to stop and waits up to timeout for them.
// It returns the first task error, or ErrShutdownTimeout.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.logger.Info("🛑 [Worker] Initiating graceful shutdown...")

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("✅ [Worker] All background tasks completed")
	case <-time.After(timeout):
		p.logger.Warn("⚠️ [Worker] Shutdown timeout exceeded, some tasks may not have completed",
			"timeout", timeout,
		)
		return ErrShutdownTimeout
	}

	return p.err
}

var (
	ErrShutdownTimeout = errors.New("worker shutdown timed out")
)
