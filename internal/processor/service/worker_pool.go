package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// WorkerPool bounds how many consumed commands are dispatched at once
type WorkerPool struct {
	pool   *ants.Pool
	logger *slog.Logger
}

func NewWorkerPool(size int, logger *slog.Logger) (*WorkerPool, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &WorkerPool{pool: pool, logger: logger}, nil
}

// Run executes task on a pool worker and waits for its result. Waiting stops early when
// ctx is done; the task itself still receives ctx and is expected to observe it.
func (p *WorkerPool) Run(ctx context.Context, task func(ctx context.Context) error) error {
	result := make(chan error, 1)
	if err := p.pool.Submit(func() {
		result <- task(ctx)
	}); err != nil {
		p.logger.Error("Failed to submit task to worker pool", "error", err)
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool; queued tasks are dropped
func (p *WorkerPool) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

func (p *WorkerPool) Running() int {
	return p.pool.Running()
}

func (p *WorkerPool) Capacity() int {
	return p.pool.Cap()
}
