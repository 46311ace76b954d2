// Package runner executes long generation jobs outside the request goroutine.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many jobs run at once.
type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool returns a pool running at most size jobs concurrently.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), logger: logger}
}

type result[T any] struct {
	value T
	err   error
}

// Do waits for a free slot, starts job on its own goroutine and waits for it.
// The job sees a context that is never canceled by the caller. When ctx ends
// first Do returns ctx.Err() and the job keeps running to completion.
func Do[T any](ctx context.Context, p *Pool, job func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("wait for worker: %w", err)
	}

	done := make(chan result[T], 1)
	jobCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("job panicked", "panic", r)
				done <- result[T]{err: fmt.Errorf("job panicked: %v", r)}
			}
		}()
		v, err := job(jobCtx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		p.logger.Warn("caller left before job finished", "error", ctx.Err())
		return zero, ctx.Err()
	}
}

// Wait blocks until every started job has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
