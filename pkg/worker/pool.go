// Package worker runs blocking I/O on a fixed set of goroutines.
//
// Callers hand a task to the pool and wait on its result channel, so slow
// HTTP fetches and HTML extraction never run on the orchestrator goroutine.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when a task is submitted after Close.
var ErrClosed = errors.New("worker pool closed")

type PoolConfig struct {
	Workers   int
	QueueSize int
}

// Result carries the outcome of one task.
type Result[T any] struct {
	Value T
	Err   error
}

type task struct {
	ctx context.Context
	run func(ctx context.Context)
}

type Pool struct {
	config PoolConfig
	tasks  chan task
	group  *errgroup.Group
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewWithConfig starts the workers. They stop when Close is called.
func NewWithConfig(config PoolConfig, logger zerolog.Logger) *Pool {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = config.Workers
	}

	p := &Pool{
		config: config,
		tasks:  make(chan task, config.QueueSize),
		group:  &errgroup.Group{},
		logger: logger,
	}

	for i := 0; i < config.Workers; i++ {
		id := i
		p.group.Go(func() error {
			for t := range p.tasks {
				p.logger.Trace().Int("worker", id).Msg("running task")
				t.run(t.ctx)
			}
			return nil
		})
	}

	return p
}

// Workers is the number of goroutines serving the pool.
func (p *Pool) Workers() int {
	return p.config.Workers
}

// Close stops accepting tasks and waits for in-flight ones.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	return p.group.Wait()
}

func (p *Pool) submit(ctx context.Context, t task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues fn and returns the channel its result is delivered on.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	t := task{
		ctx: ctx,
		run: func(ctx context.Context) {
			defer func() {
				if r := recover(); r != nil {
					out <- Result[T]{Err: fmt.Errorf("task panicked: %v", r)}
				}
			}()
			if err := ctx.Err(); err != nil {
				out <- Result[T]{Err: err}
				return
			}
			v, err := fn(ctx)
			out <- Result[T]{Value: v, Err: err}
		},
	}
	if err := p.submit(ctx, t); err != nil {
		out <- Result[T]{Err: err}
	}
	return out
}

// Do runs fn on the pool and waits for it.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	select {
	case r := <-Submit(ctx, p, fn):
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
