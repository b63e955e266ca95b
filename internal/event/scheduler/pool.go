// Package scheduler provides the executors the bus submits its work to.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"asyncevent/internal/event"
	"asyncevent/internal/validator"
)

var (
	// ErrPoolSaturated is returned when the submission context ends before a
	// handler slot frees up.
	ErrPoolSaturated = errors.New("scheduler pool is saturated")

	// ErrSchedulerClosed is returned for submissions after Shutdown.
	ErrSchedulerClosed = errors.New("scheduler is closed")
)

// Pool runs every task on its own goroutine.
//
// The concurrency limit only applies to handler tasks. Dispatch tasks always
// start immediately, so an orchestration task never competes with the
// handlers it schedules. A handler submission waits for a free slot; since
// the bus submits handlers from its dispatch task, Fire itself never waits.
type Pool struct {
	group  errgroup.Group
	slots  *semaphore.Weighted
	logger *zap.Logger

	// stopped is cancelled first thing in Shutdown to wake waiting submitters
	stopped context.Context
	stop    context.CancelFunc

	// guards closed against concurrent submissions so that Shutdown never
	// waits on a group that is still growing
	mu     sync.RWMutex
	closed bool

	running   atomic.Int64
	waiting   atomic.Int64
	completed atomic.Uint64
	panicked  atomic.Uint64
	rejected  atomic.Uint64
}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	Running   int64
	Waiting   int64
	Completed uint64
	Panicked  uint64
	Rejected  uint64
}

// NewPool creates a pool running at most limit handler tasks at once.
// A limit of zero or less means unlimited.
func NewPool(limit int, logger *zap.Logger) (*Pool, error) {
	if err := validator.Validate("scheduler pool", logger); err != nil {
		return nil, fmt.Errorf("failed to validate pool deps: %w", err)
	}

	stopped, stop := context.WithCancel(context.Background())
	p := &Pool{
		logger:  logger.Named("scheduler"),
		stopped: stopped,
		stop:    stop,
	}
	if limit > 0 {
		p.slots = semaphore.NewWeighted(int64(limit))
	}

	return p, nil
}

// Go implements event.Scheduler.Go.
// Handler tasks may block until a slot is free, ctx is done or the pool is
// shut down.
func (p *Pool) Go(ctx context.Context, task event.Task) error {
	release := func() {}
	if task.Kind == event.TaskHandler && p.slots != nil {
		if err := p.acquire(ctx); err != nil {
			p.rejected.Add(1)
			return err
		}
		release = func() { p.slots.Release(1) }
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		release()
		p.rejected.Add(1)
		return ErrSchedulerClosed
	}

	p.group.Go(func() error {
		defer release()
		p.run(ctx, task)
		return nil
	})

	return nil
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.slots.TryAcquire(1) {
		return nil
	}

	p.waiting.Add(1)
	defer p.waiting.Add(-1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unregister := context.AfterFunc(p.stopped, cancel)
	defer unregister()

	if err := p.slots.Acquire(ctx, 1); err != nil {
		if p.stopped.Err() != nil {
			return ErrSchedulerClosed
		}
		return fmt.Errorf("%w: %w", ErrPoolSaturated, err)
	}

	return nil
}

func (p *Pool) run(ctx context.Context, task event.Task) {
	p.running.Add(1)
	defer p.running.Add(-1)
	defer p.completed.Add(1)

	defer func() {
		if r := recover(); r != nil {
			p.panicked.Add(1)
			p.logger.Error("task panicked",
				zap.String("task", task.Name),
				zap.String("kind", string(task.Kind)),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	task.Run(ctx)
}

// Ready reports whether the pool still accepts tasks.
func (p *Pool) Ready() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrSchedulerClosed
	}
	return nil
}

// Shutdown stops accepting tasks and waits for running ones to finish or for
// ctx to expire, whichever comes first. Submitters waiting for a slot are
// released with ErrSchedulerClosed.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stop()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrSchedulerClosed
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("scheduler stopping, waiting for running tasks",
		zap.Int64("running", p.running.Load()))

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("scheduler stopped cleanly")
		return nil
	case <-ctx.Done():
		p.logger.Warn("scheduler shutdown timed out, some tasks may be abandoned",
			zap.Int64("running", p.running.Load()))
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

// Stats returns the current pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Running:   p.running.Load(),
		Waiting:   p.waiting.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		Rejected:  p.rejected.Load(),
	}
}
