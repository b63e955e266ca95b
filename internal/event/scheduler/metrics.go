package scheduler

import (
	"context"
	"time"

	"asyncevent/internal/event"
	"asyncevent/internal/event/metrics"
)

// MetricsScheduler wraps an event.Scheduler with metrics collection
type MetricsScheduler struct {
	scheduler event.Scheduler
	registry  *metrics.Registry
}

// NewMetricsScheduler creates a new instrumented scheduler
func NewMetricsScheduler(scheduler event.Scheduler, registry *metrics.Registry) event.Scheduler {
	return &MetricsScheduler{
		scheduler: scheduler,
		registry:  registry,
	}
}

// Go implements event.Scheduler.Go with metrics collection
func (s *MetricsScheduler) Go(ctx context.Context, task event.Task) error {
	kind := string(task.Kind)
	run := task.Run
	task.Run = func(ctx context.Context) {
		start := time.Now()
		s.registry.TaskStarted(kind)
		defer func() {
			s.registry.TaskFinished(kind, time.Since(start))
		}()

		run(ctx)
	}

	err := s.scheduler.Go(ctx, task)
	s.registry.RecordTaskSubmit(kind, err)

	return err
}
