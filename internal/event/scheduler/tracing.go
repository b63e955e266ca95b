package scheduler

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"asyncevent/internal/event"
	"asyncevent/internal/event/tracing"
)

// TracedScheduler wraps an event.Scheduler with distributed tracing.
// Every task runs inside its own span, parented to the span found in the
// submission context.
// Layer order: TracedScheduler -> MetricsScheduler -> Pool (real thing)
type TracedScheduler struct {
	scheduler event.Scheduler
	tracer    *tracing.Tracer
}

// NewTracedScheduler creates a new traced scheduler that wraps a metrics scheduler
func NewTracedScheduler(scheduler event.Scheduler, tracer *tracing.Tracer) event.Scheduler {
	return &TracedScheduler{
		scheduler: scheduler,
		tracer:    tracer,
	}
}

// Go implements event.Scheduler.Go with distributed tracing
func (s *TracedScheduler) Go(ctx context.Context, task event.Task) error {
	run := task.Run
	task.Run = func(ctx context.Context) {
		ctx, span := s.tracer.StartSpan(ctx, "scheduler."+string(task.Kind),
			trace.WithAttributes(s.tracer.TaskAttributes(task)...))
		defer span.End()

		run(ctx)
	}

	err := s.scheduler.Go(ctx, task)
	if err != nil {
		s.tracer.RecordError(ctx, err)
	}

	return err
}
