package dispatcher

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"asyncevent/internal/event"
	"asyncevent/internal/event/tracing"
)

// TracedDispatcher wraps an event.Bus with distributed tracing.
// Fire only covers the submission; the dispatch itself is traced by the
// scheduler the bus submits to.
// Layer order: TracedDispatcher -> MetricsDispatcher -> Dispatcher (real thing)
type TracedDispatcher struct {
	bus    event.Bus
	tracer *tracing.Tracer
}

// NewTracedDispatcher creates a new traced bus that wraps a metrics bus
func NewTracedDispatcher(bus event.Bus, tracer *tracing.Tracer) event.Bus {
	return &TracedDispatcher{
		bus:    bus,
		tracer: tracer,
	}
}

// Subscribe implements event.Bus.Subscribe with distributed tracing
func (d *TracedDispatcher) Subscribe(h event.Handler, types ...*event.Type) error {
	ctx, span := d.tracer.StartSpan(context.Background(), "bus.subscribe",
		trace.WithAttributes(d.tracer.TypeAttributes(types)...))

	err := d.bus.Subscribe(h, types...)
	d.tracer.End(ctx, span, err)

	return err
}

// Unsubscribe implements event.Bus.Unsubscribe with distributed tracing
func (d *TracedDispatcher) Unsubscribe(h event.Handler, types ...*event.Type) error {
	ctx, span := d.tracer.StartSpan(context.Background(), "bus.unsubscribe",
		trace.WithAttributes(d.tracer.TypeAttributes(types)...))

	err := d.bus.Unsubscribe(h, types...)
	d.tracer.End(ctx, span, err)

	return err
}

// Fire implements event.Bus.Fire with distributed tracing
func (d *TracedDispatcher) Fire(ctx context.Context, e event.Event) {
	if e == nil {
		d.bus.Fire(ctx, e)
		return
	}

	ctx, span := d.tracer.StartSpan(ctx, "bus.fire",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(d.tracer.EventAttributes(e)...))
	defer span.End()

	d.bus.Fire(ctx, e)
}

// Clear implements event.Bus.Clear with distributed tracing
func (d *TracedDispatcher) Clear() {
	_, span := d.tracer.StartSpan(context.Background(), "bus.clear")
	defer span.End()

	d.bus.Clear()
}
