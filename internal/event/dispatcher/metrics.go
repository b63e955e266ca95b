package dispatcher

import (
	"context"

	"asyncevent/internal/event"
	"asyncevent/internal/event/metrics"
)

// MetricsDispatcher wraps an event.Bus with metrics collection
type MetricsDispatcher struct {
	bus      event.Bus
	registry *metrics.Registry
}

// NewMetricsDispatcher creates a new instrumented bus
func NewMetricsDispatcher(bus event.Bus, registry *metrics.Registry) event.Bus {
	return &MetricsDispatcher{
		bus:      bus,
		registry: registry,
	}
}

// Subscribe implements event.Bus.Subscribe with metrics collection
func (d *MetricsDispatcher) Subscribe(h event.Handler, types ...*event.Type) error {
	err := d.bus.Subscribe(h, types...)
	d.registry.RecordSubscribe(err)

	return err
}

// Unsubscribe implements event.Bus.Unsubscribe with metrics collection
func (d *MetricsDispatcher) Unsubscribe(h event.Handler, types ...*event.Type) error {
	err := d.bus.Unsubscribe(h, types...)
	d.registry.RecordUnsubscribe(err)

	return err
}

// Fire implements event.Bus.Fire with metrics collection
func (d *MetricsDispatcher) Fire(ctx context.Context, e event.Event) {
	if e != nil {
		d.registry.RecordFire(e.Type().Name())
	}
	d.bus.Fire(ctx, e)
}

// Clear implements event.Bus.Clear
func (d *MetricsDispatcher) Clear() {
	d.bus.Clear()
}
