package registry

import (
	"time"

	"asyncevent/internal/event"
	"asyncevent/internal/event/metrics"
)

// MetricsRegistry wraps an event.Registry with metrics collection
type MetricsRegistry struct {
	registry event.Registry
	metrics  *metrics.Registry
}

// NewMetricsRegistry creates a new instrumented registry
func NewMetricsRegistry(registry event.Registry, m *metrics.Registry) event.Registry {
	return &MetricsRegistry{
		registry: registry,
		metrics:  m,
	}
}

// Add implements event.Registry.Add with metrics collection
func (r *MetricsRegistry) Add(t *event.Type, ref event.Ref) bool {
	start := time.Now()

	added := r.registry.Add(t, ref)
	r.metrics.RecordRegistryOperation("add", time.Since(start), added)
	r.updateSubscriptions(t.Name())

	return added
}

// Remove implements event.Registry.Remove with metrics collection
func (r *MetricsRegistry) Remove(t *event.Type, key any) bool {
	start := time.Now()

	removed := r.registry.Remove(t, key)
	r.metrics.RecordRegistryOperation("remove", time.Since(start), removed)
	r.updateSubscriptions(t.Name())

	return removed
}

// Live implements event.Registry.Live with metrics collection
func (r *MetricsRegistry) Live(t *event.Type) []event.Live {
	start := time.Now()

	live := r.registry.Live(t)
	r.metrics.RecordRegistryOperation("live", time.Since(start), true)

	return live
}

// Prune implements event.Registry.Prune with metrics collection
func (r *MetricsRegistry) Prune(t *event.Type) int {
	start := time.Now()

	pruned := r.registry.Prune(t)
	r.metrics.RecordRegistryOperation("prune", time.Since(start), true)
	r.metrics.RecordPrune(t.Name(), pruned)
	if pruned > 0 {
		r.updateSubscriptions(t.Name())
	}

	return pruned
}

// Len implements event.Registry.Len
func (r *MetricsRegistry) Len(t *event.Type) int {
	return r.registry.Len(t)
}

// Types implements event.Registry.Types
func (r *MetricsRegistry) Types() []*event.Type {
	return r.registry.Types()
}

// Clear implements event.Registry.Clear with metrics collection
func (r *MetricsRegistry) Clear() {
	types := r.registry.Types()

	start := time.Now()
	r.registry.Clear()
	r.metrics.RecordRegistryOperation("clear", time.Since(start), true)

	for _, t := range types {
		r.metrics.UpdateSubscriptions(t.Name(), 0)
	}
}

// updateSubscriptions sets the gauge for name to the total across all types
// sharing that name, since the name is the only label the gauge carries.
func (r *MetricsRegistry) updateSubscriptions(name string) {
	total := 0
	for _, t := range r.registry.Types() {
		if t.Name() == name {
			total += r.registry.Len(t)
		}
	}
	r.metrics.UpdateSubscriptions(name, total)
}
