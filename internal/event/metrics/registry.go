package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry encapsulates all metrics and provides a clean interface
// for recording metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Bus metrics
	subscribeTotal   *prometheus.CounterVec
	unsubscribeTotal *prometheus.CounterVec
	fireTotal        *prometheus.CounterVec

	// Registry metrics
	registryOperationTotal    *prometheus.CounterVec
	registryOperationDuration *prometheus.HistogramVec
	prunedTotal               *prometheus.CounterVec
	subscriptions             *prometheus.GaugeVec

	// Scheduler metrics
	taskTotal    *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	tasksActive  *prometheus.GaugeVec

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		subscribeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncevent_subscribe_total",
				Help: "Total number of subscribe calls",
			},
			[]string{"status"}, // status: success, error
		),

		unsubscribeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncevent_unsubscribe_total",
				Help: "Total number of unsubscribe calls",
			},
			[]string{"status"}, // status: success, error
		),

		fireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncevent_fire_total",
				Help: "Total number of fired events",
			},
			[]string{"event_type"},
		),

		registryOperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncevent_registry_operation_total",
				Help: "Total number of subscription registry operations",
			},
			[]string{"operation", "status"}, // status: success, miss
		),

		registryOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asyncevent_registry_operation_duration_seconds",
				Help:    "Time spent on subscription registry operations",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"operation"},
		),

		prunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncevent_registry_pruned_total",
				Help: "Total number of expired handler references pruned",
			},
			[]string{"event_type"},
		),

		subscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "asyncevent_registry_subscriptions",
				Help: "Number of stored handler references per event type",
			},
			[]string{"event_type"},
		),

		taskTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncevent_scheduler_task_total",
				Help: "Total number of tasks submitted to the scheduler",
			},
			[]string{"kind", "status"}, // status: scheduled, rejected
		),

		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "asyncevent_scheduler_task_duration_seconds",
				Help:    "Time spent running scheduled tasks",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		tasksActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "asyncevent_scheduler_tasks_active",
				Help: "Number of tasks currently running",
			},
			[]string{"kind"},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "asyncevent_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "build_time"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "asyncevent_start_time_seconds",
				Help: "Unix timestamp when the application started",
			},
		),
	}

	// add default Go metrics (memory, GC, goroutines, etc.)
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.subscribeTotal,
		r.unsubscribeTotal,
		r.fireTotal,
		r.registryOperationTotal,
		r.registryOperationDuration,
		r.prunedTotal,
		r.subscriptions,
		r.taskTotal,
		r.taskDuration,
		r.tasksActive,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// Gatherer exposes the underlying registry, mostly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordSubscribe records a subscribe call
func (r *Registry) RecordSubscribe(err error) {
	r.subscribeTotal.WithLabelValues(status(err)).Inc()
}

// RecordUnsubscribe records an unsubscribe call
func (r *Registry) RecordUnsubscribe(err error) {
	r.unsubscribeTotal.WithLabelValues(status(err)).Inc()
}

// RecordFire records a fired event
func (r *Registry) RecordFire(eventType string) {
	r.fireTotal.WithLabelValues(eventType).Inc()
}

// RecordRegistryOperation records a registry operation. A miss is an Add of
// an already present reference or a Remove of an absent one.
func (r *Registry) RecordRegistryOperation(operation string, duration time.Duration, hit bool) {
	status := "success"
	if !hit {
		status = "miss"
	}

	r.registryOperationTotal.WithLabelValues(operation, status).Inc()
	r.registryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordPrune records expired references dropped for an event type
func (r *Registry) RecordPrune(eventType string, pruned int) {
	if pruned > 0 {
		r.prunedTotal.WithLabelValues(eventType).Add(float64(pruned))
	}
}

// UpdateSubscriptions sets the stored reference count for an event type
func (r *Registry) UpdateSubscriptions(eventType string, count int) {
	r.subscriptions.WithLabelValues(eventType).Set(float64(count))
}

// RecordTaskSubmit records a scheduler submission
func (r *Registry) RecordTaskSubmit(kind string, err error) {
	status := "scheduled"
	if err != nil {
		status = "rejected"
	}

	r.taskTotal.WithLabelValues(kind, status).Inc()
}

// TaskStarted marks a task of the given kind as running
func (r *Registry) TaskStarted(kind string) {
	r.tasksActive.WithLabelValues(kind).Inc()
}

// TaskFinished records a finished task and its duration
func (r *Registry) TaskFinished(kind string, duration time.Duration) {
	r.tasksActive.WithLabelValues(kind).Dec()
	r.taskDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, buildTime string) {
	r.systemInfo.WithLabelValues(version, buildTime).Set(1)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
