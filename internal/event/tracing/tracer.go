package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"asyncevent/internal/event"
)

const instrumentationName = "asyncevent"

// Config holds configuration parameters for OpenTelemetry tracing setup.
// This includes service identification, the OTLP endpoint, sampling configuration,
// and batch processing settings for trace delivery.
type Config struct {
	Enabled        bool          `env:"TRACING_ENABLED" envDefault:"false"`
	ServiceName    string        `env:"TRACING_SERVICE_NAME" envDefault:"asyncevent-demo"`
	ServiceVersion string        `env:"TRACING_SERVICE_VERSION" envDefault:"1.0.0"`
	Endpoint       string        `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate     float64       `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
	BatchTimeout   time.Duration `env:"TRACING_BATCH_TIMEOUT" envDefault:"1s"`
	ExportTimeout  time.Duration `env:"TRACING_EXPORT_TIMEOUT" envDefault:"30s"`
	MaxExportBatch int           `env:"TRACING_MAX_EXPORT_BATCH" envDefault:"512"`
	MaxQueueSize   int           `env:"TRACING_MAX_QUEUE_SIZE" envDefault:"2048"`
}

// Tracer wraps the OpenTelemetry tracer with convenience methods for bus operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates and configures an OpenTelemetry tracer with OTLP HTTP export.
// It installs the provider globally and returns a cleanup function for graceful shutdown.
func NewTracer(config Config) (*Tracer, func(context.Context) error, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(config.Endpoint),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithTimeout(config.ExportTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	processor := sdktrace.NewBatchSpanProcessor(
		exporter,
		sdktrace.WithBatchTimeout(config.BatchTimeout),
		sdktrace.WithExportTimeout(config.ExportTimeout),
		sdktrace.WithMaxExportBatchSize(config.MaxExportBatch),
		sdktrace.WithMaxQueueSize(config.MaxQueueSize),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cleanup := func(ctx context.Context) error {
		if err := tp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("failed to flush traces: %w", err)
		}
		return tp.Shutdown(ctx)
	}

	return NewWithProvider(tp), cleanup, nil
}

// NewWithProvider creates a tracer from an existing provider.
func NewWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(instrumentationName)}
}

// NewNoop creates a tracer that records nothing.
func NewNoop() *Tracer {
	return NewWithProvider(noop.NewTracerProvider())
}

// StartSpan creates a new tracing span with the specified name and options.
func (t *Tracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// RecordError records an error event on the active span and sets the span status to error.
func (t *Tracer) RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// End sets the span status from err and ends it.
func (t *Tracer) End(ctx context.Context, span trace.Span, err error) {
	if err != nil {
		t.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(t.ErrorAttributes(err)...)
	span.End()
}

// EventAttributes creates standard attributes for a fired event.
func (t *Tracer) EventAttributes(e event.Event) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("event.type", e.Type().Name()),
		attribute.String("event.id", e.ID()),
	}
}

// TypeAttributes lists the event types of a subscription call.
func (t *Tracer) TypeAttributes(types []*event.Type) []attribute.KeyValue {
	names := make([]string, len(types))
	for i, typ := range types {
		names[i] = typ.Name()
	}
	return []attribute.KeyValue{
		attribute.StringSlice("event.types", names),
	}
}

// TaskAttributes creates attributes for a scheduled task.
func (t *Tracer) TaskAttributes(task event.Task) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("task.name", task.Name),
		attribute.String("task.kind", string(task.Kind)),
	}
}

// ErrorAttributes creates attributes based on error state.
func (t *Tracer) ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return []attribute.KeyValue{
			attribute.Bool("error", false),
		}
	}
	return []attribute.KeyValue{
		attribute.Bool("error", true),
		attribute.String("error.type", fmt.Sprintf("%T", err)),
		attribute.String("error.message", err.Error()),
	}
}
