// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Observability bundles the OpenTelemetry meters and tracer of one process.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	tracer        trace.Tracer

	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	queryCounter   otelmetric.Int64Counter
	queryDuration  otelmetric.Float64Histogram
	fetchDurations otelmetric.Float64Histogram
}

// New registers the Prometheus exporter and creates the instruments.
// A failed exporter leaves a working no-op instance.
func New(serviceName string, log *zap.Logger) *Observability {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Observability{tracer: otel.Tracer(serviceName)}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", zap.Error(err))
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	o.meterProvider = provider
	o.meter = provider.Meter(serviceName)

	o.jobCounter, _ = o.meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = o.meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.queryCounter, _ = o.meter.Int64Counter(
		"queries.processed",
		otelmetric.WithDescription("Number of queries answered"),
	)
	o.queryDuration, _ = o.meter.Float64Histogram(
		"queries.duration",
		otelmetric.WithDescription("End to end query duration"),
		otelmetric.WithUnit("ms"),
	)
	o.fetchDurations, _ = o.meter.Float64Histogram(
		"enrichment.duration",
		otelmetric.WithDescription("Enrichment stage duration"),
		otelmetric.WithUnit("ms"),
	)

	return o
}

// StartSpan opens a span on the process tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return otel.Tracer("noop").Start(ctx, name, trace.WithAttributes(attrs...))
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, status string) {
	if o != nil && o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, duration time.Duration, status string) {
	if o != nil && o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

// RecordQuery records one answered query.
func (o *Observability) RecordQuery(ctx context.Context, intent, language string, degraded bool, duration time.Duration) {
	if o == nil || o.queryCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("language", language),
		attribute.Bool("degraded", degraded),
	)
	o.queryCounter.Add(ctx, 1, attrs)
	o.queryDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) RecordEnrichment(ctx context.Context, intent string, duration time.Duration) {
	if o != nil && o.fetchDurations != nil {
		o.fetchDurations.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("intent", intent),
		))
	}
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
