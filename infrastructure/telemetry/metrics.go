// Package telemetry provides observability infrastructure including
// OpenTelemetry metrics support for the rundigest pipeline.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	analyses      metric.Int64Counter
	sourceQueries metric.Int64Counter
	sourceErrors  metric.Int64Counter
	planFallbacks metric.Int64Counter
	runsAnalyzed  metric.Int64Counter

	// Histograms
	analyzeDuration metric.Float64Histogram
	queryDuration   metric.Float64Histogram

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter (default: "github.com/felixgeelhaar/rundigest").
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/rundigest",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.analyses, err = mp.meter.Int64Counter(
		"digest.analyses",
		metric.WithDescription("Number of window analyses"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		return err
	}

	mp.sourceQueries, err = mp.meter.Int64Counter(
		"digest.source.queries",
		metric.WithDescription("Number of record source queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	mp.sourceErrors, err = mp.meter.Int64Counter(
		"digest.source.errors",
		metric.WithDescription("Number of failed record source queries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	mp.planFallbacks, err = mp.meter.Int64Counter(
		"digest.plan.fallbacks",
		metric.WithDescription("Number of plan lookups degraded to a placeholder"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return err
	}

	mp.runsAnalyzed, err = mp.meter.Int64Counter(
		"digest.runs.analyzed",
		metric.WithDescription("Number of runs fed into analyses"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return err
	}

	mp.analyzeDuration, err = mp.meter.Float64Histogram(
		"digest.analyze.duration",
		metric.WithDescription("Duration of window analyses"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	mp.queryDuration, err = mp.meter.Float64Histogram(
		"digest.source.query.duration",
		metric.WithDescription("Duration of record source queries"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordAnalysis records one completed window analysis.
func (mp *MetricsProvider) RecordAnalysis(ctx context.Context, totalRuns int, withTools bool, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.Bool("with_tools", withTools),
		attribute.Bool("success", success),
	}

	mp.analyses.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.analyzeDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if success {
		mp.runsAnalyzed.Add(ctx, int64(totalRuns))
	}
}

// RecordSourceQuery records one record source query.
func (mp *MetricsProvider) RecordSourceQuery(ctx context.Context, kind string, success bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("query.kind", kind),
		attribute.Bool("success", success),
	}

	mp.sourceQueries.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.queryDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if !success {
		mp.sourceErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("query.kind", kind),
		))
	}
}

// RecordPlanFallback records a plan lookup that degraded to a placeholder.
func (mp *MetricsProvider) RecordPlanFallback(ctx context.Context, planID string) {
	mp.planFallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("plan.id", planID),
	))
}
