package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics sets up a test meter provider and returns it along with a reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	mp := NewMetricsProvider(DefaultMetricsConfig())
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}

	return reader, mp
}

// sumByName collects the current metrics and returns the total of the named
// int64 counter across all data points.
func sumByName(t *testing.T, reader *metric.ManualReader, name string) (int64, bool) {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("expected Sum[int64] for %s, got %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total, true
		}
	}
	return 0, false
}

func TestNewMetricsProvider(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	if mp == nil {
		t.Fatal("NewMetricsProvider returned nil")
	}
	if mp.Error() != nil {
		t.Errorf("unexpected error: %v", mp.Error())
	}
}

func TestNewMetricsProvider_EmptyConfig(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	defer reader.Shutdown(context.Background())

	mp := NewMetricsProvider(MetricsConfig{})
	if mp.Error() != nil {
		t.Fatalf("unexpected error with empty config: %v", mp.Error())
	}
}

func TestMetricsProvider_RecordAnalysis(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()

	// One successful analysis over 10 runs, one failed attempt.
	mp.RecordAnalysis(ctx, 10, true, true, 120*time.Millisecond)
	mp.RecordAnalysis(ctx, 0, false, false, 15*time.Millisecond)

	total, found := sumByName(t, reader, "digest.analyses")
	if !found {
		t.Fatal("digest.analyses metric not found")
	}
	if total != 2 {
		t.Errorf("expected 2 analyses, got %d", total)
	}

	// Only the successful analysis contributes runs.
	runs, found := sumByName(t, reader, "digest.runs.analyzed")
	if !found {
		t.Fatal("digest.runs.analyzed metric not found")
	}
	if runs != 10 {
		t.Errorf("expected 10 runs analyzed, got %d", runs)
	}
}

func TestMetricsProvider_RecordAnalysisDuration(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.RecordAnalysis(ctx, 3, false, true, 250*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "digest.analyze.duration" {
				continue
			}
			found = true
			hist, ok := m.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Errorf("expected Histogram[float64], got %T", m.Data)
				continue
			}
			var count uint64
			for _, dp := range hist.DataPoints {
				count += dp.Count
			}
			if count != 1 {
				t.Errorf("expected 1 duration sample, got %d", count)
			}
		}
	}
	if !found {
		t.Error("digest.analyze.duration metric not found")
	}
}

func TestMetricsProvider_RecordSourceQuery(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()

	mp.RecordSourceQuery(ctx, "list_runs", true, 40*time.Millisecond)
	mp.RecordSourceQuery(ctx, "list_plans", true, 25*time.Millisecond)
	mp.RecordSourceQuery(ctx, "get_plan", false, 5*time.Millisecond)

	queries, found := sumByName(t, reader, "digest.source.queries")
	if !found {
		t.Fatal("digest.source.queries metric not found")
	}
	if queries != 3 {
		t.Errorf("expected 3 queries, got %d", queries)
	}

	// Only the failed query counts as an error.
	errors, found := sumByName(t, reader, "digest.source.errors")
	if !found {
		t.Fatal("digest.source.errors metric not found")
	}
	if errors != 1 {
		t.Errorf("expected 1 source error, got %d", errors)
	}
}

func TestMetricsProvider_RecordPlanFallback(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()

	mp.RecordPlanFallback(ctx, "plan-1")
	mp.RecordPlanFallback(ctx, "plan-2")

	total, found := sumByName(t, reader, "digest.plan.fallbacks")
	if !found {
		t.Fatal("digest.plan.fallbacks metric not found")
	}
	if total != 2 {
		t.Errorf("expected 2 fallbacks, got %d", total)
	}
}
