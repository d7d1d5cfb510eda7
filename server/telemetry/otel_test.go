package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestOTelSink_ExportsCountersAndSamples(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	sink := NewOTelSink(provider.Meter("shooter/test"))
	rec := NewTickRecorder(10, sink)
	rec.Observe(10)
	rec.Observe(10)
	rec.Observe(50)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	sums := map[string]int64{}
	var samples uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name != MetricTickInterval {
					t.Errorf("unexpected histogram %q", m.Name)
				}
				for _, dp := range data.DataPoints {
					samples += dp.Count
				}
			}
		}
	}

	if sums[MetricTickOnTime] != 2 {
		t.Errorf("%s = %d, want 2", MetricTickOnTime, sums[MetricTickOnTime])
	}
	if sums[MetricTickIntervalOverrun] != 1 {
		t.Errorf("%s = %d, want 1", MetricTickIntervalOverrun, sums[MetricTickIntervalOverrun])
	}
	if samples != 3 {
		t.Errorf("%s samples = %d, want 3", MetricTickInterval, samples)
	}
}
