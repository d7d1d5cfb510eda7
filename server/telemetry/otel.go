package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// OTelSink はカウンタとサンプルを OpenTelemetry の計器へ転送します。
// 計器は名前ごとに初回利用時に生成されます。
type OTelSink struct {
	meter metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

func NewOTelSink(meter metric.Meter) *OTelSink {
	return &OTelSink{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (s *OTelSink) Count(ctx context.Context, name string, delta int64) {
	c, ok := s.counter(ctx, name)
	if !ok {
		return
	}
	c.Add(ctx, delta)
}

func (s *OTelSink) Record(ctx context.Context, name string, value float64) {
	h, ok := s.histogram(ctx, name)
	if !ok {
		return
	}
	h.Record(ctx, value)
}

func (s *OTelSink) counter(ctx context.Context, name string) (metric.Int64Counter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.counters[name]; ok {
		return c, true
	}
	c, err := s.meter.Int64Counter(name)
	if err != nil {
		slog.WarnContext(ctx, "telemetry: counter unavailable", "name", name, "err", err)
		return nil, false
	}
	s.counters[name] = c
	return c, true
}

func (s *OTelSink) histogram(ctx context.Context, name string) (metric.Float64Histogram, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.histograms[name]; ok {
		return h, true
	}
	h, err := s.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		slog.WarnContext(ctx, "telemetry: histogram unavailable", "name", name, "err", err)
		return nil, false
	}
	s.histograms[name] = h
	return h, true
}

var _ Sink = (*OTelSink)(nil)
