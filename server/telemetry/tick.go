package telemetry

import (
	"context"
	"math"
)

// TickClass は tick 間隔1つの分類です。
type TickClass uint8

const (
	TickOnTime TickClass = iota
	TickOverrun
	TickUnderrun
)

func (c TickClass) String() string {
	switch c {
	case TickOnTime:
		return "on-time"
	case TickOverrun:
		return "overrun"
	case TickUnderrun:
		return "underrun"
	default:
		return "unknown"
	}
}

func (c TickClass) metric() string {
	switch c {
	case TickOverrun:
		return MetricTickIntervalOverrun
	case TickUnderrun:
		return MetricTickIntervalUnderrun
	default:
		return MetricTickOnTime
	}
}

// TickRecorder は発火間隔 (実時間) を設定された rate (ms) と比べて分類します。
type TickRecorder struct {
	rate float64
	sink Sink
}

// NewTickRecorder は TickRecorder を生成します。sink が nil なら全て破棄します。
func NewTickRecorder(rate float64, sink Sink) *TickRecorder {
	if sink == nil {
		sink = NopSink{}
	}
	return &TickRecorder{rate: rate, sink: sink}
}

// Observe は interval をサンプルとして記録し、分類をカウントします。
func (r *TickRecorder) Observe(interval int64) TickClass {
	ctx := context.Background()
	r.sink.Record(ctx, MetricTickInterval, float64(interval))

	class := Classify(interval, r.rate)
	r.sink.Count(ctx, class.metric(), 1)
	return class
}

// ObserveInterval は scheduler.IntervalObserver の実装です。
func (r *TickRecorder) ObserveInterval(interval int64) {
	r.Observe(interval)
}

// Classify は interval を分類します。
// rate+1 を超えれば Overrun、floor(rate-1) 未満なら Underrun です。
func Classify(interval int64, rate float64) TickClass {
	v := float64(interval)
	switch {
	case v > rate+1:
		return TickOverrun
	case v < math.Floor(rate-1):
		return TickUnderrun
	default:
		return TickOnTime
	}
}
