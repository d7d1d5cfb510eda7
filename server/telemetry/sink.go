// Package telemetry は tick の間隔と試合のカウンタを記録します。
// Sink は送りっぱなしで、失敗してもシミュレーション結果には影響しません。
package telemetry

import "context"

//go:generate go tool mockgen -destination=./mocks/sink_mock.go -package=mocks . Sink

// TickRecorder が出力するメトリクス名
const (
	MetricTickInterval         = "tickInterval"
	MetricTickOnTime           = "tickOnTime"
	MetricTickIntervalOverrun  = "tickIntervalOverrun"
	MetricTickIntervalUnderrun = "tickIntervalUnderrun"
)

// Sink は名前付きのカウンタと数値サンプルを受け取ります。
type Sink interface {
	Count(ctx context.Context, name string, delta int64)
	Record(ctx context.Context, name string, value float64)
}

// NopSink は全て破棄します。
type NopSink struct{}

func (NopSink) Count(ctx context.Context, name string, delta int64)    {}
func (NopSink) Record(ctx context.Context, name string, value float64) {}

var _ Sink = NopSink{}
