package scheduler

import (
	"math"
	"sync/atomic"
)

// IntervalObserver は発火間隔 (実時間) を受け取ります。
type IntervalObserver interface {
	ObserveInterval(interval int64)
}

// Ticker は rate ミリ秒間隔の絶対発火目標を生成します。
// 目標は呼び出し時刻ではなく前回の目標から求めるので、起床の遅れが後続の tick をずらしません。
type Ticker struct {
	rate        float64
	next        float64
	previousNow int64
	clock       Clock
	observer    IntervalObserver
}

// NewTicker は最初の目標を現在時刻 + rate とする Ticker を生成します。observer は nil でも構いません。
func NewTicker(rate float64, clock Clock, observer IntervalObserver) *Ticker {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Ticker{
		rate:     rate,
		next:     float64(clock.Now().UnixMilli()) + rate,
		clock:    clock,
		observer: observer,
	}
}

// Next は次に発火する絶対 unix ミリ秒を返します。
// 現在時刻が目標を過ぎていれば1周期を諦め、now+1+rate に合わせ直します。
func (t *Ticker) Next() int64 {
	now := t.clock.Now().UnixMilli()
	if t.previousNow != 0 && t.observer != nil {
		t.observer.ObserveInterval(now - t.previousNow)
	}

	floored := int64(math.Floor(t.next))
	if now > floored {
		floored = now + 1
		t.next = float64(floored) + t.rate
	} else {
		t.next += t.rate
	}
	t.previousNow = now
	return floored
}

// Rate は設定された間隔 (ms) を返します。
func (t *Ticker) Rate() float64 {
	return t.rate
}

// Handle は Schedule で登録したコールバックを制御します。
type Handle struct {
	stopped atomic.Bool
}

// Stop は以降の発火を止めます。実行中の発火は最後まで実行されます。
func (h *Handle) Stop() {
	h.stopped.Store(true)
}

func (h *Handle) Stopped() bool {
	return h.stopped.Load()
}

// Schedule は fn が false を返すか Handle が止められるまで、ticker の目標ごとに timer 上で fn を実行します。
func Schedule(timer *Timer, ticker *Ticker, fn func() bool) *Handle {
	h := &Handle{}
	var run func()
	run = func() {
		if h.Stopped() {
			return
		}
		if !fn() {
			h.Stop()
			return
		}
		if h.Stopped() {
			return
		}
		timer.Add(run, ticker.Next())
	}
	timer.Add(run, ticker.Next())
	return h
}
