// Package scheduler は精度の低い壁時計の上でシミュレーションの tick を一定間隔で駆動します。
//
// Timer は絶対 unix ミリ秒をキーにしたコールバック表と、その表を現在時刻まで
// 1ミリ秒ずつ進めるドライバを持ちます。Ticker は絶対時刻で発火目標を計算するので、
// タイマーの粒度が誤差として蓄積しません。
package scheduler

import (
	"context"
	"runtime"
	"sync"
	"time"
)

const (
	defaultSlice = 2 * time.Millisecond
	defaultIdle  = time.Millisecond
)

// TimerConfig はタイマードライバの設定です。
type TimerConfig struct {
	Clock Clock
	// Slice は1回のドライバ実行が追いつきに使える実時間の上限です。
	Slice time.Duration
	// Idle は遅れがないときに Run が次の実行まで待つ時間です。
	Idle time.Duration
}

// Timer は絶対ミリ秒時刻に登録されたコールバックを実行します。
type Timer struct {
	clock Clock
	slice time.Duration
	idle  time.Duration

	mu    sync.Mutex
	cbs   map[int64][]func()
	last  int64 // 次に処理する単位
	spare [][]func()
}

// NewTimer は現在時刻から処理を始めるタイマーを生成します。
func NewTimer(cfg TimerConfig) *Timer {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	slice := cfg.Slice
	if slice <= 0 {
		slice = defaultSlice
	}
	idle := cfg.Idle
	if idle <= 0 {
		idle = defaultIdle
	}
	return &Timer{
		clock: clock,
		slice: slice,
		idle:  idle,
		cbs:   make(map[int64][]func()),
		last:  clock.Now().UnixMilli(),
	}
}

// Add は絶対 unix ミリ秒 when に cb を登録します。
// 処理済みの時刻を指定した場合は次の単位で実行されます。
// コールバック内や他のゴルーチンから呼び出せます。
func (t *Timer) Add(cb func(), when int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if when < t.last {
		when = t.last
	}
	list, ok := t.cbs[when]
	if !ok && len(t.spare) > 0 {
		list = t.spare[len(t.spare)-1]
		t.spare = t.spare[:len(t.spare)-1]
	}
	t.cbs[when] = append(list, cb)
}

// RunOnce はドライバを1回実行します。未処理の単位から現在時刻まで (現在時刻を含む)
// を時刻順に処理し、Slice を超える実時間が経過したら途中で打ち切ります。
// 処理した単位数を返します。
func (t *Timer) RunOnce() int {
	start := t.clock.Now()
	now := start.UnixMilli()
	processed := 0

	for {
		if t.clock.Now().Sub(start) > t.slice {
			break
		}

		t.mu.Lock()
		if t.last > now {
			t.mu.Unlock()
			break
		}
		unit := t.last
		list, ok := t.cbs[unit]
		if ok {
			delete(t.cbs, unit)
		}
		t.last++
		t.mu.Unlock()

		for _, cb := range list {
			cb()
		}
		if ok {
			clear(list)
			t.mu.Lock()
			t.spare = append(t.spare, list[:0])
			t.mu.Unlock()
		}
		processed++
	}
	return processed
}

// Run は ctx がキャンセルされるまでタイマーを駆動します。
// 遅れが残っていれば譲ってすぐに再実行し、なければ Idle だけ待ちます。
func (t *Timer) Run(ctx context.Context) error {
	wait := time.NewTimer(t.idle)
	defer wait.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		t.RunOnce()
		if t.Behind() > 0 {
			runtime.Gosched()
			continue
		}

		wait.Reset(t.idle)
		select {
		case <-ctx.Done():
			return nil
		case <-wait.C:
		}
	}
}

// Behind は現在時刻までで未処理の単位数を返します。
func (t *Timer) Behind() int64 {
	now := t.clock.Now().UnixMilli()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last > now {
		return 0
	}
	return now - t.last + 1
}

// Pending は未実行のコールバック数を返します。
func (t *Timer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, list := range t.cbs {
		n += len(list)
	}
	return n
}
