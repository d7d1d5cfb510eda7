package application

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// NeverFired は一度も発射していない状態を表す LastFire の値です。
const NeverFired int64 = -1

// Side は対戦の陣営です。A は負側、B は正側に立ちます。
type Side uint8

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// Opponent は相手の陣営を返します。
func (s Side) Opponent() Side {
	return s ^ 1
}

func (s Side) valid() bool {
	return s <= SideB
}

// Direction は軸上の向きです。
type Direction int8

const (
	DirectionRight Direction = 1
	DirectionLeft  Direction = -1
)

// Outcome は対戦結果です。
type Outcome uint8

const (
	OutcomeUndecided Outcome = iota
	OutcomeWon
	OutcomeLost
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUndecided:
		return "undecided"
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

var combatantIDs atomic.Uint64

// CombatantState は位置が固定された1人のプレイヤーの状態です。
type CombatantState struct {
	ID           uint64
	X            float64
	Direction    Direction
	Ticks        int64 // 経過したシミュレーション時間 (ms)
	BulletsFired uint32
	LastFire     int64
	Outcome      Outcome
}

func newCombatant(x float64, dir Direction) CombatantState {
	return CombatantState{
		ID:        combatantIDs.Add(1),
		X:         x,
		Direction: dir,
		LastFire:  NeverFired,
	}
}

// LogValue はログ出力用の属性をまとめます。
func (c CombatantState) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("id", c.ID),
		slog.Float64("x", c.X),
		slog.Int64("ticks", c.Ticks),
		slog.Int("bulletsFired", int(c.BulletsFired)),
		slog.Int64("lastFire", c.LastFire),
		slog.String("outcome", c.Outcome.String()),
	)
}
