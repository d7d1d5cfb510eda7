package application

import (
	"math"

	"shooter/server/domain"
)

// EncodeSnapshot は試合状態をワイヤ形式に変換します。
func EncodeSnapshot(g *Game) domain.MatchStatePayload {
	snap := g.Snapshot()
	p := domain.MatchStatePayload{
		Now:   snap.Now,
		Loops: snap.Loops,
		Ended: snap.Ended,
	}
	for _, side := range []Side{SideA, SideB} {
		c := snap.Combatants[side]
		cp := domain.CombatantPayload{
			ID:           c.ID,
			X:            c.X,
			Direction:    int8(c.Direction),
			Ticks:        c.Ticks,
			BulletsFired: c.BulletsFired,
			LastFire:     c.LastFire,
			Outcome:      uint8(c.Outcome),
			Bullets:      wireBulletCount(snap.Bullets[side]),
		}
		if lead, ok := g.Lead(side); ok {
			cp.LeadX = lead.X
		}
		p.Combatants[side] = cp
	}
	return p
}

// wireBulletCount は弾丸数を u16 に収めます。上限を超えた分は切り捨てます。
func wireBulletCount(n int) uint16 {
	return uint16(min(n, math.MaxUint16))
}

// DecodeSnapshot はワイヤ形式の状態を Snapshot に戻します。先頭の弾丸の位置は leads に入ります。
func DecodeSnapshot(p *domain.MatchStatePayload) (snap Snapshot, leads [2]float64) {
	snap.Now = p.Now
	snap.Loops = p.Loops
	snap.Ended = p.Ended
	for i, cp := range p.Combatants {
		snap.Combatants[i] = CombatantState{
			ID:           cp.ID,
			X:            cp.X,
			Direction:    Direction(cp.Direction),
			Ticks:        cp.Ticks,
			BulletsFired: cp.BulletsFired,
			LastFire:     cp.LastFire,
			Outcome:      Outcome(cp.Outcome),
		}
		snap.Bullets[i] = int(cp.Bullets)
		leads[i] = cp.LeadX
	}
	return snap, leads
}
