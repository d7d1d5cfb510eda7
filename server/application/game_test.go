package application

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"pgregory.net/rapid"

	"shooter/server/domain"
	"shooter/server/pool"
)

func newTestGame(cfg GameConfig) (*Game, *pool.Pool[*Bullet]) {
	bullets := NewBulletPool()
	return NewGame(cfg, bullets, slog.New(slog.DiscardHandler)), bullets
}

func TestNewGame_Placement(t *testing.T) {
	g, _ := newTestGame(GameConfig{Distance: 1000})

	a, b := g.Combatant(SideA), g.Combatant(SideB)
	if a.X != -1000 || a.Direction != DirectionRight {
		t.Errorf("A = (x=%v, dir=%d), want (-1000, +1)", a.X, a.Direction)
	}
	if b.X != 1000 || b.Direction != DirectionLeft {
		t.Errorf("B = (x=%v, dir=%d), want (1000, -1)", b.X, b.Direction)
	}
	if a.LastFire != NeverFired || b.LastFire != NeverFired {
		t.Errorf("LastFire = (%d, %d), want NeverFired", a.LastFire, b.LastFire)
	}
	if a.ID == b.ID {
		t.Errorf("combatants share ID %d", a.ID)
	}
	if g.Ended() {
		t.Error("new game should not be ended")
	}
}

func TestGame_FireSpawnsBulletInFront(t *testing.T) {
	g, _ := newTestGame(GameConfig{Distance: 100, PlayerRadius: 10, BulletRadius: 2})

	if !g.Fire(SideA) || !g.Fire(SideB) {
		t.Fatal("first fire should always succeed")
	}
	a, _ := g.Lead(SideA)
	b, _ := g.Lead(SideB)
	if a.X != -88 || a.Direction != DirectionRight {
		t.Errorf("A bullet = (x=%v, dir=%d), want (-88, +1)", a.X, a.Direction)
	}
	if b.X != 88 || b.Direction != DirectionLeft {
		t.Errorf("B bullet = (x=%v, dir=%d), want (88, -1)", b.X, b.Direction)
	}
	if g.Combatant(SideA).BulletsFired != 1 || g.Combatant(SideA).LastFire != 0 {
		t.Errorf("A state after fire = %+v", g.Combatant(SideA))
	}
}

func TestGame_FireCooldown(t *testing.T) {
	g, _ := newTestGame(GameConfig{FireCooldown: 100, Distance: 1e6})

	if !g.Fire(SideA) {
		t.Fatal("first fire at t=0 should succeed")
	}
	if g.Fire(SideA) {
		t.Fatal("second fire at t=0 should be rate limited")
	}

	g.Advance(99)
	if g.Fire(SideA) {
		t.Fatal("fire at t=99 should be rate limited")
	}
	if g.Combatant(SideA).LastFire != 0 {
		t.Errorf("rate limited fire changed LastFire to %d", g.Combatant(SideA).LastFire)
	}

	g.Advance(1)
	if !g.Fire(SideA) {
		t.Fatal("fire at t=100 should succeed")
	}
	if got := g.Combatant(SideA); got.LastFire != 100 || got.BulletsFired != 2 {
		t.Errorf("A after second shot = %+v", got)
	}
	if g.Bullets(SideA) != 2 {
		t.Errorf("Bullets(A) = %d, want 2", g.Bullets(SideA))
	}
	// 相手の発射には影響しない
	if !g.Fire(SideB) {
		t.Error("B's first fire should not be limited by A's cooldown")
	}
}

func TestGame_FireInvalidSide(t *testing.T) {
	g, _ := newTestGame(GameConfig{Distance: 10})
	if g.Fire(Side(7)) {
		t.Error("fire with an invalid side should be a no-op")
	}
}

func TestGame_AdvanceMovesBulletsExactly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		speed := rapid.Float64Range(0, 5000).Draw(t, "speed")
		delta := rapid.Int64Range(0, 1000).Draw(t, "delta")
		side := Side(rapid.IntRange(0, 1).Draw(t, "side"))

		g, _ := newTestGame(GameConfig{BulletSpeed: speed, Distance: 1e9})
		g.Fire(side)
		b, _ := g.Lead(side)
		start := b.X

		g.Advance(delta)

		want := start + speed/1000*float64(b.Direction)*float64(delta)
		if b.X != want {
			t.Fatalf("x = %v, want %v", b.X, want)
		}
		if g.Now() != delta || g.Loops() != 1 {
			t.Fatalf("now=%d loops=%d, want now=%d loops=1", g.Now(), g.Loops(), delta)
		}
		if g.Combatant(SideA).Ticks != delta || g.Combatant(SideB).Ticks != delta {
			t.Fatalf("ticks not advanced by %d", delta)
		}
	})
}

func TestGame_HeadOnCollisionReleasesBoth(t *testing.T) {
	// 1 unit/ms。A=-95, B=95 から発射、|a-b| = 190-2t < 10 となるのは t=91
	g, bullets := newTestGame(GameConfig{BulletSpeed: 1000, BulletRadius: 5, Distance: 100})
	g.Fire(SideA)
	g.Fire(SideB)

	for g.Bullets(SideA) > 0 && g.Now() < 200 {
		g.Advance(1)
	}
	if g.Now() != 91 {
		t.Fatalf("collision at t=%d, want 91", g.Now())
	}
	if g.Bullets(SideB) != 0 {
		t.Errorf("Bullets(B) = %d, want 0", g.Bullets(SideB))
	}
	if bullets.Len() != 2 {
		t.Errorf("pool idle = %d, want 2", bullets.Len())
	}
	if g.Ended() {
		t.Error("collision must not end the match")
	}
}

func TestGame_LeadReachingOpponentWins(t *testing.T) {
	tests := []struct {
		name   string
		side   Side
		winner Side
	}{
		{"A hits B", SideA, SideA},
		{"B hits A", SideB, SideB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 弾丸は ∓85 から出発し、±90 を超えた tick で決着する
			g, _ := newTestGame(GameConfig{BulletSpeed: 1000, PlayerRadius: 10, BulletRadius: 5, Distance: 100})
			g.Fire(tt.side)

			g.Advance(175)
			if g.Ended() {
				t.Fatal("ended at t=175, the boundary is not crossed yet")
			}
			g.Advance(1)
			if !g.Ended() {
				t.Fatal("not ended at t=176")
			}

			winner, ok := g.Winner()
			if !ok || winner != tt.winner {
				t.Errorf("Winner = %v, %v; want %v, true", winner, ok, tt.winner)
			}
			if g.Combatant(tt.winner).Outcome != OutcomeWon {
				t.Errorf("winner outcome = %v", g.Combatant(tt.winner).Outcome)
			}
			if g.Combatant(tt.winner.Opponent()).Outcome != OutcomeLost {
				t.Errorf("loser outcome = %v", g.Combatant(tt.winner.Opponent()).Outcome)
			}
		})
	}
}

func TestGame_BothLeadsPresentWithoutCollisionHasNoOutcome(t *testing.T) {
	g, _ := newTestGame(GameConfig{BulletSpeed: 1000, Distance: 100})
	g.Fire(SideA)
	g.Advance(150)
	g.Fire(SideB)

	// A の先頭弾は B の境界を越えるが、B の弾丸も飛んでいるので判定されない
	g.Advance(60)
	a, _ := g.Lead(SideA)
	if a.X <= 100 {
		t.Fatalf("A lead x = %v, expected past B's boundary", a.X)
	}
	if g.Ended() {
		t.Error("match should not end while both sides have a lead bullet")
	}
}

func TestGame_PostTerminalCallsAreNoOps(t *testing.T) {
	g, _ := newTestGame(GameConfig{BulletSpeed: 1000, Distance: 10})
	g.Fire(SideA)
	g.Advance(100)
	if !g.Ended() {
		t.Fatal("expected ended match")
	}
	before := g.Snapshot()

	g.Advance(50)
	if g.Fire(SideB) {
		t.Error("Fire after the match ended should fail")
	}
	if after := g.Snapshot(); after != before {
		t.Errorf("state changed after end:\n got %+v\nwant %+v", after, before)
	}
}

func TestGame_ReclaimAllReturnsEveryBullet(t *testing.T) {
	g, bullets := newTestGame(GameConfig{BulletSpeed: 1, Distance: 1e6})
	for i := 0; i < 5; i++ {
		g.Fire(SideA)
		g.Fire(SideB)
		g.Advance(1)
	}
	before := g.Snapshot()

	g.ReclaimAll()

	if g.Bullets(SideA) != 0 || g.Bullets(SideB) != 0 {
		t.Fatalf("bullets left after ReclaimAll: A=%d B=%d", g.Bullets(SideA), g.Bullets(SideB))
	}
	if bullets.Len() != 10 {
		t.Errorf("pool idle = %d, want 10", bullets.Len())
	}
	if g.Combatant(SideA) != before.Combatants[SideA] || g.Combatant(SideB) != before.Combatants[SideB] {
		t.Error("ReclaimAll must not touch combatant state")
	}
}

func TestGame_ReusesPooledBullets(t *testing.T) {
	g, bullets := newTestGame(GameConfig{BulletSpeed: 1000, BulletRadius: 5, Distance: 100})
	g.Fire(SideA)
	g.Fire(SideB)
	b, _ := g.Lead(SideB)
	g.Advance(91)
	if bullets.Len() != 2 {
		t.Fatalf("pool idle = %d, want 2", bullets.Len())
	}

	g.Fire(SideA)
	reused, _ := g.Lead(SideA)
	if reused != b {
		t.Errorf("expected the most recently released bullet (B's) to be reused")
	}
	if reused.ID != b.ID || reused.Direction != DirectionRight || reused.X != -95 {
		t.Errorf("reused bullet = %+v", reused)
	}
}

func TestGame_SnapshotIsACopy(t *testing.T) {
	g, _ := newTestGame(GameConfig{Distance: 10})
	snap := g.Snapshot()
	snap.Combatants[SideA].X = 42
	snap.Ended = true

	if g.Combatant(SideA).X != -10 || g.Ended() {
		t.Error("modifying a snapshot changed the game")
	}
}

// cooldown=100, 1 unit/ms, 半径0, 距離10。A が t=0 に -10 から撃ち、5ms ずつ進める。
func TestGame_EndToEndScenario(t *testing.T) {
	g, _ := newTestGame(GameConfig{FireCooldown: 100, BulletSpeed: 1000, Distance: 10})

	if !g.Fire(SideA) {
		t.Fatal("fire at t=0 failed")
	}
	lead, _ := g.Lead(SideA)
	if lead.X != -10 {
		t.Fatalf("spawn x = %v, want -10", lead.X)
	}

	for step := 1; step <= 4; step++ {
		g.Advance(5)
		if g.Ended() {
			t.Fatalf("ended early at step %d (x=%v)", step, lead.X)
		}
	}
	if lead.X != 10 {
		t.Fatalf("x after 4 steps = %v, want 10", lead.X)
	}

	g.Advance(5)
	if !g.Ended() {
		t.Fatalf("not ended after step 5 (x=%v)", lead.X)
	}
	if g.Combatant(SideA).Outcome != OutcomeWon || g.Combatant(SideB).Outcome != OutcomeLost {
		t.Errorf("outcomes = (%v, %v), want (won, lost)", g.Combatant(SideA).Outcome, g.Combatant(SideB).Outcome)
	}
	if g.Now() != 25 || g.Loops() != 5 {
		t.Errorf("now=%d loops=%d, want 25, 5", g.Now(), g.Loops())
	}
}

func TestSnapshotCodec_CarriesLeads(t *testing.T) {
	g, _ := newTestGame(GameConfig{BulletSpeed: 1000, Distance: 100})
	g.Fire(SideA)
	g.Advance(7)

	payload := EncodeSnapshot(g)
	parsed, err := domain.ParseMatchStatePayload(payload.Encode())
	if err != nil {
		t.Fatalf("ParseMatchStatePayload failed: %v", err)
	}
	snap, leads := DecodeSnapshot(parsed)

	if snap != g.Snapshot() {
		t.Errorf("decoded snapshot = %+v, want %+v", snap, g.Snapshot())
	}
	lead, _ := g.Lead(SideA)
	if leads[SideA] != lead.X {
		t.Errorf("lead A = %v, want %v", leads[SideA], lead.X)
	}
}

func TestSnapshotCodec_SaturatesBulletCount(t *testing.T) {
	g, _ := newTestGame(GameConfig{BulletSpeed: 1, Distance: 1e9})
	for range math.MaxUint16 + 10 {
		g.Fire(SideA)
	}
	if g.Bullets(SideA) != math.MaxUint16+10 {
		t.Fatalf("Bullets(A) = %d, want %d", g.Bullets(SideA), math.MaxUint16+10)
	}

	payload := EncodeSnapshot(g)
	if got := payload.Combatants[SideA].Bullets; got != math.MaxUint16 {
		t.Errorf("wire bullets = %d, want %d", got, math.MaxUint16)
	}
	if got := payload.Combatants[SideB].Bullets; got != 0 {
		t.Errorf("wire bullets B = %d, want 0", got)
	}
}

func TestGame_AdvanceDoesNotAllocate(t *testing.T) {
	if raceEnabled {
		t.Skip("allocation counts are not stable under -race")
	}
	g, _ := newTestGame(GameConfig{BulletSpeed: 1, Distance: 1e9})
	for range 8 {
		g.Fire(SideA)
		g.Fire(SideB)
		g.Advance(1)
	}

	allocs := testing.AllocsPerRun(100, func() {
		g.Advance(1)
	})
	if allocs != 0 {
		t.Errorf("Advance allocated %v times per run, want 0", allocs)
	}
	if g.Ended() || g.Bullets(SideA) != 8 || g.Bullets(SideB) != 8 {
		t.Fatalf("bullets should still be in flight: ended=%v A=%d B=%d", g.Ended(), g.Bullets(SideA), g.Bullets(SideB))
	}
}

func TestGame_FireAndCollideDoNotAllocate(t *testing.T) {
	if raceEnabled {
		t.Skip("allocation counts are not stable under -race")
	}
	// Info を無効にしたロガーでも衝突ログの引数で確保しないこと
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
	bullets := NewBulletPool()
	g := NewGame(GameConfig{BulletSpeed: 1, BulletRadius: 1e12, Distance: 100}, bullets, logger)

	allocs := testing.AllocsPerRun(100, func() {
		g.Fire(SideA)
		g.Fire(SideB)
		g.Advance(1)
	})
	if allocs != 0 {
		t.Errorf("fire and collide allocated %v times per run, want 0", allocs)
	}
	if g.Ended() || g.Bullets(SideA) != 0 || g.Bullets(SideB) != 0 {
		t.Fatalf("every pair should collide: ended=%v A=%d B=%d", g.Ended(), g.Bullets(SideA), g.Bullets(SideB))
	}
	if bullets.Len() != 2 {
		t.Errorf("pool idle = %d, want 2", bullets.Len())
	}
}
