package application

import (
	"context"
	"log/slog"
	"math"

	"shooter/server/pool"
)

// GameConfig は1試合の間変わらない定数群です。
type GameConfig struct {
	FireCooldown int64   // ms
	BulletSpeed  float64 // units/s
	PlayerRadius float64
	BulletRadius float64
	Distance     float64
}

// Snapshot は Game の状態のコピーです。
type Snapshot struct {
	Combatants [2]CombatantState
	Bullets    [2]int
	Now        int64
	Loops      uint64
	Ended      bool
}

// Game は1次元の撃ち合い1試合分のシミュレーションです。
//
// Game は並行利用に対応していません。所有するゴルーチンからのみ呼び出してください。
type Game struct {
	cfg     GameConfig
	logger  *slog.Logger
	bullets *pool.Pool[*Bullet]

	combatants [2]CombatantState
	queues     [2]*pool.Queue[*Bullet]

	now    int64
	loops  uint64
	ended  bool
	winner Side
}

// NewGame は A を -Distance、B を +Distance に向かい合わせて配置した試合を生成します。
// 弾丸は bullets から取得し、bullets へ返却します。
func NewGame(cfg GameConfig, bullets *pool.Pool[*Bullet], logger *slog.Logger) *Game {
	if bullets == nil {
		bullets = NewBulletPool()
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Game{
		cfg:     cfg,
		bullets: bullets,
		combatants: [2]CombatantState{
			SideA: newCombatant(-cfg.Distance, DirectionRight),
			SideB: newCombatant(cfg.Distance, DirectionLeft),
		},
		queues: [2]*pool.Queue[*Bullet]{
			SideA: pool.NewQueue[*Bullet](16),
			SideB: pool.NewQueue[*Bullet](16),
		},
	}
	g.logger = logger.With("a", g.combatants[SideA].ID, "b", g.combatants[SideB].ID)
	return g
}

// Advance はシミュレーションを delta ミリ秒進め、その tick の結果を最大1つ評価します。
// 決着後の呼び出しは何もしません。
func (g *Game) Advance(delta int64) {
	if g.ended {
		return
	}

	g.now += delta
	g.loops++
	for i := range g.combatants {
		g.combatants[i].Ticks += delta
	}

	perMS := g.cfg.BulletSpeed / 1000
	for _, q := range g.queues {
		q.Each(func(b *Bullet) {
			b.X += perMS * float64(b.Direction) * float64(delta)
		})
	}

	a, aok := g.queues[SideA].Peek()
	b, bok := g.queues[SideB].Peek()
	switch {
	case aok && bok:
		if math.Abs(a.X-b.X) < 2*g.cfg.BulletRadius {
			g.queues[SideA].Pop()
			g.queues[SideB].Pop()
			if g.logger.Enabled(context.Background(), slog.LevelInfo) {
				g.logger.Info("bullets collided",
					"bulletA", a.ID,
					"bulletB", b.ID,
					"x", a.X,
					"loops", g.loops,
				)
			}
			g.bullets.Release(a)
			g.bullets.Release(b)
		}
	case aok:
		if a.X > g.combatants[SideB].X-g.cfg.PlayerRadius {
			g.finish(SideA)
		}
	case bok:
		if b.X < g.combatants[SideA].X+g.cfg.PlayerRadius {
			g.finish(SideB)
		}
	}
}

func (g *Game) finish(winner Side) {
	g.combatants[winner].Outcome = OutcomeWon
	g.combatants[winner.Opponent()].Outcome = OutcomeLost
	g.winner = winner
	g.ended = true
	g.logger.Info("match ended",
		"winner", winner.String(),
		"loops", g.loops,
		"now", g.now,
		"combatantA", g.combatants[SideA],
		"combatantB", g.combatants[SideB],
	)
}

// Fire は side の弾丸を1発生成します。クールダウン中や決着後は何もせず false を返します。
func (g *Game) Fire(side Side) bool {
	if g.ended || !side.valid() {
		return false
	}

	c := &g.combatants[side]
	if c.LastFire != NeverFired && c.LastFire+g.cfg.FireCooldown > g.now {
		if g.logger.Enabled(context.Background(), slog.LevelDebug) {
			g.logger.Debug("early fire, nothing happened", "side", side.String(), "combatant", *c, "now", g.now)
		}
		return false
	}

	c.LastFire = g.now
	b := g.bullets.Acquire().Reset(c.X+(g.cfg.PlayerRadius+g.cfg.BulletRadius)*float64(c.Direction), c.Direction)
	g.queues[side].Push(b)
	c.BulletsFired++

	if g.logger.Enabled(context.Background(), slog.LevelDebug) {
		g.logger.Debug("bullet created", "side", side.String(), "bullet", b.ID, "x", b.X, "combatant", *c)
	}
	return true
}

// ReclaimAll は飛行中の弾丸を全てプールへ返却します。プレイヤーの状態は変わりません。
func (g *Game) ReclaimAll() {
	for _, q := range g.queues {
		q.Clear(g.bullets.Release)
	}
}

func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Combatants: g.combatants,
		Bullets:    [2]int{g.queues[SideA].Len(), g.queues[SideB].Len()},
		Now:        g.now,
		Loops:      g.loops,
		Ended:      g.ended,
	}
}

// Combatant は side のプレイヤー状態のコピーを返します。
func (g *Game) Combatant(side Side) CombatantState {
	return g.combatants[side]
}

// Lead は side の先頭の弾丸を返します。
func (g *Game) Lead(side Side) (*Bullet, bool) {
	return g.queues[side].Peek()
}

func (g *Game) Ended() bool {
	return g.ended
}

// Winner は決着している場合に勝者を返します。
func (g *Game) Winner() (Side, bool) {
	return g.winner, g.ended
}

func (g *Game) Bullets(side Side) int {
	return g.queues[side].Len()
}

func (g *Game) Now() int64 {
	return g.now
}

func (g *Game) Loops() uint64 {
	return g.loops
}
