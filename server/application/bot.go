package application

// BotAction はボットの行動を表します。
type BotAction struct {
	Fire bool
}

// BotView はボットが判断に使う試合の見え方です。
type BotView struct {
	Self     Side
	Snapshot Snapshot
	Leads    [2]float64 // 各陣営の先頭の弾丸の位置 (Bullets が 0 のときは無効)
	Config   GameConfig
}

// BotController はボットの意思決定インターフェースです。
type BotController interface {
	Decide(view BotView) BotAction
}

// CanFire は view の時点でクールダウンが明けているかを返します。
func (v BotView) CanFire() bool {
	self := v.Snapshot.Combatants[v.Self]
	return self.LastFire == NeverFired || self.LastFire+v.Config.FireCooldown <= v.Snapshot.Now
}
