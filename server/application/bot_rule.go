package application

import (
	"math"
	"math/rand/v2"
)

// RuleBotController はルールベースのボットAIです。
// ボットごとに異なる個性パラメータを持ちます。
type RuleBotController struct {
	// InterceptRange は相手の弾丸がこの距離まで迫ったら迎撃する距離です。
	InterceptRange float64
	// FireChance は毎 tick 自発的に撃つ確率です。
	FireChance float64
}

// NewRuleBotController はランダムな個性を持つボットAIを生成します。
// distance は試合の配置距離で、迎撃距離はその一部になります。
func NewRuleBotController(distance float64) *RuleBotController {
	return &RuleBotController{
		InterceptRange: distance * (0.5 + rand.Float64()), // 0.5〜1.5 倍
		FireChance:     0.01 + rand.Float64()*0.04,        // 1〜5%
	}
}

func (r *RuleBotController) Decide(view BotView) BotAction {
	if view.Snapshot.Ended || !view.CanFire() {
		return BotAction{}
	}

	// 迎撃を優先: 相手の弾が自分の弾より多く、先頭が迫っている
	opponent := view.Self.Opponent()
	if view.Snapshot.Bullets[opponent] > view.Snapshot.Bullets[view.Self] {
		self := view.Snapshot.Combatants[view.Self]
		if math.Abs(view.Leads[opponent]-self.X) <= r.InterceptRange {
			return BotAction{Fire: true}
		}
	}

	if rand.Float64() < r.FireChance {
		return BotAction{Fire: true}
	}
	return BotAction{}
}
