package application

import "testing"

func botView(self Side) BotView {
	cfg := GameConfig{FireCooldown: 100, BulletSpeed: 1000, Distance: 100}
	g, _ := newTestGame(cfg)
	return BotView{Self: self, Snapshot: g.Snapshot(), Config: cfg}
}

func TestRuleBot_RespectsCooldown(t *testing.T) {
	bot := &RuleBotController{InterceptRange: 1000, FireChance: 1}
	view := botView(SideA)
	view.Snapshot.Combatants[SideA].LastFire = 0
	view.Snapshot.Now = 50

	if bot.Decide(view).Fire {
		t.Error("bot fired during cooldown")
	}
	view.Snapshot.Now = 100
	if !bot.Decide(view).Fire {
		t.Error("bot did not fire after cooldown")
	}
}

func TestRuleBot_InterceptsIncomingBullet(t *testing.T) {
	bot := &RuleBotController{InterceptRange: 50, FireChance: 0}
	view := botView(SideB)
	view.Snapshot.Bullets[SideA] = 1
	view.Leads[SideA] = 0 // B (x=100) から 100 離れている

	if bot.Decide(view).Fire {
		t.Error("bot fired at a bullet outside its intercept range")
	}

	view.Leads[SideA] = 60
	if !bot.Decide(view).Fire {
		t.Error("bot did not intercept a bullet within range")
	}

	view.Snapshot.Bullets[SideB] = 1
	if bot.Decide(view).Fire {
		t.Error("bot fired although its own bullet already covers the incoming one")
	}
}

func TestRuleBot_IdleAfterMatchEnded(t *testing.T) {
	bot := &RuleBotController{InterceptRange: 1000, FireChance: 1}
	view := botView(SideA)
	view.Snapshot.Ended = true

	if bot.Decide(view).Fire {
		t.Error("bot fired after the match ended")
	}
}
