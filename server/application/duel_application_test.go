package application_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"go.uber.org/mock/gomock"

	"shooter/server/application"
	"shooter/server/domain"
	"shooter/server/domain/mocks"
)

type sent struct {
	to  domain.SessionID
	msg []byte
}

// recorder は Broadcaster に渡されたメッセージを順番に記録します。
type recorder struct {
	sent []sent
}

func (r *recorder) Broadcast(ctx context.Context, data []byte) {
	r.sent = append(r.sent, sent{msg: data})
}

func (r *recorder) SendTo(ctx context.Context, sessionID domain.SessionID, data []byte) {
	r.sent = append(r.sent, sent{to: sessionID, msg: data})
}

func (r *recorder) match(t *testing.T, sub domain.MatchSubType) [][]byte {
	t.Helper()
	var payloads [][]byte
	for _, s := range r.sent {
		_, ph, payload, err := domain.ParseMessage(s.msg)
		if err != nil {
			t.Fatalf("ParseMessage failed: %v", err)
		}
		if ph.DataType == domain.DataTypeMatch && domain.MatchSubType(ph.SubType) == sub {
			payloads = append(payloads, payload)
		}
	}
	return payloads
}

var duelConfig = application.DuelConfig{
	Game: application.GameConfig{
		FireCooldown: 100,
		BulletSpeed:  1000,
		Distance:     10,
	},
	BroadcastEvery: 1000,
}

func newDuel(t *testing.T, cfg application.DuelConfig) (*application.DuelApplication, domain.SessionID, domain.SessionID) {
	t.Helper()
	app := application.NewDuelApplication(cfg, slog.New(slog.DiscardHandler))
	a, b := domain.NewSessionID(), domain.NewSessionID()
	ctx := context.Background()
	if err := app.Join(ctx, a); err != nil {
		t.Fatalf("Join(a) failed: %v", err)
	}
	if err := app.Join(ctx, b); err != nil {
		t.Fatalf("Join(b) failed: %v", err)
	}
	return app, a, b
}

func TestDuelApplication_StartsWhenBothSeatsFilled(t *testing.T) {
	ctrl := gomock.NewController(t)
	app := application.NewDuelApplication(duelConfig, slog.New(slog.DiscardHandler))
	ctx := context.Background()
	a, b := domain.NewSessionID(), domain.NewSessionID()

	if err := app.Join(ctx, a); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if app.Game() != nil {
		t.Fatal("match started with a single player")
	}
	if err := app.Join(ctx, b); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if app.Game() == nil {
		t.Fatal("match did not start with two players")
	}

	checkStart := func(want domain.Seat) func(context.Context, domain.SessionID, []byte) {
		return func(_ context.Context, _ domain.SessionID, data []byte) {
			_, _, payload, err := domain.ParseMessage(data)
			if err != nil {
				t.Fatalf("ParseMessage failed: %v", err)
			}
			start, err := domain.ParseMatchStartPayload(payload)
			if err != nil {
				t.Fatalf("ParseMatchStartPayload failed: %v", err)
			}
			if start.Seat != want || start.Distance != 10 || start.FireCooldown != 100 {
				t.Errorf("start payload = %+v, want seat %d", start, want)
			}
		}
	}
	out := mocks.NewMockBroadcaster(ctrl)
	gomock.InOrder(
		out.EXPECT().SendTo(gomock.Any(), a, gomock.Any()).Do(checkStart(domain.SeatA)),
		out.EXPECT().SendTo(gomock.Any(), b, gomock.Any()).Do(checkStart(domain.SeatB)),
	)
	app.Tick(ctx, 0, out)
}

func TestDuelApplication_ThirdPlayerSpectates(t *testing.T) {
	app, _, _ := newDuel(t, duelConfig)
	c := domain.NewSessionID()

	if err := app.Join(context.Background(), c); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, ok := app.Seat(c); ok {
		t.Error("third session should not get a seat")
	}
	err := app.HandleMessage(context.Background(), c, domain.EncodeInputMessage(c, 0, domain.KeyFire))
	if !errors.Is(err, application.ErrUnknownSession) {
		t.Errorf("expected ErrUnknownSession, got %v", err)
	}
}

func TestDuelApplication_RejectsMalformedInput(t *testing.T) {
	app, a, _ := newDuel(t, duelConfig)

	err := app.HandleMessage(context.Background(), a, []byte{1, 2, 3})
	if !errors.Is(err, domain.ErrInvalidHeaderSize) {
		t.Errorf("expected ErrInvalidHeaderSize, got %v", err)
	}

	msg := domain.EncodeMessage(a, 0, domain.DataTypeInput, 0, []byte{1})
	err = app.HandleMessage(context.Background(), a, msg)
	if !errors.Is(err, domain.ErrInvalidInputPayloadSize) {
		t.Errorf("expected ErrInvalidInputPayloadSize, got %v", err)
	}
}

func TestDuelApplication_FullMatch(t *testing.T) {
	app, a, b := newDuel(t, duelConfig)
	ctx := context.Background()
	out := &recorder{}

	if err := app.HandleMessage(ctx, a, domain.EncodeInputMessage(a, 1, domain.KeyFire)); err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	// 発射は次の tick で適用される
	if app.Game().Bullets(application.SideA) != 0 {
		t.Fatal("fire applied before the tick")
	}

	for i := 0; i < 5; i++ {
		app.Tick(ctx, 5, out)
	}

	ends := out.match(t, domain.MatchSubTypeEnd)
	if len(ends) != 1 {
		t.Fatalf("end messages = %d, want 1", len(ends))
	}
	end, err := domain.ParseMatchEndPayload(ends[0])
	if err != nil {
		t.Fatalf("ParseMatchEndPayload failed: %v", err)
	}
	if end.Winner != domain.SeatA || end.Now != 25 || end.Loops != 5 {
		t.Errorf("end = %+v, want winner A at t=25 after 5 loops", end)
	}

	states := out.match(t, domain.MatchSubTypeState)
	if len(states) != 1 {
		t.Fatalf("state messages = %d, want the final one only", len(states))
	}
	state, err := domain.ParseMatchStatePayload(states[0])
	if err != nil {
		t.Fatalf("ParseMatchStatePayload failed: %v", err)
	}
	if !state.Ended || state.Combatants[domain.SeatA].Outcome != uint8(application.OutcomeWon) {
		t.Errorf("final state = %+v", state)
	}

	// 決着後は座席が空き、再参加を待つ
	if app.Game() != nil {
		t.Error("game should be cleared after the match")
	}
	if _, ok := app.Seat(a); ok {
		t.Error("seat A should be released")
	}
	if _, ok := app.Seat(b); ok {
		t.Error("seat B should be released")
	}
}

func TestDuelApplication_BroadcastsStateAtCadence(t *testing.T) {
	cfg := duelConfig
	cfg.BroadcastEvery = 2
	app, _, _ := newDuel(t, cfg)
	out := &recorder{}

	for i := 0; i < 6; i++ {
		app.Tick(context.Background(), 1, out)
	}
	if n := len(out.match(t, domain.MatchSubTypeState)); n != 3 {
		t.Errorf("state messages = %d, want 3", n)
	}
}

func TestDuelApplication_LeaveAbandonsMatch(t *testing.T) {
	app, a, b := newDuel(t, duelConfig)
	ctx := context.Background()
	out := &recorder{}
	app.Tick(ctx, 0, out)

	app.Leave(ctx, b)
	app.Tick(ctx, 1, out)

	ends := out.match(t, domain.MatchSubTypeEnd)
	if len(ends) != 1 {
		t.Fatalf("end messages = %d, want 1", len(ends))
	}
	end, err := domain.ParseMatchEndPayload(ends[0])
	if err != nil {
		t.Fatalf("ParseMatchEndPayload failed: %v", err)
	}
	if end.Winner != domain.SeatNone {
		t.Errorf("winner = %d, want none", end.Winner)
	}
	if app.Game() != nil {
		t.Error("game should be cleared after abandon")
	}

	// 残ったプレイヤーと新しいプレイヤーで次の試合が始まる
	if err := app.Join(ctx, a); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if err := app.Join(ctx, domain.NewSessionID()); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if app.Game() == nil {
		t.Error("next match did not start")
	}
}
