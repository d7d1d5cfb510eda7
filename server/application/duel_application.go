package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shooter/server/domain"
	"shooter/server/pool"
)

const tracerName = "shooter/server/application"

// ErrUnknownSession は座席を持たないセッションからの入力に対して返されます。
var ErrUnknownSession = errors.New("session has no seat")

// DuelConfig は DuelApplication の設定です。
type DuelConfig struct {
	Game GameConfig
	// BroadcastEvery は何 tick ごとに状態を配信するかです。
	BroadcastEvery int
}

type outbound struct {
	to   domain.SessionID // ゼロ値なら全体配信
	data []byte
}

// DuelApplication は1ルーム分の対戦を管理する Application です。
// 2つの座席が埋まると試合を開始し、決着すると座席を空けます。
type DuelApplication struct {
	cfg     DuelConfig
	logger  *slog.Logger
	tracer  trace.Tracer
	bullets *pool.Pool[*Bullet]

	seats  [2]domain.SessionID
	game   *Game
	span   trace.Span
	ticks  uint64
	fires  []Side
	outbox []outbound
}

var _ domain.Application = (*DuelApplication)(nil)

func NewDuelApplication(cfg DuelConfig, logger *slog.Logger) *DuelApplication {
	if cfg.BroadcastEvery <= 0 {
		cfg.BroadcastEvery = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DuelApplication{
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		bullets: NewBulletPool(),
		fires:   make([]Side, 0, 8),
	}
}

// Join は空いている座席にセッションを割り当てます。座席が埋まっている場合は観戦者になります。
func (app *DuelApplication) Join(ctx context.Context, sessionID domain.SessionID) error {
	if _, ok := app.seatOf(sessionID); ok {
		return nil
	}
	side, ok := app.freeSeat()
	if !ok {
		app.logger.InfoContext(ctx, "seats are full, spectating", "sessionID", sessionID)
		return nil
	}
	app.seats[side] = sessionID
	app.logger.InfoContext(ctx, "seat assigned", "sessionID", sessionID, "side", side.String())

	if app.game == nil && !app.seats[SideA].IsEmpty() && !app.seats[SideB].IsEmpty() {
		app.startMatch(ctx)
	}
	return nil
}

// Leave は座席を空けます。試合中であれば試合は勝者なしで中断されます。
func (app *DuelApplication) Leave(ctx context.Context, sessionID domain.SessionID) {
	side, ok := app.seatOf(sessionID)
	if !ok {
		return
	}
	app.seats[side] = domain.SessionID{}
	app.logger.InfoContext(ctx, "seat released", "sessionID", sessionID, "side", side.String())

	if app.game != nil && !app.game.Ended() {
		app.span.SetStatus(codes.Error, "abandoned")
		app.queueEnd(domain.SeatNone)
		app.endMatch(ctx)
	}
}

// HandleMessage は入力メッセージを解釈し、発射要求を次の tick まで保留します。
func (app *DuelApplication) HandleMessage(ctx context.Context, sessionID domain.SessionID, data []byte) error {
	_, payloadHeader, payload, err := domain.ParseMessage(data)
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}

	switch payloadHeader.DataType {
	case domain.DataTypeInput:
		return app.handleInput(ctx, sessionID, payload)
	default:
		app.logger.WarnContext(ctx, "unknown data type", "dataType", payloadHeader.DataType)
		return nil
	}
}

func (app *DuelApplication) handleInput(ctx context.Context, sessionID domain.SessionID, payload []byte) error {
	input, err := domain.ParseInputPayload(payload)
	if err != nil {
		return fmt.Errorf("parse input: %w", err)
	}
	side, ok := app.seatOf(sessionID)
	if !ok {
		return fmt.Errorf("input from %s: %w", sessionID, ErrUnknownSession)
	}
	if app.game == nil || !input.Pressed(domain.KeyFire) {
		return nil
	}
	app.fires = append(app.fires, side)
	return nil
}

// Tick は保留中の発射を適用し、試合を delta ミリ秒進めて結果を配信します。
func (app *DuelApplication) Tick(ctx context.Context, delta int64, out domain.Broadcaster) {
	if app.game != nil {
		for _, side := range app.fires {
			app.game.Fire(side)
		}
		app.fires = app.fires[:0]

		app.game.Advance(delta)
		app.ticks++

		if app.game.Ended() {
			winner, _ := app.game.Winner()
			app.queueState()
			app.queueEnd(domain.Seat(winner))
			app.span.SetAttributes(attribute.String("match.winner", winner.String()))
			app.endMatch(ctx)
		} else if app.ticks%uint64(app.cfg.BroadcastEvery) == 0 {
			app.queueState()
		}
	}

	for i, msg := range app.outbox {
		if msg.to.IsEmpty() {
			out.Broadcast(ctx, msg.data)
		} else {
			out.SendTo(ctx, msg.to, msg.data)
		}
		app.outbox[i] = outbound{}
	}
	app.outbox = app.outbox[:0]
}

// Game は進行中の試合を返します。試合がなければ nil です。
func (app *DuelApplication) Game() *Game {
	return app.game
}

// Seat は sessionID の座席を返します。
func (app *DuelApplication) Seat(sessionID domain.SessionID) (Side, bool) {
	return app.seatOf(sessionID)
}

func (app *DuelApplication) startMatch(ctx context.Context) {
	app.game = NewGame(app.cfg.Game, app.bullets, app.logger)
	app.ticks = 0
	app.fires = app.fires[:0]

	a, b := app.game.Combatant(SideA), app.game.Combatant(SideB)
	_, app.span = app.tracer.Start(context.WithoutCancel(ctx), "match",
		trace.WithAttributes(
			attribute.Int64("combatant.a", int64(a.ID)),
			attribute.Int64("combatant.b", int64(b.ID)),
			attribute.String("session.a", app.seats[SideA].String()),
			attribute.String("session.b", app.seats[SideB].String()),
		),
	)
	app.logger.InfoContext(ctx, "match started", "combatantA", a, "combatantB", b)

	for _, side := range []Side{SideA, SideB} {
		start := domain.MatchStartPayload{
			Seat:         domain.Seat(side),
			FireCooldown: app.cfg.Game.FireCooldown,
			BulletSpeed:  app.cfg.Game.BulletSpeed,
			PlayerRadius: app.cfg.Game.PlayerRadius,
			BulletRadius: app.cfg.Game.BulletRadius,
			Distance:     app.cfg.Game.Distance,
		}
		app.outbox = append(app.outbox, outbound{
			to:   app.seats[side],
			data: domain.EncodeMatchMessage(domain.MatchSubTypeStart, start.Encode()),
		})
	}
}

// endMatch は弾丸をプールへ返却し、座席を空けて次の試合を待ちます。
func (app *DuelApplication) endMatch(ctx context.Context) {
	app.game.ReclaimAll()
	app.span.SetAttributes(
		attribute.Int64("match.loops", int64(app.game.Loops())),
		attribute.Int64("match.duration_ms", app.game.Now()),
	)
	app.span.End()
	app.logger.InfoContext(ctx, "match closed", "loops", app.game.Loops(), "now", app.game.Now())

	app.game = nil
	app.span = nil
	app.seats = [2]domain.SessionID{}
	app.fires = app.fires[:0]
}

func (app *DuelApplication) queueState() {
	payload := EncodeSnapshot(app.game)
	app.outbox = append(app.outbox, outbound{
		data: domain.EncodeMatchMessage(domain.MatchSubTypeState, payload.Encode()),
	})
}

func (app *DuelApplication) queueEnd(winner domain.Seat) {
	end := domain.MatchEndPayload{
		Winner: winner,
		Now:    app.game.Now(),
		Loops:  app.game.Loops(),
	}
	app.outbox = append(app.outbox, outbound{
		data: domain.EncodeMatchMessage(domain.MatchSubTypeEnd, end.Encode()),
	})
}

func (app *DuelApplication) seatOf(sessionID domain.SessionID) (Side, bool) {
	for i, s := range app.seats {
		if s == sessionID && !s.IsEmpty() {
			return Side(i), true
		}
	}
	return 0, false
}

func (app *DuelApplication) freeSeat() (Side, bool) {
	for i, s := range app.seats {
		if s.IsEmpty() {
			return Side(i), true
		}
	}
	return 0, false
}
