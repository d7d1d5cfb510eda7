package domain

import (
	"context"
	"log/slog"
	"sync/atomic"

	"shooter/server/scheduler"
)

// maxMessagesPerTick は1 tick で処理する受信メッセージの上限です。
const maxMessagesPerTick = subscriberBuffer

// RoomConfig はルームの tick 設定です。
type RoomConfig struct {
	TickRate float64 // ms
	Clock    scheduler.Clock
	// Observer は tick 間隔を受け取ります。nil の場合は計測しません。
	Observer scheduler.IntervalObserver
}

// Room は1つの試合の場です。tick は共有の scheduler.Timer 上で実行され、
// 受信メッセージは tick の先頭でまとめて処理されます。
type Room struct {
	ID       RoomID
	sessions map[SessionID]struct{}

	// occupants は sessions の長さを tick 外に公開します
	occupants atomic.Int32

	pubsub      PubSub
	application Application // 外部からアプリケーションロジックを注入できる

	timer    *scheduler.Timer
	ticker   *scheduler.Ticker
	clock    scheduler.Clock
	lastTick int64

	msgCh  <-chan Message
	handle *scheduler.Handle
}

var _ Broadcaster = (*Room)(nil)

func NewRoom(id RoomID, pubsub PubSub, application Application, timer *scheduler.Timer, cfg RoomConfig) (*Room, error) {
	if pubsub == nil || application == nil || timer == nil {
		return nil, ErrInitializationFailed
	}
	if cfg.TickRate <= 0 {
		return nil, ErrInitializationFailed
	}
	clock := cfg.Clock
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	return &Room{
		ID:          id,
		sessions:    make(map[SessionID]struct{}),
		pubsub:      pubsub,
		application: application,
		timer:       timer,
		ticker:      scheduler.NewTicker(cfg.TickRate, clock, cfg.Observer),
		clock:       clock,
	}, nil
}

func (r *Room) Broadcast(ctx context.Context, data []byte) {
	for sessionID := range r.sessions {
		r.pubsub.Publish(ctx, SessionTopic(sessionID), Message{Data: data})
	}
}

func (r *Room) SendTo(ctx context.Context, sessionID SessionID, data []byte) {
	r.pubsub.Publish(ctx, SessionTopic(sessionID), Message{Data: data})
}

// Start はルーム宛メッセージの購読を開始し、tick をタイマーに登録します。
func (r *Room) Start(ctx context.Context) {
	r.msgCh = r.pubsub.Subscribe(RoomTopic(r.ID))
	r.lastTick = r.clock.Now().UnixMilli()
	r.handle = scheduler.Schedule(r.timer, r.ticker, func() bool {
		if ctx.Err() != nil {
			return false
		}
		r.tick(ctx)
		return true
	})
	slog.InfoContext(ctx, "room started", "roomID", r.ID, "tickRate", r.ticker.Rate())
}

// Stop は tick を止め購読を解除します。実行中の tick は完了まで走ります。
func (r *Room) Stop() {
	if r.handle == nil {
		return
	}
	r.handle.Stop()
	r.pubsub.Unsubscribe(RoomTopic(r.ID), r.msgCh)
}

// Run は ctx がキャンセルされるまでルームを動かします。
func (r *Room) Run(ctx context.Context) error {
	r.Start(ctx)
	<-ctx.Done()
	r.Stop()
	slog.InfoContext(ctx, "room stopped", "roomID", r.ID)
	return nil
}

// Sessions はルームに参加しているセッション数を返します。
func (r *Room) Sessions() int {
	return int(r.occupants.Load())
}

func (r *Room) tick(ctx context.Context) {
	// 受信メッセージを処理
RECEIVE_LOOP:
	for range maxMessagesPerTick {
		select {
		case msg, ok := <-r.msgCh:
			if !ok {
				break RECEIVE_LOOP
			}
			r.handleMessage(ctx, msg)
		default:
			break RECEIVE_LOOP
		}
	}

	now := r.clock.Now().UnixMilli()
	delta := now - r.lastTick
	r.lastTick = now
	r.application.Tick(ctx, delta, r)
}

func (r *Room) handleMessage(ctx context.Context, msg Message) {
	if len(msg.Data) >= HeaderSize+PayloadHeaderSize {
		payloadHeader, err := ParsePayloadHeader(msg.Data[HeaderSize:])
		if err == nil && payloadHeader.DataType == DataTypeControl {
			switch ControlSubType(payloadHeader.SubType) {
			case ControlSubTypeJoin:
				r.sessions[msg.SessionID] = struct{}{}
				r.occupants.Store(int32(len(r.sessions)))
				if err := r.application.Join(ctx, msg.SessionID); err != nil {
					slog.WarnContext(ctx, "room join failed", "roomID", r.ID, "sessionID", msg.SessionID, "err", err)
				}
				return
			case ControlSubTypeLeave:
				if _, ok := r.sessions[msg.SessionID]; !ok {
					return
				}
				delete(r.sessions, msg.SessionID)
				r.occupants.Store(int32(len(r.sessions)))
				r.application.Leave(ctx, msg.SessionID)
				return
			}
		}
	}
	// アプリケーションロジックが担当する
	if err := r.application.HandleMessage(ctx, msg.SessionID, msg.Data); err != nil {
		slog.WarnContext(ctx, "room handle message failed", "roomID", r.ID, "err", err)
	}
}
