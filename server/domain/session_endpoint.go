package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed は初期化に必要な依存が不足している場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize")
)

const idleCheckInterval = time.Second

// EndpointConfig はセッションの死活監視設定です。
type EndpointConfig struct {
	HeartbeatInterval time.Duration
	IdleTimeout       time.Duration
}

// SessionEndpoint は1つの接続とルームの間を中継します。ゲームの状態には触れません。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session     *Session
	connection  *Connection
	pubsub      PubSub
	roomManager RoomManager
	roomID      RoomID // Join時にRoomManagerから取得
	cfg         EndpointConfig

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(ctx context.Context, session *Session, connection *Connection, pubsub PubSub, roomManager RoomManager, cfg EndpointConfig) (*SessionEndpoint, error) {
	if session == nil {
		return nil, fmt.Errorf("session endpoint: nil session: %w", ErrInitializationFailed)
	}
	if connection == nil {
		return nil, fmt.Errorf("session endpoint: nil connection: %w", ErrInitializationFailed)
	}
	if pubsub == nil {
		return nil, fmt.Errorf("session endpoint: nil pubsub: %w", ErrInitializationFailed)
	}
	if roomManager == nil {
		return nil, fmt.Errorf("session endpoint: nil room manager: %w", ErrInitializationFailed)
	}
	ctx, cancel := context.WithCancel(ctx)
	se := &SessionEndpoint{
		ctx:         ctx,
		cancel:      cancel,
		session:     session,
		connection:  connection,
		pubsub:      pubsub,
		roomManager: roomManager,
		cfg:         cfg,
		ctrlCh:      make(chan endpointEvent, 16),
		writeCh:     make(chan []byte, 1024),
	}
	return se, nil
}

// Run は接続が閉じるまで各ループを動かします。
func (se *SessionEndpoint) Run() error {
	// 自分宛のメッセージを購読
	sessionTopic := SessionTopic(se.session.ID())
	msgCh := se.pubsub.Subscribe(sessionTopic)
	defer se.pubsub.Unsubscribe(sessionTopic, msgCh)

	// セッションID通知を送信
	if err := se.Send(EncodeAssignMessage(se.session.ID())); err != nil {
		se.close()
		return err
	}

	heartbeat := NewHeartbeatService(se.cfg.HeartbeatInterval, se.session.ID(), se.Send)

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.subscribeLoop(ctx, msgCh)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(ctx)
		return nil
	})

	err := eg.Wait()
	se.leaveRoom(context.WithoutCancel(se.ctx))
	se.close()
	return err
}

// Send は書き込みキューにデータを積みます。満杯の場合は ErrBackpressure を返します。
func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose})
}

func (se *SessionEndpoint) ForceClose() {
	se.close()
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			if ok, reason := se.session.IsIdle(se.cfg.IdleTimeout); ok {
				se.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  fmt.Errorf("idle: %s", reason),
				})
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		data, err := se.connection.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
			}
			return
		}
		se.session.TouchRead()
		se.handleData(ctx, data)
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			if err := se.connection.Write(ctx, data); err != nil {
				if ctx.Err() == nil {
					se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				}
				return
			}
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (se *SessionEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			if err := se.Send(msg.Data); err != nil {
				slog.WarnContext(ctx, "subscribeLoop: message dropped", "sessionID", se.session.ID(), "err", err)
			}
		}
	}
}

func (se *SessionEndpoint) close() {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()
	se.session.Close()
	se.connection.Close("")
}

func (se *SessionEndpoint) leaveRoom(ctx context.Context) {
	if se.roomID.IsEmpty() {
		return
	}
	se.pubsub.Publish(ctx, RoomTopic(se.roomID), Message{
		SessionID: se.session.ID(),
		Data:      EncodeLeaveMessage(se.session.ID()),
	})
	slog.InfoContext(ctx, "session left room", "sessionID", se.session.ID(), "roomID", se.roomID)
	se.roomID = RoomID{}
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte) {
	header, payloadHeader, payload, err := ParseMessage(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse message", "sessionID", se.session.ID(), "err", err)
		return
	}
	if header.SessionID != se.session.ID().Bytes() {
		slog.WarnContext(ctx, "session ID mismatch", "expected", se.session.ID(), "got", SessionIDFromBytes(header.SessionID))
		return
	}

	switch payloadHeader.DataType {
	case DataTypeControl:
		se.handleControlMessage(ctx, ControlSubType(payloadHeader.SubType), data, payload)
	case DataTypeInput:
		// データメッセージをroom topicに転送
		if se.roomID.IsEmpty() {
			slog.WarnContext(ctx, "received data message before joining a room", "sessionID", se.session.ID())
			return
		}
		se.pubsub.Publish(ctx, RoomTopic(se.roomID), Message{
			SessionID: se.session.ID(),
			Data:      data,
		})
	default:
		slog.WarnContext(ctx, "unknown data type", "dataType", payloadHeader.DataType)
	}
}

func (se *SessionEndpoint) handleControlMessage(ctx context.Context, subType ControlSubType, data, payload []byte) {
	switch subType {
	case ControlSubTypeJoin:
		join, err := ParseJoinPayload(payload)
		if err != nil {
			slog.WarnContext(ctx, "failed to parse join message", "err", err)
			return
		}
		roomID := join.RoomID
		// RoomIDが空の場合、RoomManagerからデフォルトルームを取得
		if roomID.IsEmpty() {
			roomID, err = se.roomManager.GetRoom(ctx, se.session.ID())
			if err != nil {
				slog.ErrorContext(ctx, "failed to get default room", "err", err)
				return
			}
			slog.DebugContext(ctx, "auto-assigned room", "sessionID", se.session.ID(), "roomID", roomID)
		}
		if roomID != se.roomID {
			se.leaveRoom(ctx)
			se.roomID = roomID
			slog.InfoContext(ctx, "session joined room", "sessionID", se.session.ID(), "roomID", se.roomID)
		}
		// room topicにJoinメッセージをpublish（同じルームへの再送は座席の再要求になる）
		se.pubsub.Publish(ctx, RoomTopic(se.roomID), Message{SessionID: se.session.ID(), Data: data})
	case ControlSubTypeLeave:
		if se.roomID.IsEmpty() {
			slog.WarnContext(ctx, "session not in any room, cannot leave", "sessionID", se.session.ID())
			return
		}
		se.leaveRoom(ctx)
	case ControlSubTypePong:
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
	default:
		slog.WarnContext(ctx, "unknown control subtype", "subType", subType)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evPong:
		se.session.TouchPong()
	case evClose, evReadError, evWriteError:
		slog.DebugContext(ctx, "closing session", "sessionID", se.session.ID(), "event", ev.kind, "err", ev.err)
		se.close()
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
