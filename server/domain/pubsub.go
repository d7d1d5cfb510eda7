package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

//go:generate go tool mockgen -destination=./mocks/pubsub_mock.go -package=mocks . PubSub,RoomManager

// Topic は PubSub の宛先です。
type Topic string

// SessionTopic はセッション宛のトピックを返します。
func SessionTopic(id SessionID) Topic {
	return Topic("session:" + id.String())
}

// RoomTopic はルーム宛のトピックを返します。
func RoomTopic(id RoomID) Topic {
	return Topic("room:" + id.String())
}

// Message は PubSub で配送される1メッセージです。
type Message struct {
	SessionID SessionID // 送信元。サーバー発のメッセージではゼロ値
	Data      []byte
}

// PubSub はセッションとルームの間のメッセージ配送を担当します。
type PubSub interface {
	Publish(ctx context.Context, topic Topic, msg Message)
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
}

// RoomManager はセッションが参加するルームを決定します。
type RoomManager interface {
	GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error)
}

const subscriberBuffer = 256

// SimplePubSub はプロセス内で完結する PubSub 実装です。
// 購読者のバッファが満杯の場合、メッセージは破棄されます。
type SimplePubSub struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Message
}

var _ PubSub = (*SimplePubSub)(nil)

func NewSimplePubSub() *SimplePubSub {
	return &SimplePubSub{
		subs: make(map[Topic][]chan Message),
	}
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs[topic] {
		select {
		case ch <- msg:
		default:
			slog.WarnContext(ctx, "pubsub: subscriber full, message dropped", "topic", topic)
		}
	}
}

func (p *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, subscriberBuffer)
	p.mu.Lock()
	p.subs[topic] = append(p.subs[topic], ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe は購読を解除しチャネルを閉じます。
func (p *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.subs[topic]
	for i, c := range subs {
		if c == ch {
			close(c)
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(p.subs, topic)
		return
	}
	p.subs[topic] = subs
}

var ErrNoRoom = errors.New("no room available")

// SimpleRoomManager は全セッションを単一のデフォルトルームに割り当てます。
type SimpleRoomManager struct {
	defaultRoom RoomID
}

var _ RoomManager = (*SimpleRoomManager)(nil)

func NewSimpleRoomManager(defaultRoom RoomID) *SimpleRoomManager {
	return &SimpleRoomManager{defaultRoom: defaultRoom}
}

func (m *SimpleRoomManager) GetRoom(ctx context.Context, sessionID SessionID) (RoomID, error) {
	if m.defaultRoom.IsEmpty() {
		return RoomID{}, ErrNoRoom
	}
	return m.defaultRoom, nil
}
