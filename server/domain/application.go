package domain

import "context"

//go:generate go tool mockgen -destination=./mocks/application_mock.go -package=mocks . Application,Broadcaster

// Broadcaster はルームに参加しているセッションへの送信口です。
type Broadcaster interface {
	Broadcast(ctx context.Context, data []byte)
	SendTo(ctx context.Context, sessionID SessionID, data []byte)
}

// Application はルームに注入されるゲームロジックです。
// 全てのメソッドはルームの tick と同じゴルーチンから呼ばれます。
type Application interface {
	Join(ctx context.Context, sessionID SessionID) error
	Leave(ctx context.Context, sessionID SessionID)
	HandleMessage(ctx context.Context, sessionID SessionID, data []byte) error
	// Tick は前回の tick から delta ミリ秒経過したことを通知します。
	Tick(ctx context.Context, delta int64, out Broadcaster)
}
