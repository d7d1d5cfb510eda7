package domain

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatService は定期的にpingメッセージを送信する死活監視サービスです。
type HeartbeatService struct {
	pingInterval time.Duration
	sessionID    SessionID
	send         func([]byte) error
}

// NewHeartbeatService は新しいHeartbeatServiceを生成します。
// send はブロックせず、送信できない場合はエラーを返す必要があります。
func NewHeartbeatService(pingInterval time.Duration, sessionID SessionID, send func([]byte) error) *HeartbeatService {
	return &HeartbeatService{
		pingInterval: pingInterval,
		sessionID:    sessionID,
		send:         send,
	}
}

// Run はpingInterval間隔でpingメッセージを送信します。
// ctxがキャンセルされると終了します。pingIntervalが0以下の場合は何もしません。
func (h *HeartbeatService) Run(ctx context.Context) {
	if h.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	pingMsg := EncodePingMessage(h.sessionID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.send(pingMsg); err != nil {
				slog.WarnContext(ctx, "heartbeat: ping dropped", "sessionID", h.sessionID, "err", err)
				continue
			}
			slog.DebugContext(ctx, "heartbeat: ping sent", "sessionID", h.sessionID)
		}
	}
}
