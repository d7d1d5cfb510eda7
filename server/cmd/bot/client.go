package main

import (
	"log/slog"

	"shooter/server/application"
	"shooter/server/domain"
)

// duelBot はサーバーからのメッセージに応答するボットの状態です。
type duelBot struct {
	logger     *slog.Logger
	controller application.BotController

	sessionID domain.SessionID
	seq       uint16

	playing bool
	self    application.Side
	config  application.GameConfig
}

func newDuelBot(logger *slog.Logger) *duelBot {
	return &duelBot{logger: logger}
}

// handle は受信メッセージを処理し、送り返すメッセージを返します。
func (b *duelBot) handle(data []byte) ([][]byte, error) {
	header, payloadHeader, payload, err := domain.ParseMessage(data)
	if err != nil {
		return nil, err
	}

	switch payloadHeader.DataType {
	case domain.DataTypeControl:
		switch domain.ControlSubType(payloadHeader.SubType) {
		case domain.ControlSubTypeAssign:
			b.sessionID = domain.SessionIDFromBytes(header.SessionID)
			b.logger.Info("session assigned", "sessionID", b.sessionID)
			return [][]byte{b.join()}, nil
		case domain.ControlSubTypePing:
			return [][]byte{b.next(domain.ControlSubTypePong)}, nil
		}

	case domain.DataTypeMatch:
		return b.handleMatch(domain.MatchSubType(payloadHeader.SubType), payload)
	}
	return nil, nil
}

func (b *duelBot) handleMatch(subType domain.MatchSubType, payload []byte) ([][]byte, error) {
	switch subType {
	case domain.MatchSubTypeStart:
		start, err := domain.ParseMatchStartPayload(payload)
		if err != nil {
			return nil, err
		}
		if start.Seat == domain.SeatNone {
			return nil, nil
		}
		b.playing = true
		b.self = application.Side(start.Seat)
		b.config = application.GameConfig{
			FireCooldown: start.FireCooldown,
			BulletSpeed:  start.BulletSpeed,
			PlayerRadius: start.PlayerRadius,
			BulletRadius: start.BulletRadius,
			Distance:     start.Distance,
		}
		if b.controller == nil {
			b.controller = application.NewRuleBotController(start.Distance)
		}
		b.logger.Info("match started", "side", b.self)

	case domain.MatchSubTypeState:
		if !b.playing {
			return nil, nil
		}
		state, err := domain.ParseMatchStatePayload(payload)
		if err != nil {
			return nil, err
		}
		snap, leads := application.DecodeSnapshot(state)
		action := b.controller.Decide(application.BotView{
			Self:     b.self,
			Snapshot: snap,
			Leads:    leads,
			Config:   b.config,
		})
		if action.Fire {
			msg := domain.EncodeInputMessage(b.sessionID, b.seq, domain.KeyFire)
			b.seq++
			return [][]byte{msg}, nil
		}

	case domain.MatchSubTypeEnd:
		end, err := domain.ParseMatchEndPayload(payload)
		if err != nil {
			return nil, err
		}
		b.playing = false
		b.logger.Info("match ended", "winner", end.Winner, "now", end.Now, "loops", end.Loops)
		// 座席は試合ごとに解放されるので、観戦者も含めて取り直す
		return [][]byte{b.join()}, nil
	}
	return nil, nil
}

func (b *duelBot) join() []byte {
	msg := domain.EncodeJoinMessage(b.sessionID, b.seq, domain.RoomID{})
	b.seq++
	return msg
}

func (b *duelBot) next(subType domain.ControlSubType) []byte {
	msg := domain.EncodeControlMessage(b.sessionID, b.seq, subType)
	b.seq++
	return msg
}
