package domain

import (
	"errors"
	"math"
)

// Seat はルーム内の座席番号です。
type Seat uint8

const (
	SeatA    Seat = 0
	SeatB    Seat = 1
	SeatNone Seat = 0xFF // 観戦者、または勝者なし
)

const (
	MatchStartPayloadSize = 41
	CombatantPayloadSize  = 48
	MatchStatePayloadSize = 17 + 2*CombatantPayloadSize
	MatchEndPayloadSize   = 17
)

var (
	ErrInvalidMatchStartSize = errors.New("invalid match start payload size")
	ErrInvalidMatchStateSize = errors.New("invalid match state payload size")
	ErrInvalidMatchEndSize   = errors.New("invalid match end payload size")
)

// MatchStartPayload は試合開始時に各プレイヤーへ送る試合定数 (41バイト)
//
//	seat          u8  (1)  - 受信者の座席
//	fireCooldown  i64 (8)  - ms
//	bulletSpeed   f64 (8)  - units/s
//	playerRadius  f64 (8)
//	bulletRadius  f64 (8)
//	distance      f64 (8)
type MatchStartPayload struct {
	Seat         Seat
	FireCooldown int64
	BulletSpeed  float64
	PlayerRadius float64
	BulletRadius float64
	Distance     float64
}

func ParseMatchStartPayload(data []byte) (*MatchStartPayload, error) {
	if len(data) < MatchStartPayloadSize {
		return nil, ErrInvalidMatchStartSize
	}
	return &MatchStartPayload{
		Seat:         Seat(data[0]),
		FireCooldown: int64(byteOrder.Uint64(data[1:9])),
		BulletSpeed:  getFloat64(data[9:17]),
		PlayerRadius: getFloat64(data[17:25]),
		BulletRadius: getFloat64(data[25:33]),
		Distance:     getFloat64(data[33:41]),
	}, nil
}

func (m *MatchStartPayload) Encode() []byte {
	data := make([]byte, MatchStartPayloadSize)
	data[0] = byte(m.Seat)
	byteOrder.PutUint64(data[1:9], uint64(m.FireCooldown))
	putFloat64(data[9:17], m.BulletSpeed)
	putFloat64(data[17:25], m.PlayerRadius)
	putFloat64(data[25:33], m.BulletRadius)
	putFloat64(data[33:41], m.Distance)
	return data
}

// CombatantPayload は1プレイヤー分の状態 (48バイト)
//
//	id            u64 (8)
//	x             f64 (8)
//	direction     i8  (1)
//	ticks         i64 (8)
//	bulletsFired  u32 (4)
//	lastFire      i64 (8)  - 未発射は -1
//	outcome       u8  (1)
//	bullets       u16 (2)  - 飛行中の弾丸数
//	leadX         f64 (8)  - 先頭の弾丸の位置 (bullets==0 のとき 0)
type CombatantPayload struct {
	ID           uint64
	X            float64
	Direction    int8
	Ticks        int64
	BulletsFired uint32
	LastFire     int64
	Outcome      uint8
	Bullets      uint16
	LeadX        float64
}

func parseCombatantPayload(data []byte) CombatantPayload {
	return CombatantPayload{
		ID:           byteOrder.Uint64(data[0:8]),
		X:            getFloat64(data[8:16]),
		Direction:    int8(data[16]),
		Ticks:        int64(byteOrder.Uint64(data[17:25])),
		BulletsFired: byteOrder.Uint32(data[25:29]),
		LastFire:     int64(byteOrder.Uint64(data[29:37])),
		Outcome:      data[37],
		Bullets:      byteOrder.Uint16(data[38:40]),
		LeadX:        getFloat64(data[40:48]),
	}
}

func (c *CombatantPayload) put(data []byte) {
	byteOrder.PutUint64(data[0:8], c.ID)
	putFloat64(data[8:16], c.X)
	data[16] = byte(c.Direction)
	byteOrder.PutUint64(data[17:25], uint64(c.Ticks))
	byteOrder.PutUint32(data[25:29], c.BulletsFired)
	byteOrder.PutUint64(data[29:37], uint64(c.LastFire))
	data[37] = c.Outcome
	byteOrder.PutUint16(data[38:40], c.Bullets)
	putFloat64(data[40:48], c.LeadX)
}

// MatchStatePayload は試合状態のスナップショット (113バイト)
//
//	now         i64 (8)  - 累積シミュレーション時間 (ms)
//	loops       u64 (8)
//	ended       u8  (1)
//	combatants  [2]CombatantPayload (96) - 座席A, 座席Bの順
type MatchStatePayload struct {
	Now        int64
	Loops      uint64
	Ended      bool
	Combatants [2]CombatantPayload
}

func ParseMatchStatePayload(data []byte) (*MatchStatePayload, error) {
	if len(data) < MatchStatePayloadSize {
		return nil, ErrInvalidMatchStateSize
	}
	p := &MatchStatePayload{
		Now:   int64(byteOrder.Uint64(data[0:8])),
		Loops: byteOrder.Uint64(data[8:16]),
		Ended: data[16] != 0,
	}
	offset := 17
	for i := range p.Combatants {
		p.Combatants[i] = parseCombatantPayload(data[offset : offset+CombatantPayloadSize])
		offset += CombatantPayloadSize
	}
	return p, nil
}

func (m *MatchStatePayload) Encode() []byte {
	data := make([]byte, MatchStatePayloadSize)
	byteOrder.PutUint64(data[0:8], uint64(m.Now))
	byteOrder.PutUint64(data[8:16], m.Loops)
	if m.Ended {
		data[16] = 1
	}
	offset := 17
	for i := range m.Combatants {
		m.Combatants[i].put(data[offset : offset+CombatantPayloadSize])
		offset += CombatantPayloadSize
	}
	return data
}

// MatchEndPayload は試合結果 (17バイト)
//
//	winner  u8  (1)  - 勝者の座席。途中離脱で中断した場合は SeatNone
//	now     i64 (8)
//	loops   u64 (8)
type MatchEndPayload struct {
	Winner Seat
	Now    int64
	Loops  uint64
}

func ParseMatchEndPayload(data []byte) (*MatchEndPayload, error) {
	if len(data) < MatchEndPayloadSize {
		return nil, ErrInvalidMatchEndSize
	}
	return &MatchEndPayload{
		Winner: Seat(data[0]),
		Now:    int64(byteOrder.Uint64(data[1:9])),
		Loops:  byteOrder.Uint64(data[9:17]),
	}, nil
}

func (m *MatchEndPayload) Encode() []byte {
	data := make([]byte, MatchEndPayloadSize)
	data[0] = byte(m.Winner)
	byteOrder.PutUint64(data[1:9], uint64(m.Now))
	byteOrder.PutUint64(data[9:17], m.Loops)
	return data
}

// EncodeMatchMessage はサーバー発のmatchメッセージをエンコードする
func EncodeMatchMessage(subType MatchSubType, payload []byte) []byte {
	return EncodeMessage(SessionID{}, 0, DataTypeMatch, uint8(subType), payload)
}

func getFloat64(data []byte) float64 {
	return math.Float64frombits(byteOrder.Uint64(data))
}

func putFloat64(data []byte, v float64) {
	byteOrder.PutUint64(data, math.Float64bits(v))
}
