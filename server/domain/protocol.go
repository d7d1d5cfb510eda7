package domain

import (
	"encoding/binary"
	"errors"
	"time"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	ProtocolVersion   = 1
	HeaderSize        = 25
	PayloadHeaderSize = 2
	JoinPayloadSize   = 16
)

// Header はメッセージヘッダー (25バイト)
//
//	version    u8      (1)
//	sessionID  [16]byte (16)
//	seq        u16     (2)
//	length     u16     (2)  - ペイロードヘッダーを含むペイロード長
//	timestamp  u32     (4)
type Header struct {
	Version   uint8
	SessionID [16]byte
	Seq       uint16
	Length    uint16
	Timestamp uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeInput   DataType = 1
	DataTypeControl DataType = 4
	DataTypeMatch   DataType = 6
)

// ControlSubType はcontrolメッセージのサブタイプ
type ControlSubType uint8

const (
	ControlSubTypeJoin   ControlSubType = 1
	ControlSubTypeLeave  ControlSubType = 2
	ControlSubTypePing   ControlSubType = 4
	ControlSubTypePong   ControlSubType = 5
	ControlSubTypeAssign ControlSubType = 7
)

// MatchSubType はmatchメッセージのサブタイプ
type MatchSubType uint8

const (
	MatchSubTypeStart MatchSubType = 1
	MatchSubTypeState MatchSubType = 2
	MatchSubTypeEnd   MatchSubType = 3
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1)
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidPayloadSize = errors.New("invalid payload size")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sessionID [16]byte
	copy(sessionID[:], data[1:17])

	return &Header{
		Version:   data[0],
		SessionID: sessionID,
		Seq:       byteOrder.Uint16(data[17:19]),
		Length:    byteOrder.Uint16(data[19:21]),
		Timestamp: byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	h.put(data)
	return data
}

func (h *Header) put(data []byte) {
	data[0] = h.Version
	copy(data[1:17], h.SessionID[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Timestamp)
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	return []byte{byte(p.DataType), p.SubType}
}

// ParseMessage はメッセージ全体をヘッダー、ペイロードヘッダー、ペイロード本体に分割する
func ParseMessage(data []byte) (*Header, *PayloadHeader, []byte, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, nil, nil, err
	}
	rest := data[HeaderSize:]
	if len(rest) < int(header.Length) {
		return nil, nil, nil, ErrInvalidPayloadSize
	}
	payloadHeader, err := ParsePayloadHeader(rest)
	if err != nil {
		return nil, nil, nil, err
	}
	return header, payloadHeader, rest[PayloadHeaderSize:header.Length], nil
}

// EncodeMessage はヘッダー、ペイロードヘッダー、ペイロードを1つのメッセージにまとめる
func EncodeMessage(sessionID SessionID, seq uint16, dataType DataType, subType uint8, payload []byte) []byte {
	length := PayloadHeaderSize + len(payload)
	header := Header{
		Version:   ProtocolVersion,
		SessionID: sessionID.Bytes(),
		Seq:       seq,
		Length:    uint16(length),
		Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
	}

	data := make([]byte, HeaderSize+length)
	header.put(data)
	data[HeaderSize] = byte(dataType)
	data[HeaderSize+1] = subType
	copy(data[HeaderSize+PayloadHeaderSize:], payload)
	return data
}

// EncodeControlMessage はペイロードを持たない制御メッセージをエンコードする
func EncodeControlMessage(sessionID SessionID, seq uint16, subType ControlSubType) []byte {
	return EncodeMessage(sessionID, seq, DataTypeControl, uint8(subType), nil)
}

// EncodeAssignMessage はセッションID通知メッセージをエンコードする
// クライアントに自分のセッションIDを通知するために使用
func EncodeAssignMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypeAssign)
}

// EncodeLeaveMessage はルーム離脱メッセージをエンコードする
// 異常切断時にclose()からRoom離脱を通知するために使用
func EncodeLeaveMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypeLeave)
}

// EncodePingMessage はPingメッセージをエンコードする
// クライアントに死活確認のpingを送信するために使用
func EncodePingMessage(sessionID SessionID) []byte {
	return EncodeControlMessage(sessionID, 0, ControlSubTypePing)
}

// EncodeJoinMessage はルーム参加メッセージをエンコードする
// roomIDがゼロ値の場合はサーバーがルームを割り当てる
func EncodeJoinMessage(sessionID SessionID, seq uint16, roomID RoomID) []byte {
	payload := JoinPayload{RoomID: roomID}
	return EncodeMessage(sessionID, seq, DataTypeControl, uint8(ControlSubTypeJoin), payload.Encode())
}

// JoinPayload はルーム参加メッセージのペイロード (16バイト)
//
//	roomID  [16]byte  - ルームID (UUID)
type JoinPayload struct {
	RoomID RoomID
}

var ErrInvalidJoinPayloadSize = errors.New("invalid join payload size")

// ParseJoinPayload はバイト列からJoinPayloadをパースする
func ParseJoinPayload(data []byte) (*JoinPayload, error) {
	if len(data) < JoinPayloadSize {
		return nil, ErrInvalidJoinPayloadSize
	}

	var roomID RoomID
	copy(roomID[:], data[:JoinPayloadSize])

	return &JoinPayload{
		RoomID: roomID,
	}, nil
}

// Encode はJoinPayloadをバイト列にエンコードする
func (j *JoinPayload) Encode() []byte {
	data := make([]byte, JoinPayloadSize)
	copy(data, j.RoomID[:])
	return data
}

// InputPayloadSize はInputPayloadのサイズ
const InputPayloadSize = 4

// KeyFire は発射キーのビット
const KeyFire uint32 = 1 << 0

// InputPayload はユーザー入力 (4バイト)
//
//	keyMask uint32 (4) - キー入力ビットマスク
type InputPayload struct {
	KeyMask uint32
}

var ErrInvalidInputPayloadSize = errors.New("invalid input payload size")

// ParseInputPayload はバイト列からInputPayloadをパースする
func ParseInputPayload(data []byte) (*InputPayload, error) {
	if len(data) < InputPayloadSize {
		return nil, ErrInvalidInputPayloadSize
	}

	return &InputPayload{
		KeyMask: byteOrder.Uint32(data[0:4]),
	}, nil
}

// Encode はInputPayloadをバイト列にエンコードする
func (i *InputPayload) Encode() []byte {
	data := make([]byte, InputPayloadSize)
	byteOrder.PutUint32(data[0:4], i.KeyMask)
	return data
}

// Pressed は key が押されているかを返す
func (i *InputPayload) Pressed(key uint32) bool {
	return i.KeyMask&key != 0
}

// EncodeInputMessage は入力メッセージをエンコードする
func EncodeInputMessage(sessionID SessionID, seq uint16, keyMask uint32) []byte {
	payload := InputPayload{KeyMask: keyMask}
	return EncodeMessage(sessionID, seq, DataTypeInput, 0, payload.Encode())
}
