package domain

import "github.com/google/uuid"

// SessionID は論理セッションの識別子です。
type SessionID uuid.UUID

func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// SessionIDFromBytes はワイヤ上の16バイトから SessionID を復元します。
func SessionIDFromBytes(b [16]byte) SessionID {
	return SessionID(b)
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

func (id SessionID) Bytes() [16]byte {
	return id
}

func (id SessionID) IsEmpty() bool {
	return id == SessionID{}
}

// RoomID はルームの識別子です。ゼロ値は「未指定」を意味します。
type RoomID uuid.UUID

func NewRoomID() RoomID {
	return RoomID(uuid.New())
}

// ParseRoomID は文字列表現の UUID を RoomID に変換します。
func ParseRoomID(s string) (RoomID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RoomID{}, err
	}
	return RoomID(id), nil
}

func (id RoomID) String() string {
	return uuid.UUID(id).String()
}

func (id RoomID) IsEmpty() bool {
	return id == RoomID{}
}
