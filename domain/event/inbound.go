package event

import (
	"chat-relay/domain"
	"encoding/json"
	"fmt"
	"time"
)

const (
	JoinRoomType    Type = "join-room"
	LeaveRoomType   Type = "leave-room"
	NewMessageType  Type = "new-message"
	MarkReadType    Type = "message:read"
	TypingStartType Type = "typing:start"
	TypingStopType  Type = "typing:stop"
)

// Inbound is a frame received from a connection. Only the types of this
// package implement it.
type Inbound interface {
	Type() Type
	isInbound()
}

// Frames carrying only a room id are not tag validated: an empty id is
// reported as INVALID_ROOM_ID by the room router.
type JoinRoom struct {
	RoomID domain.RoomID `json:"roomId"`
}

type LeaveRoom struct {
	RoomID domain.RoomID `json:"roomId"`
}

type NewMessage struct {
	RoomID   domain.RoomID `json:"roomId" validate:"required"`
	Content  string        `json:"content"`
	ClientID string        `json:"clientId,omitempty" validate:"omitempty,uuid4"`
}

type MarkRead struct {
	RoomID        domain.RoomID     `json:"roomId" validate:"required"`
	MessageID     *domain.MessageID `json:"messageId,omitempty" validate:"required_without=UpToTimestamp"`
	UpToTimestamp *time.Time        `json:"upToTimestamp,omitempty" validate:"required_without=MessageID"`
}

type TypingStart struct {
	RoomID domain.RoomID `json:"roomId"`
}

type TypingStop struct {
	RoomID domain.RoomID `json:"roomId"`
}

func (JoinRoom) Type() Type    { return JoinRoomType }
func (LeaveRoom) Type() Type   { return LeaveRoomType }
func (NewMessage) Type() Type  { return NewMessageType }
func (MarkRead) Type() Type    { return MarkReadType }
func (TypingStart) Type() Type { return TypingStartType }
func (TypingStop) Type() Type  { return TypingStopType }

func (JoinRoom) isInbound()    {}
func (LeaveRoom) isInbound()   {}
func (NewMessage) isInbound()  {}
func (MarkRead) isInbound()    {}
func (TypingStart) isInbound() {}
func (TypingStop) isInbound()  {}

// InboundTypes lists every frame a connection may send.
var InboundTypes = []Type{
	JoinRoomType, LeaveRoomType, NewMessageType, MarkReadType, TypingStartType, TypingStopType,
}

// DecodeInbound turns a frame payload into its typed variant.
func DecodeInbound(t Type, payload json.RawMessage) (Inbound, error) {
	var (
		in  Inbound
		err error
	)
	switch t {
	case JoinRoomType:
		in, err = decode[JoinRoom](payload)
	case LeaveRoomType:
		in, err = decode[LeaveRoom](payload)
	case NewMessageType:
		in, err = decode[NewMessage](payload)
	case MarkReadType:
		in, err = decode[MarkRead](payload)
	case TypingStartType:
		in, err = decode[TypingStart](payload)
	case TypingStopType:
		in, err = decode[TypingStop](payload)
	default:
		return nil, fmt.Errorf("unknown frame type %q", t)
	}
	return in, err
}

func decode[T Inbound](payload json.RawMessage) (Inbound, error) {
	var v T
	if len(payload) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}
