package domain

import (
	"time"
)

type Command interface {
	RoomID() RoomID
}

// PostMessageCommand is one logical send attempt. CorrelationID is generated
// by the caller before the first attempt and reused on the fallback path.
type PostMessageCommand struct {
	Room          RoomID
	Sender        Profile
	Content       string
	CorrelationID string
}

func (p PostMessageCommand) RoomID() RoomID { return p.Room }

// GetMessagesCommand pages backwards through a room. Before is exclusive.
type GetMessagesCommand struct {
	Room   RoomID
	UserID UserID
	Before *time.Time
	Limit  int
}

func (p GetMessagesCommand) RoomID() RoomID { return p.Room }

// MarkReadCommand targets a single message or every message up to UpTo (inclusive).
type MarkReadCommand struct {
	Room      RoomID
	UserID    UserID
	MessageID *MessageID
	UpTo      *time.Time
}

func (p MarkReadCommand) RoomID() RoomID { return p.Room }

// MessagePage is a window of messages in ascending creation order.
type MessagePage struct {
	Messages   []Message
	NextBefore *time.Time
}

// NotificationQuery filters a user's notifications, newest first.
type NotificationQuery struct {
	UserID UserID
	Before *time.Time
	Read   *bool
	Limit  int
}
