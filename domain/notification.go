package domain

import "time"

type NotificationID string

type NotificationKind string

const (
	NotificationMention     NotificationKind = "mention"
	NotificationInvite      NotificationKind = "invite"
	NotificationRoomDeleted NotificationKind = "room_deleted"
)

// Notification is a per-user record. Only the Read flag changes after creation.
type Notification struct {
	ID         NotificationID
	UserID     UserID
	Kind       NotificationKind
	RoomID     RoomID
	FromUserID UserID
	MessageID  *MessageID
	Read       bool
	CreatedAt  time.Time
}
