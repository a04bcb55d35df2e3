package event

import "chat-relay/domain"

type AudienceKind int

const (
	RoomAudience AudienceKind = iota
	UserAudience
)

// Audience addresses a broadcast group: a room group or a personal group.
type Audience struct {
	Kind   AudienceKind
	RoomID domain.RoomID
	UserID domain.UserID
}

func ToRoom(roomID domain.RoomID) Audience {
	return Audience{Kind: RoomAudience, RoomID: roomID}
}

func ToUser(userID domain.UserID) Audience {
	return Audience{Kind: UserAudience, UserID: userID}
}

// Delivery is one event on its way to an audience. ExceptConn, when set,
// skips the originating connection (typing signals).
type Delivery struct {
	To         Audience
	ExceptConn string
	Event      DomainEvent
}
