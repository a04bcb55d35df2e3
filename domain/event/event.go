// Package event holds the closed set of real-time events: outbound payloads
// pushed to broadcast groups and inbound frames received from connections.
package event

import (
	"chat-relay/domain"
	"time"

	"github.com/samber/lo"
)

type Type string

const (
	MessageCreatedType      Type = "message:created"
	MessageReadType         Type = "message:read"
	TypingStartedType       Type = "typing:start"
	TypingStoppedType       Type = "typing:stop"
	PresenceListType        Type = "presence:list"
	PresenceOfflineType     Type = "presence:offline"
	RoomJoinedType          Type = "room:joined"
	RoomDeletedType         Type = "room:deleted"
	NotificationCreatedType Type = "notification:created"
	NotificationReadType    Type = "notification:read"
	ErrorType               Type = "error"
)

// DomainEvent is implemented only by the payload types of this package.
type DomainEvent interface {
	Type() Type
	isDomainEvent()
}

type Receipt struct {
	UserID domain.UserID `json:"userId"`
	At     time.Time     `json:"at"`
}

type MessageCreated struct {
	ID          domain.MessageID `json:"id"`
	RoomID      domain.RoomID    `json:"roomId"`
	SenderID    domain.UserID    `json:"senderId"`
	DisplayName string           `json:"displayName"`
	Content     string           `json:"content"`
	ClientID    string           `json:"clientId,omitempty"`
	Mentions    []domain.UserID  `json:"mentions"`
	CreatedAt   time.Time        `json:"createdAt"`
	ReadBy      []Receipt        `json:"readBy"`
}

type MessageRead struct {
	RoomID    domain.RoomID    `json:"roomId"`
	MessageID domain.MessageID `json:"messageId"`
	UserID    domain.UserID    `json:"userId"`
	At        time.Time        `json:"at"`
}

type Typing struct {
	RoomID      domain.RoomID `json:"roomId"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type TypingStarted struct{ Typing }

type TypingStopped struct{ Typing }

type PresenceList struct {
	RoomID domain.RoomID    `json:"roomId"`
	Users  []domain.Profile `json:"users"`
}

type PresenceOffline struct {
	RoomID domain.RoomID `json:"roomId"`
	UserID domain.UserID `json:"userId"`
}

type RoomJoined struct {
	RoomID   domain.RoomID `json:"roomId"`
	RoomName string        `json:"roomName"`
}

type RoomDeleted struct {
	RoomID   domain.RoomID `json:"roomId"`
	RoomName string        `json:"roomName"`
}

type NotificationCreated struct {
	ID         domain.NotificationID   `json:"id"`
	UserID     domain.UserID           `json:"userId"`
	Kind       domain.NotificationKind `json:"type"`
	RoomID     domain.RoomID           `json:"roomId"`
	FromUserID domain.UserID           `json:"fromUserId"`
	MessageID  *domain.MessageID       `json:"messageId,omitempty"`
	Read       bool                    `json:"read"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// AllNotifications is the id carried by NotificationRead after a mark-all.
const AllNotifications = "ALL"

type NotificationRead struct {
	ID string `json:"id"`
}

// Failure is pushed outside of any request, e.g. when a credential expires.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (MessageCreated) Type() Type      { return MessageCreatedType }
func (MessageRead) Type() Type         { return MessageReadType }
func (TypingStarted) Type() Type       { return TypingStartedType }
func (TypingStopped) Type() Type       { return TypingStoppedType }
func (PresenceList) Type() Type        { return PresenceListType }
func (PresenceOffline) Type() Type     { return PresenceOfflineType }
func (RoomJoined) Type() Type          { return RoomJoinedType }
func (RoomDeleted) Type() Type         { return RoomDeletedType }
func (NotificationCreated) Type() Type { return NotificationCreatedType }
func (NotificationRead) Type() Type    { return NotificationReadType }
func (Failure) Type() Type             { return ErrorType }

func (MessageCreated) isDomainEvent()      {}
func (MessageRead) isDomainEvent()         {}
func (TypingStarted) isDomainEvent()       {}
func (TypingStopped) isDomainEvent()       {}
func (PresenceList) isDomainEvent()        {}
func (PresenceOffline) isDomainEvent()     {}
func (RoomJoined) isDomainEvent()          {}
func (RoomDeleted) isDomainEvent()         {}
func (NotificationCreated) isDomainEvent() {}
func (NotificationRead) isDomainEvent()    {}
func (Failure) isDomainEvent()             {}

func ToMessageCreated(m domain.Message, displayName string) MessageCreated {
	return MessageCreated{
		ID:          m.ID,
		RoomID:      m.RoomID,
		SenderID:    m.SenderID,
		DisplayName: displayName,
		Content:     m.Content,
		ClientID:    m.CorrelationID,
		Mentions:    lo.Ternary(m.Mentions == nil, []domain.UserID{}, m.Mentions),
		CreatedAt:   m.CreatedAt,
		ReadBy: lo.Map(m.ReadBy, func(r domain.ReadReceipt, _ int) Receipt {
			return Receipt{UserID: r.UserID, At: r.At}
		}),
	}
}

func ToNotificationCreated(n domain.Notification) NotificationCreated {
	return NotificationCreated{
		ID:         n.ID,
		UserID:     n.UserID,
		Kind:       n.Kind,
		RoomID:     n.RoomID,
		FromUserID: n.FromUserID,
		MessageID:  n.MessageID,
		Read:       n.Read,
		CreatedAt:  n.CreatedAt,
	}
}
