// Package chatrelay is the Go side of chat_relay.proto. Messages are plain
// structs carried by the JSON codec registered in codec.go.
package chatrelay

import "time"

type Receipt struct {
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

type Message struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"roomId"`
	SenderID    string    `json:"senderId"`
	DisplayName string    `json:"displayName"`
	Content     string    `json:"content"`
	ClientID    string    `json:"clientId,omitempty"`
	Mentions    []string  `json:"mentions"`
	CreatedAt   time.Time `json:"createdAt"`
	ReadBy      []Receipt `json:"readBy"`
}

type Room struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CreatedBy     string     `json:"createdBy"`
	Members       []string   `json:"members"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Type       string    `json:"type"`
	RoomID     string    `json:"roomId"`
	FromUserID string    `json:"fromUserId"`
	MessageID  *string   `json:"messageId,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SendMessageRequest struct {
	RoomID   string `json:"roomId" validate:"required"`
	Content  string `json:"content"`
	ClientID string `json:"clientId,omitempty" validate:"omitempty,uuid4"`
}

type SendMessageResponse struct {
	Message *Message `json:"message"`
}

type ListMessagesRequest struct {
	RoomID string     `json:"roomId"`
	Before *time.Time `json:"before,omitempty"`
	Limit  int32      `json:"limit,omitempty" validate:"gte=0"`
}

type ListMessagesResponse struct {
	Messages   []*Message `json:"messages"`
	NextBefore *time.Time `json:"nextBefore,omitempty"`
}

type MarkReadRequest struct {
	RoomID        string     `json:"roomId" validate:"required"`
	MessageID     *string    `json:"messageId,omitempty" validate:"required_without=UpToTimestamp"`
	UpToTimestamp *time.Time `json:"upToTimestamp,omitempty" validate:"required_without=MessageID"`
}

type MarkReadResponse struct {
	Updated int32 `json:"updated"`
}

type ListNotificationsRequest struct {
	Before *time.Time `json:"before,omitempty"`
	Read   *bool      `json:"read,omitempty"`
	Limit  int32      `json:"limit,omitempty" validate:"gte=0"`
}

type ListNotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}

type MarkNotificationReadRequest struct {
	ID string `json:"id" validate:"required"`
}

type MarkNotificationReadResponse struct {
	Notification *Notification `json:"notification"`
}

type MarkAllNotificationsReadRequest struct{}

type MarkAllNotificationsReadResponse struct {
	Updated int32 `json:"updated"`
}

type CreateRoomRequest struct {
	Name string `json:"name" validate:"required"`
}

type CreateRoomResponse struct {
	Room *Room `json:"room"`
}

type ListRoomsRequest struct{}

type ListRoomsResponse struct {
	Rooms []*Room `json:"rooms"`
}

type InviteMemberRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId" validate:"required"`
}

type InviteMemberResponse struct {
	Room *Room `json:"room"`
}

type DeleteRoomRequest struct {
	RoomID string `json:"roomId"`
}

type DeleteRoomResponse struct {
	Success bool `json:"success"`
}

// Zero days or limit take the server default.
type TopActiveRoomsRequest struct {
	Days  int32 `json:"days,omitempty" validate:"omitempty,min=1,max=90"`
	Limit int32 `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
}

type RoomActivity struct {
	RoomID        string    `json:"roomId"`
	MessageCount  int32     `json:"messageCount"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

type TopActiveRoomsResponse struct {
	Rooms []*RoomActivity `json:"rooms"`
}
