package domain

import (
	"time"

	"github.com/samber/lo"
)

type RoomID string

type UserID string

// Room is the membership record read and grown by the delivery core.
// The creator is always a member.
type Room struct {
	ID            RoomID
	Name          string
	CreatedBy     UserID
	Members       []UserID
	CreatedAt     time.Time
	LastMessageAt *time.Time
}

func NewRoom(id RoomID, name string, createdBy UserID, at time.Time) Room {
	return Room{
		ID:        id,
		Name:      name,
		CreatedBy: createdBy,
		Members:   []UserID{createdBy},
		CreatedAt: at,
	}
}

func (r Room) IsMember(userID UserID) bool {
	return lo.Contains(r.Members, userID)
}

// AddMembers appends the users that are not yet members and returns them.
func (r *Room) AddMembers(userIDs ...UserID) []UserID {
	var added []UserID
	for _, id := range lo.Uniq(userIDs) {
		if r.IsMember(id) {
			continue
		}
		r.Members = append(r.Members, id)
		added = append(added, id)
	}
	return added
}

// Touch moves the last activity marker forward, never backwards.
func (r *Room) Touch(at time.Time) {
	if r.LastMessageAt == nil || at.After(*r.LastMessageAt) {
		r.LastMessageAt = lo.ToPtr(at)
	}
}

// Activity is the instant used to order a user's room list.
func (r Room) Activity() time.Time {
	if r.LastMessageAt != nil {
		return *r.LastMessageAt
	}
	return time.Time{}
}

// RoomActivity is the message count of one room over a time window.
type RoomActivity struct {
	RoomID        RoomID
	MessageCount  int
	LastMessageAt time.Time
}
