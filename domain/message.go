// Package domain contains core concepts of the chat system.
// This file defines Message records and the read-receipt rules.
// A message is immutable except for the append-only receipt list.
package domain

import (
	"time"

	"github.com/samber/lo"
)

type MessageID string

type ReadReceipt struct {
	UserID UserID
	At     time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID            MessageID
	RoomID        RoomID
	SenderID      UserID
	Content       string
	CorrelationID string
	Mentions      []UserID
	ReadBy        []ReadReceipt
	CreatedAt     time.Time
}

func (m Message) HasRead(userID UserID) bool {
	return lo.ContainsBy(m.ReadBy, func(r ReadReceipt) bool { return r.UserID == userID })
}

// AddReceipt appends a receipt for userID unless userID is the sender or
// already has one. It reports whether the receipt list grew.
func (m *Message) AddReceipt(userID UserID, at time.Time) bool {
	if userID == m.SenderID || m.HasRead(userID) {
		return false
	}
	m.ReadBy = append(m.ReadBy, ReadReceipt{UserID: userID, At: at})
	return true
}
