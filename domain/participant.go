// Package domain contains core concepts of the chat system.
// This file defines participants as seen by the delivery core.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Profile is the minimal display profile cached per session and per presence entry.
type Profile struct {
	ID          UserID `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// User is a directory entry.
type User struct {
	ID          UserID
	Username    string
	DisplayName string
	CreatedAt   time.Time
}

func (u User) Profile() Profile {
	name := u.DisplayName
	if name == "" {
		name = u.Username
	}
	return Profile{ID: u.ID, Username: u.Username, DisplayName: name}
}

// Session is owned by one connection. It ends on disconnect or at ExpiresAt.
type Session struct {
	ConnID    string
	Profile   Profile
	ExpiresAt time.Time
}

func (s Session) UserID() UserID { return s.Profile.ID }
