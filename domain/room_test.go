package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoom_CreatorIsMember(t *testing.T) {
	req := require.New(t)
	room := NewRoom("r1", "general", "alice", time.Now())
	req.True(room.IsMember("alice"))
	req.False(room.IsMember("bob"))
}

func TestRoom_AddMembers_Only_Returns_New_Ones(t *testing.T) {
	req := require.New(t)
	room := NewRoom("r1", "general", "alice", time.Now())

	// When alice, bob and bob again are added
	added := room.AddMembers("alice", "bob", "bob")

	// Then only bob is new
	req.Equal([]UserID{"bob"}, added)
	req.Equal([]UserID{"alice", "bob"}, room.Members)
}

func TestRoom_Touch_Never_Goes_Backwards(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()
	room := NewRoom("r1", "general", "alice", at)

	room.Touch(at.Add(time.Minute))
	room.Touch(at)

	req.Equal(at.Add(time.Minute), room.Activity())
}

func TestMessage_AddReceipt(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()
	msg := Message{ID: "m1", RoomID: "r1", SenderID: "alice", Content: "hi", CreatedAt: at}

	// Then the sender never gets a receipt
	req.False(msg.AddReceipt("alice", at))
	// And a reader gets exactly one
	req.True(msg.AddReceipt("bob", at))
	req.False(msg.AddReceipt("bob", at.Add(time.Second)))
	req.Len(msg.ReadBy, 1)
	req.True(msg.HasRead("bob"))
}
