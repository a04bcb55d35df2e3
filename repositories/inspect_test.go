package repositories

import (
	"chat-relay/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()
	message := newMessage("room-1", "alice", "hello", at)

	record, err := Describe(string(messageKey(message)), encodeMessage(message))
	req.NoError(err)
	req.Equal("MESSAGE", record.Kind)
	req.Equal(string(message.ID), record.EntityID)
	req.True(record.At.Equal(at))
	req.Contains(record.Detail, "hello")

	room := domain.NewRoom("room-1", "general", "alice", at)
	record, err = Describe(string(roomKey(room.ID)), encodeRoom(room))
	req.NoError(err)
	req.Equal("ROOM", record.Kind)

	record, err = Describe(string(messageIDKey(message.ID)), messageKey(message))
	req.NoError(err)
	req.Equal("INDEX", record.Kind)
	req.Equal(string(messageKey(message)), record.Detail)

	record, err = Describe("other:1", []byte("xyz"))
	req.NoError(err)
	req.Equal("UNKNOWN", record.Kind)
}
