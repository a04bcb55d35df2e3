package repositories

import (
	"chat-relay/domain"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(room domain.RoomID, sender domain.UserID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:        domain.MessageID(uuid.NewString()),
		RoomID:    room,
		SenderID:  sender,
		Content:   content,
		CreatedAt: at,
	}
}
