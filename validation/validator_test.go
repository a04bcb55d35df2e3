package validation

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestStruct_Inbound_Frames(t *testing.T) {
	tests := []struct {
		name    string
		frame   any
		wantErr bool
	}{
		{"message without room", event.NewMessage{Content: "hi"}, true},
		{"join with room", event.JoinRoom{RoomID: "r1"}, false},
		{"message with uuid4 client id", event.NewMessage{RoomID: "r1", Content: "hi", ClientID: uuid.NewString()}, false},
		{"message without client id", event.NewMessage{RoomID: "r1", Content: "hi"}, false},
		{"message with bad client id", event.NewMessage{RoomID: "r1", Content: "hi", ClientID: "abc"}, true},
		{"mark read without target", event.MarkRead{RoomID: "r1"}, true},
		{"mark read by message", event.MarkRead{RoomID: "r1", MessageID: lo.ToPtr(domain.MessageID("m1"))}, false},
		{"mark read up to timestamp", event.MarkRead{RoomID: "r1", UpToTimestamp: lo.ToPtr(time.Now())}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.frame)
			if tt.wantErr {
				require.ErrorIs(t, err, errors.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestContentLength(t *testing.T) {
	req := require.New(t)
	req.NoError(ContentLength("  hello  ", 5))
	req.ErrorIs(ContentLength(strings.Repeat("a", 6), 5), errors.ErrInvalidPayload)
	// Runes, not bytes
	req.NoError(ContentLength("ééééé", 5))
}
