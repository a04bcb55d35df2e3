package client_test

import (
	"chat-relay/client"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/infrastructure/ws"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fakeRelay pushes a message:created event before acknowledging every
// new-message, and rejects messages whose content is "forbidden".
func fakeRelay(t *testing.T) string {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"AUTH_INVALID_TOKEN","message":"Invalid or expired token"}`))
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		for {
			var frame ws.Frame
			if err = conn.ReadJSON(&frame); err != nil {
				return
			}
			var in event.NewMessage
			_ = json.Unmarshal(frame.Payload, &in)
			ack := ws.Ack{Error: &ws.AckError{Code: errors.CodeForbiddenRoom, Message: "You are not a member of this room"}}
			if in.Content != "forbidden" {
				created := event.MessageCreated{ID: "m1", RoomID: in.RoomID, Content: in.Content, ClientID: in.ClientID}
				raw, _ := json.Marshal(created)
				_ = conn.WriteJSON(ws.Frame{Type: string(event.MessageCreatedType), Payload: raw})
				ack = ws.Ack{Success: true, Data: created}
			}
			raw, _ := json.Marshal(ack)
			_ = conn.WriteJSON(ws.Frame{Type: ws.AckType, RequestID: frame.RequestID, Payload: raw})
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSConn_Send(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events := make(chan ws.Frame, 1)
	conn, err := client.DialWS(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), fakeRelay(t), "token",
		func(f ws.Frame) { events <- f })
	req.NoError(err)
	defer func() { _ = conn.Close() }()

	delivered, err := conn.Send(ctx, "room-1", "hello", "client-1")
	req.NoError(err)
	req.Equal(client.Delivered{MessageID: "m1", ClientID: "client-1"}, delivered)
	req.Equal(string(event.MessageCreatedType), (<-events).Type)

	_, err = conn.Send(ctx, "room-1", "forbidden", "client-2")
	var rejected *client.RejectedError
	req.ErrorAs(err, &rejected)
	req.Equal(errors.CodeForbiddenRoom, rejected.Code)
}

func TestDialWS_Refused(t *testing.T) {
	req := require.New(t)
	_, err := client.DialWS(context.Background(), slog.Default(), fakeRelay(t), "wrong", nil)
	var rejected *client.RejectedError
	req.ErrorAs(err, &rejected)
	req.Equal(errors.CodeAuthInvalidToken, rejected.Code)
}
