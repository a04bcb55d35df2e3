package client

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/infrastructure/ws"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrConnectionClosed = errors.New("websocket connection closed")

type ackPayload struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ws.AckError    `json:"error"`
}

// WSConn is the primary path: one websocket carrying requests with a
// request id and the server's pushed events. Pushed events are handed to
// onEvent from the read loop.
type WSConn struct {
	log     *slog.Logger
	conn    *websocket.Conn
	onEvent func(ws.Frame)

	writeMu sync.Mutex
	mu      sync.Mutex
	waiters map[string]chan ackPayload
	done    chan struct{}
}

func DialWS(ctx context.Context, log *slog.Logger, url, token string, onEvent func(ws.Frame)) (*WSConn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			var body struct {
				Code    errors.Code `json:"code"`
				Message string      `json:"message"`
			}
			if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Code != "" {
				err = &RejectedError{Code: body.Code, Message: body.Message}
			}
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &WSConn{
		log:     log,
		conn:    conn,
		onEvent: onEvent,
		waiters: make(map[string]chan ackPayload),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSConn) readLoop() {
	defer close(c.done)
	for {
		var frame ws.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.log.Debug("Websocket read loop stopped", "error", err)
			return
		}
		if frame.Type != ws.AckType {
			if c.onEvent != nil {
				c.onEvent(frame)
			}
			continue
		}
		c.mu.Lock()
		waiter, ok := c.waiters[frame.RequestID]
		delete(c.waiters, frame.RequestID)
		c.mu.Unlock()
		if !ok {
			// Late ack of a request that already timed out.
			continue
		}
		var ack ackPayload
		if err := json.Unmarshal(frame.Payload, &ack); err != nil {
			ack = ackPayload{Error: &ws.AckError{Code: errors.CodeInternal, Message: err.Error()}}
		}
		waiter <- ack
	}
}

// Request writes one frame and waits for its acknowledgment or ctx.
func (c *WSConn) Request(ctx context.Context, frameType event.Type, payload any) (json.RawMessage, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	waiter := make(chan ackPayload, 1)
	c.mu.Lock()
	c.waiters[requestID] = waiter
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.waiters, requestID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err = c.conn.WriteJSON(ws.Frame{Type: string(frameType), RequestID: requestID, Payload: raw})
	c.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	select {
	case ack := <-waiter:
		if !ack.Success {
			if ack.Error == nil {
				return nil, &RejectedError{Code: errors.CodeInternal}
			}
			return nil, &RejectedError{Code: ack.Error.Code, Message: ack.Error.Message}
		}
		return ack.Data, nil
	case <-c.done:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *WSConn) Send(ctx context.Context, roomID, content, clientID string) (Delivered, error) {
	data, err := c.Request(ctx, event.NewMessageType, event.NewMessage{RoomID: domain.RoomID(roomID), Content: content, ClientID: clientID})
	if err != nil {
		return Delivered{}, err
	}
	var message event.MessageCreated
	if err = json.Unmarshal(data, &message); err != nil {
		return Delivered{}, err
	}
	return Delivered{MessageID: string(message.ID), ClientID: message.ClientID}, nil
}

func (c *WSConn) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}
