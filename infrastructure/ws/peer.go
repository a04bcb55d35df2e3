package ws

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var ErrPeerClosed = errors.New("peer closed")

// Peer is one websocket connection. Everything written to the socket goes
// through the send buffer and a single writer goroutine; frames are read and
// handled one at a time by the reader goroutine.
type Peer struct {
	id        string
	conn      *websocket.Conn
	log       *slog.Logger
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newPeer(log *slog.Logger, conn *websocket.Conn, bufferSize int) *Peer {
	id := uuid.NewString()
	return &Peer{
		id:   id,
		conn: conn,
		log:  log.With("conn_id", id),
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

func (p *Peer) ID() string { return p.id }

// Consume queues an outbound event. It fails when the buffer stays full
// until ctx is done, or when the peer is closed.
func (p *Peer) Consume(ctx context.Context, e event.DomainEvent) error {
	frame, err := eventFrame(e)
	if err != nil {
		return err
	}
	return p.enqueue(ctx, frame)
}

func (p *Peer) enqueue(ctx context.Context, frame []byte) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	select {
	case p.send <- frame:
		return nil
	case <-p.done:
		return ErrPeerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close asks the writer to flush what is queued, send a close frame and drop
// the socket. The reader then fails and the disconnect path runs.
func (p *Peer) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}

func (p *Peer) reply(ctx context.Context, requestID string, ack Ack) {
	var (
		frame []byte
		err   error
	)
	if requestID == "" {
		if ack.Error == nil {
			return
		}
		frame, err = eventFrame(event.Failure{Code: string(ack.Error.Code), Message: ack.Error.Message})
	} else {
		frame, err = ackFrame(requestID, ack)
	}
	if err != nil {
		p.log.Error("Unable to encode reply", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	if err = p.enqueue(ctx, frame); err != nil {
		p.log.Debug("Reply dropped", "request_id", requestID, "error", err)
	}
}

func (p *Peer) readPump(ctx context.Context, handle func(context.Context, Frame)) {
	defer p.Close()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				p.log.Warn("Websocket read error (unexpected close)", "error", err)
			} else {
				p.log.Debug("Websocket closed", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			p.log.Debug("Non text frame ignored", "message_type", messageType)
			continue
		}
		var frame Frame
		if err = json.Unmarshal(data, &frame); err != nil {
			p.reply(ctx, "", toAck(nil, errors.ErrInvalidPayload))
			continue
		}
		handle(ctx, frame)
	}
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case frame := <-p.send:
			if err := p.write(websocket.TextMessage, frame); err != nil {
				p.log.Debug("Failed to write to websocket", "error", err)
				p.Close()
				return
			}
		case <-ticker.C:
			if err := p.write(websocket.PingMessage, nil); err != nil {
				p.log.Debug("Failed to send ping", "error", err)
				p.Close()
				return
			}
		case <-p.done:
			p.flush()
			_ = p.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever is still queued, e.g. an expiry notice pushed right
// before Close.
func (p *Peer) flush() {
	for {
		select {
		case frame := <-p.send:
			if err := p.write(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (p *Peer) write(messageType int, data []byte) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(messageType, data)
}
