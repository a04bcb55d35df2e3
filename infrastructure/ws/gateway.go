package ws

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/services"
	"chat-relay/validation"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const unbindTimeout = 5 * time.Second

type handlerFunc func(ctx context.Context, session domain.Session, in event.Inbound) (any, error)

// RoomAck is the ack data of join-room and leave-room.
type RoomAck struct {
	RoomID domain.RoomID `json:"roomId"`
}

// Gateway is the websocket edge of the relay: it authenticates the handshake,
// binds the connection to a session and routes inbound frames to the services.
type Gateway struct {
	log         *slog.Logger
	upgrader    websocket.Upgrader
	tokens      *auth.TokenManager
	binder      *services.SessionBinder
	router      services.IRoomRouter
	typing      *services.TypingRelay
	coordinator services.IDeliveryCoordinator
	receipts    *services.ReceiptAggregator
	bufferSize  int
	handlers    map[event.Type]handlerFunc
}

func NewGateway(
	log *slog.Logger,
	tokens *auth.TokenManager,
	binder *services.SessionBinder,
	router services.IRoomRouter,
	typing *services.TypingRelay,
	coordinator services.IDeliveryCoordinator,
	receipts *services.ReceiptAggregator,
	bufferSize int,
) *Gateway {
	g := &Gateway{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is not checked: the credential is what gates the handshake.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		tokens:      tokens,
		binder:      binder,
		router:      router,
		typing:      typing,
		coordinator: coordinator,
		receipts:    receipts,
		bufferSize:  bufferSize,
	}
	g.handlers = map[event.Type]handlerFunc{
		event.JoinRoomType:    handle(g.joinRoom),
		event.LeaveRoomType:   handle(g.leaveRoom),
		event.NewMessageType:  handle(g.newMessage),
		event.MarkReadType:    handle(g.markRead),
		event.TypingStartType: handle(g.typingStart),
		event.TypingStopType:  handle(g.typingStop),
	}
	for _, t := range event.InboundTypes {
		if _, ok := g.handlers[t]; !ok {
			panic(fmt.Sprintf("no handler for inbound frame %q", t))
		}
	}
	return g
}

// Register mounts the websocket route behind the bearer middleware.
func (g *Gateway) Register(routes gin.IRoutes) {
	routes.GET("/ws", auth.BearerAuth(g.tokens, g.log), g.Handle)
}

func (g *Gateway) Handle(c *gin.Context) {
	claims, err := auth.ClaimsFromContext(c.Request.Context())
	if err != nil {
		g.refuse(c, http.StatusUnauthorized, err)
		return
	}
	session, err := g.binder.Resolve(claims)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.IsInternal(err) {
			g.log.Error("Unable to resolve session", "user_id", claims.UserID, "error", err)
			status = http.StatusInternalServerError
		}
		g.refuse(c, status, err)
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "error", err, "remote", c.ClientIP())
		return
	}

	peer := newPeer(g.log, conn, g.bufferSize)
	session = g.binder.Bind(session, peer)
	g.log.Info("Websocket connected", "user_id", session.UserID(), "conn_id", session.ConnID)

	go peer.writePump()
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), unbindTimeout)
		defer cancel()
		g.binder.Unbind(ctx, peer.ID())
		g.log.Info("Websocket disconnected", "user_id", session.UserID(), "conn_id", session.ConnID)
	}()

	peer.readPump(c.Request.Context(), func(ctx context.Context, frame Frame) {
		g.dispatch(ctx, peer, session, frame)
	})
}

func (g *Gateway) refuse(c *gin.Context, status int, err error) {
	code, message := errors.ToCode(err)
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": message})
}

// dispatch runs the handler of one frame and answers it. Frames of a
// connection are handled one after the other.
func (g *Gateway) dispatch(ctx context.Context, peer *Peer, session domain.Session, frame Frame) {
	var (
		data any
		err  error
	)
	handler, ok := g.handlers[event.Type(frame.Type)]
	if !ok {
		err = fmt.Errorf("%w: unknown frame type %q", errors.ErrInvalidPayload, frame.Type)
	} else {
		var in event.Inbound
		if in, err = event.DecodeInbound(event.Type(frame.Type), frame.Payload); err != nil {
			err = fmt.Errorf("%w: %s", errors.ErrInvalidPayload, err)
		} else {
			data, err = handler(ctx, session, in)
		}
	}

	if err != nil {
		if errors.IsInternal(err) {
			g.log.Error("Frame handling failed", "type", frame.Type, "conn_id", session.ConnID, "error", err)
		} else {
			g.log.Debug("Frame rejected", "type", frame.Type, "conn_id", session.ConnID, "error", err)
		}
	}
	peer.reply(ctx, frame.RequestID, toAck(data, err))
}

func handle[T event.Inbound](fn func(context.Context, domain.Session, T) (any, error)) handlerFunc {
	return func(ctx context.Context, session domain.Session, in event.Inbound) (any, error) {
		v, ok := in.(T)
		if !ok {
			return nil, errors.ErrInvalidPayload
		}
		return fn(ctx, session, v)
	}
}

func (g *Gateway) joinRoom(ctx context.Context, session domain.Session, in event.JoinRoom) (any, error) {
	if err := g.router.Join(ctx, session, in.RoomID); err != nil {
		return nil, err
	}
	return RoomAck{RoomID: in.RoomID}, nil
}

func (g *Gateway) leaveRoom(ctx context.Context, session domain.Session, in event.LeaveRoom) (any, error) {
	if err := g.router.Leave(ctx, session, in.RoomID); err != nil {
		return nil, err
	}
	return RoomAck{RoomID: in.RoomID}, nil
}

func (g *Gateway) newMessage(ctx context.Context, session domain.Session, in event.NewMessage) (any, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	message, err := g.coordinator.PostMessage(ctx, domain.PostMessageCommand{
		Room:          in.RoomID,
		Sender:        session.Profile,
		Content:       in.Content,
		CorrelationID: in.ClientID,
	})
	if err != nil {
		return nil, err
	}
	return event.ToMessageCreated(message, session.Profile.DisplayName), nil
}

func (g *Gateway) markRead(ctx context.Context, session domain.Session, in event.MarkRead) (any, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	_, err := g.receipts.MarkRead(ctx, domain.MarkReadCommand{
		Room:      in.RoomID,
		UserID:    session.UserID(),
		MessageID: in.MessageID,
		UpTo:      in.UpToTimestamp,
	})
	return nil, err
}

func (g *Gateway) typingStart(ctx context.Context, session domain.Session, in event.TypingStart) (any, error) {
	return nil, g.typing.Start(ctx, session, in.RoomID)
}

func (g *Gateway) typingStop(ctx context.Context, session domain.Session, in event.TypingStop) (any, error) {
	return nil, g.typing.Stop(ctx, session, in.RoomID)
}
