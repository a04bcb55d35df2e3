package services

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const expiryNoticeTimeout = time.Second

// SessionBinder turns validated claims into a session, binds it to a live
// connection and tears everything down again when the connection goes away
// or the credential expires.
type SessionBinder struct {
	log      *slog.Logger
	users    repositories.IUserRepository
	registry contract.IRegistry
	presence *PresenceNotifier

	mu       sync.Mutex
	sessions map[string]domain.Session
	timers   map[string]*time.Timer
}

func NewSessionBinder(log *slog.Logger, users repositories.IUserRepository,
	registry contract.IRegistry, presence *PresenceNotifier) *SessionBinder {
	return &SessionBinder{
		log:      log,
		users:    users,
		registry: registry,
		presence: presence,
		sessions: make(map[string]domain.Session),
		timers:   make(map[string]*time.Timer),
	}
}

// Resolve loads the display profile of already validated claims. A subject
// that is no longer in the directory invalidates the credential.
func (b *SessionBinder) Resolve(claims *auth.CustomClaims) (domain.Session, error) {
	user, err := b.users.GetUser(domain.UserID(claims.UserID))
	if errors.Is(err, errors.ErrUserNotFound) {
		return domain.Session{}, fmt.Errorf("%w: unknown subject", errors.ErrInvalidToken)
	}
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Profile: user.Profile(), ExpiresAt: claims.Expiry()}, nil
}

// Bind attaches the connection to its user's personal group and arms the
// expiry timer: at ExpiresAt the connection gets an AUTH_EXPIRED notice and
// is closed, which runs the regular disconnect path.
func (b *SessionBinder) Bind(session domain.Session, conn contract.Connection) domain.Session {
	session.ConnID = conn.ID()
	b.registry.Attach(session.UserID(), conn)

	b.mu.Lock()
	b.sessions[session.ConnID] = session
	b.timers[session.ConnID] = time.AfterFunc(time.Until(session.ExpiresAt), func() {
		b.expire(session, conn)
	})
	b.mu.Unlock()

	b.log.Debug("Session bound", "user_id", session.UserID(), "conn_id", session.ConnID, "expires_at", session.ExpiresAt)
	return session
}

func (b *SessionBinder) expire(session domain.Session, conn contract.Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), expiryNoticeTimeout)
	defer cancel()
	code, message := errors.ToCode(errors.ErrTokenExpired)
	if err := conn.Consume(ctx, event.Failure{Code: string(code), Message: message}); err != nil {
		b.log.Debug("Expiry notice not delivered", "conn_id", session.ConnID, "error", err)
	}
	b.log.Info("Session expired", "user_id", session.UserID(), "conn_id", session.ConnID)
	conn.Close()
}

// Session returns the session bound to a live connection.
func (b *SessionBinder) Session(connID string) (domain.Session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	session, ok := b.sessions[connID]
	return session, ok
}

// Unbind is the disconnect path: it stops the expiry timer, removes the
// connection from every group and leaves every room it had joined.
// Calling it twice is harmless.
func (b *SessionBinder) Unbind(ctx context.Context, connID string) {
	b.mu.Lock()
	session, ok := b.sessions[connID]
	if timer, found := b.timers[connID]; found {
		timer.Stop()
	}
	delete(b.timers, connID)
	delete(b.sessions, connID)
	b.mu.Unlock()

	rooms := b.registry.Detach(connID)
	if !ok {
		return
	}
	for _, roomID := range rooms {
		if err := b.presence.Offline(ctx, roomID, session.UserID()); err != nil {
			b.log.Warn("Presence cleanup failed", "room_id", roomID, "user_id", session.UserID(), "error", err)
		}
	}
	b.log.Debug("Session unbound", "user_id", session.UserID(), "conn_id", connID, "rooms", len(rooms))
}
