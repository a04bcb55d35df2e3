package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionBinder_Resolve(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice")
	claims := func(t *testing.T, userID domain.UserID) *auth.CustomClaims {
		token, err := h.tokens.GenerateToken(userID, nil, time.Hour)
		require.NoError(t, err)
		validated, err := h.tokens.ValidateToken(token)
		require.NoError(t, err)
		return validated
	}

	t.Run("unknown subject", func(t *testing.T) {
		_, err := h.binder.Resolve(claims(t, "deleted-user"))
		require.ErrorIs(t, err, errors.ErrInvalidToken)
	})

	t.Run("valid claims resolve the profile", func(t *testing.T) {
		req := require.New(t)
		session, err := h.binder.Resolve(claims(t, alice.ID))
		req.NoError(err)
		req.Equal(alice.Profile(), session.Profile)
		req.True(session.ExpiresAt.After(time.Now()))
	})
}

func TestSessionBinder_Bind_Joins_Personal_Group(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")

	session, conn := h.connect(t, alice)

	req.Equal(conn.ID(), session.ConnID)
	bound, ok := h.binder.Session(conn.ID())
	req.True(ok)
	req.Equal(session, bound)
	req.Len(h.registry.SinksFor(event.ToUser(alice.ID), ""), 1)
}

func TestSessionBinder_Expiry_Notice_Then_Disconnect(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")
	conn := newFakeConn()

	// Given a session whose credential expires shortly
	session := domain.Session{Profile: alice.Profile(), ExpiresAt: time.Now().Add(30 * time.Millisecond)}
	h.binder.Bind(session, conn)

	// Then the connection is closed once the credential expires
	select {
	case <-conn.closed:
	case <-time.After(time.Second):
		req.Fail("connection should have been closed at expiry")
	}

	// And it was told why first
	req.Equal([]event.DomainEvent{event.Failure{Code: "AUTH_EXPIRED", Message: "Token expired"}}, conn.events())
}

func TestSessionBinder_Unbind_Cleans_Presence(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")
	room := h.room(t, alice)
	ctx := context.Background()

	// Given alice joined the room
	session, conn := h.connect(t, alice)
	req.NoError(h.router.Join(ctx, session, room.ID))
	req.True(h.online(room.ID, alice.ID))

	// When she disconnects
	h.binder.Unbind(ctx, conn.ID())

	// Then presence:offline is broadcast and she is gone from the online set
	offline := h.publisher.ofType(event.PresenceOfflineType)
	req.Len(offline, 1)
	req.Equal(event.PresenceOffline{RoomID: room.ID, UserID: alice.ID}, offline[0].Event)
	req.False(h.online(room.ID, alice.ID))
	_, ok := h.binder.Session(conn.ID())
	req.False(ok)
	req.Empty(h.registry.SinksFor(event.ToUser(alice.ID), ""))

	// And a second unbind is harmless
	h.binder.Unbind(ctx, conn.ID())
	req.Len(h.publisher.ofType(event.PresenceOfflineType), 1)
}
