package services

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomRouter_Join(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, mallory := h.user(t, "alice"), h.user(t, "bob"), h.user(t, "mallory")
	room := h.room(t, alice, bob)
	ctx := context.Background()
	aliceSession, aliceConn := h.connect(t, alice)
	bobSession, _ := h.connect(t, bob)
	mallorySession, _ := h.connect(t, mallory)

	// When members join
	req.NoError(h.router.Join(ctx, aliceSession, room.ID))
	req.NoError(h.router.Join(ctx, bobSession, room.ID))

	// Then each join broadcasts the current online list
	lists := h.publisher.ofType(event.PresenceListType)
	req.Len(lists, 2)
	req.Equal(event.ToRoom(room.ID), lists[1].To)
	req.ElementsMatch([]domain.Profile{alice.Profile(), bob.Profile()}, lists[1].Event.(event.PresenceList).Users)
	req.True(h.registry.Joined(room.ID, aliceConn.ID()))

	// And outsiders are refused
	req.ErrorIs(h.router.Join(ctx, mallorySession, room.ID), errors.ErrForbiddenRoomAccess)
	req.ErrorIs(h.router.Join(ctx, mallorySession, "unknown"), errors.ErrForbiddenRoomAccess)
	req.ErrorIs(h.router.Join(ctx, mallorySession, ""), errors.ErrInvalidRoomID)
}

func TestRoomRouter_Join_Twice_Counts_Once(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")
	room := h.room(t, alice)
	ctx := context.Background()
	session, _ := h.connect(t, alice)

	req.NoError(h.router.Join(ctx, session, room.ID))
	req.NoError(h.router.Join(ctx, session, room.ID))

	// Then the repeated join broadcasts the unchanged list again
	lists := h.publisher.ofType(event.PresenceListType)
	req.Len(lists, 2)
	req.Equal(event.ToRoom(room.ID), lists[1].To)
	req.Equal([]domain.Profile{alice.Profile()}, lists[1].Event.(event.PresenceList).Users)

	// And one leave is enough to go offline
	req.NoError(h.router.Leave(ctx, session, room.ID))
	req.False(h.online(room.ID, alice.ID))
	req.Len(h.publisher.ofType(event.PresenceOfflineType), 1)
}

func TestRoomRouter_Offline_After_Last_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")
	room := h.room(t, alice)
	ctx := context.Background()
	laptop, _ := h.connect(t, alice)
	phone, _ := h.connect(t, alice)
	req.NoError(h.router.Join(ctx, laptop, room.ID))
	req.NoError(h.router.Join(ctx, phone, room.ID))

	// When the laptop leaves, alice is still online from the phone
	req.NoError(h.router.Leave(ctx, laptop, room.ID))
	req.Empty(h.publisher.ofType(event.PresenceOfflineType))
	req.True(h.online(room.ID, alice.ID))

	// Then leaving again is a no-op and the phone leaving makes her offline
	req.NoError(h.router.Leave(ctx, laptop, room.ID))
	req.NoError(h.router.Leave(ctx, phone, room.ID))
	req.Len(h.publisher.ofType(event.PresenceOfflineType), 1)
}

func TestTypingRelay_Requires_Join_And_Skips_Sender(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")
	room := h.room(t, alice)
	ctx := context.Background()
	session, conn := h.connect(t, alice)

	// Given alice has not joined yet
	req.ErrorIs(h.typing.Start(ctx, session, room.ID), errors.ErrForbiddenRoomAccess)

	// When she joined and types
	req.NoError(h.router.Join(ctx, session, room.ID))
	req.NoError(h.typing.Start(ctx, session, room.ID))
	req.NoError(h.typing.Stop(ctx, session, room.ID))

	// Then both signals go to the room, except her own connection
	started := h.publisher.ofType(event.TypingStartedType)
	req.Len(started, 1)
	req.Equal(conn.ID(), started[0].ExceptConn)
	req.Equal(event.TypingStarted{Typing: event.Typing{RoomID: room.ID, UserID: alice.ID, DisplayName: "alice display"}}, started[0].Event)
	req.Len(h.publisher.ofType(event.TypingStoppedType), 1)
}
