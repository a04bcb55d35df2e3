package services

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestRoomService_Create_And_List(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")

	_, err := h.roomService.Create(alice.ID, "   ")
	req.ErrorIs(err, errors.ErrInvalidPayload)

	first, err := h.roomService.Create(alice.ID, "first")
	req.NoError(err)
	req.Equal([]domain.UserID{alice.ID}, first.Members)
	second, err := h.roomService.Create(alice.ID, "second")
	req.NoError(err)

	// When the first room gets a message it becomes the most recent one
	_, err = h.coordinator.PostMessage(context.Background(), post(alice, first.ID, "bump"))
	req.NoError(err)

	rooms, err := h.roomService.List(alice.ID)
	req.NoError(err)
	req.Equal([]domain.RoomID{first.ID, second.ID}, lo.Map(rooms, func(r domain.Room, _ int) domain.RoomID { return r.ID }))
}

func TestRoomService_Invite(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, mallory := h.user(t, "alice"), h.user(t, "bob"), h.user(t, "mallory")
	room := h.room(t, alice)
	ctx := context.Background()

	// When alice invites bob
	invited, err := h.roomService.Invite(ctx, alice.ID, bob.ID, room.ID)
	req.NoError(err)
	req.True(invited.IsMember(bob.ID))

	// Then bob is told about the room and gets an invite notification
	req.Equal([]event.Delivery{{To: event.ToUser(bob.ID), Event: event.RoomJoined{RoomID: room.ID, RoomName: "general"}}},
		h.publisher.ofType(event.RoomJoinedType))
	notifications, err := h.notificationService.List(domain.NotificationQuery{UserID: bob.ID})
	req.NoError(err)
	req.Len(notifications, 1)
	req.Equal(domain.NotificationInvite, notifications[0].Kind)
	req.Nil(notifications[0].MessageID)

	// And the conflicts are reported
	_, err = h.roomService.Invite(ctx, alice.ID, bob.ID, room.ID)
	req.ErrorIs(err, errors.ErrUserAlreadyMember)
	_, err = h.roomService.Invite(ctx, alice.ID, "nobody", room.ID)
	req.ErrorIs(err, errors.ErrUserNotFound)
	_, err = h.roomService.Invite(ctx, alice.ID, bob.ID, "missing")
	req.ErrorIs(err, errors.ErrRoomNotFound)
	_, err = h.roomService.Invite(ctx, mallory.ID, mallory.ID, room.ID)
	req.ErrorIs(err, errors.ErrForbiddenRoomAccess)
}

func TestRoomService_Delete_Cascade(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, clara := h.user(t, "alice"), h.user(t, "bob"), h.user(t, "clara")
	room := h.room(t, alice)
	other := h.room(t, alice)
	ctx := context.Background()

	// Given bob was invited, clara mentioned, and the other room has history
	_, err := h.roomService.Invite(ctx, alice.ID, bob.ID, room.ID)
	req.NoError(err)
	_, err = h.coordinator.PostMessage(ctx, post(alice, room.ID, "welcome @clara"))
	req.NoError(err)
	kept, err := h.coordinator.PostMessage(ctx, post(alice, other.ID, "ping @bob"))
	req.NoError(err)

	// When a member who is not the creator tries to delete it
	req.ErrorIs(h.roomService.Delete(ctx, bob.ID, room.ID), errors.ErrForbiddenDelete)
	h.publisher.reset()

	// And the creator deletes it
	req.NoError(h.roomService.Delete(ctx, alice.ID, room.ID))

	// Then the room and its messages are gone
	_, err = h.rooms.GetRoom(room.ID)
	req.ErrorIs(err, errors.ErrRoomNotFound)
	remaining, err := h.messages.GetMessages(room.ID, nil, 0)
	req.NoError(err)
	req.Empty(remaining)
	_, err = h.messages.GetMessage(kept.ID)
	req.NoError(err)

	// And former members only keep room_deleted notifications for that room
	for _, member := range []domain.User{bob, clara} {
		notifications, err := h.notifications.ListNotifications(domain.NotificationQuery{UserID: member.ID, Limit: 50})
		req.NoError(err)
		forRoom := lo.Filter(notifications, func(n domain.Notification, _ int) bool { return n.RoomID == room.ID })
		req.Len(forRoom, 1)
		req.Equal(domain.NotificationRoomDeleted, forRoom[0].Kind)
		req.Equal(alice.ID, forRoom[0].FromUserID)
	}
	// And the other room's mention survives
	bobs, err := h.notifications.ListNotifications(domain.NotificationQuery{UserID: bob.ID, Limit: 50})
	req.NoError(err)
	req.True(lo.ContainsBy(bobs, func(n domain.Notification) bool {
		return n.RoomID == other.ID && n.Kind == domain.NotificationMention
	}))
	// And the deleter got nothing
	alices, err := h.notifications.ListNotifications(domain.NotificationQuery{UserID: alice.ID, Limit: 50})
	req.NoError(err)
	req.Empty(alices)

	// And room:deleted reached the room group and every former member
	deleted := h.publisher.ofType(event.RoomDeletedType)
	req.ElementsMatch([]event.Audience{
		event.ToRoom(room.ID), event.ToUser(alice.ID), event.ToUser(bob.ID), event.ToUser(clara.ID),
	}, lo.Map(deleted, func(d event.Delivery, _ int) event.Audience { return d.To }))
	req.Len(h.publisher.ofType(event.NotificationCreatedType), 2)
}

// gatedMessages holds StoreMessage until the test lets it through.
type gatedMessages struct {
	repositories.IMessageRepository
	storing chan struct{}
	proceed chan struct{}
}

func (g gatedMessages) StoreMessage(message domain.Message) (domain.Message, bool, error) {
	g.storing <- struct{}{}
	<-g.proceed
	return g.IMessageRepository.StoreMessage(message)
}

func TestRoomService_Delete_Waits_For_Send_In_Flight(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user(t, "alice")
	room := h.room(t, alice)
	ctx := context.Background()

	gated := gatedMessages{IMessageRepository: h.messages, storing: make(chan struct{}), proceed: make(chan struct{})}
	coordinator := NewDeliveryCoordinator(h.log, h.router, moderation.NewSanitizer(h.log, nil), h.users, h.rooms,
		gated, h.locks, h.publisher, h.fanout, 5000, Pagination{Default: 20, Max: 50})

	// Given a send that passed its membership check and is about to be stored
	posted := make(chan error, 1)
	go func() {
		_, err := coordinator.PostMessage(ctx, post(alice, room.ID, "last words"))
		posted <- err
	}()
	<-gated.storing

	// When the creator deletes the room meanwhile
	deleted := make(chan error, 1)
	go func() { deleted <- h.roomService.Delete(ctx, alice.ID, room.ID) }()

	// Then the deletion waits for the send
	select {
	case <-deleted:
		req.Fail("room deleted while a send was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(gated.proceed)
	req.NoError(<-posted)
	req.NoError(<-deleted)

	// And the message went away with the room
	remaining, err := h.messages.GetMessages(room.ID, nil, 0)
	req.NoError(err)
	req.Empty(remaining)

	// And a later send finds no room
	_, err = h.coordinator.PostMessage(ctx, post(alice, room.ID, "too late"))
	req.ErrorIs(err, errors.ErrForbiddenRoomAccess)
}
