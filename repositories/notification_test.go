package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newNotification(user domain.UserID, kind domain.NotificationKind, room domain.RoomID, at time.Time) domain.Notification {
	return domain.Notification{
		ID:         domain.NotificationID(uuid.NewString()),
		UserID:     user,
		Kind:       kind,
		RoomID:     room,
		FromUserID: "alice",
		CreatedAt:  at,
	}
}

func TestNotificationRepository_List_Newest_First_With_Filters(t *testing.T) {
	req := require.New(t)
	repository := NewNotificationRepository(openDB(t), slog.Default())
	at := time.Now().UTC()
	first := newNotification("bob", domain.NotificationMention, "room-1", at)
	first.MessageID = lo.ToPtr(domain.MessageID("m1"))
	second := newNotification("bob", domain.NotificationInvite, "room-2", at.Add(time.Second))
	third := newNotification("bob", domain.NotificationMention, "room-1", at.Add(2*time.Second))
	third.Read = true
	req.NoError(repository.CreateNotifications(first, second, third,
		newNotification("clara", domain.NotificationMention, "room-1", at)))

	all, err := repository.ListNotifications(domain.NotificationQuery{UserID: "bob"})
	req.NoError(err)
	req.Equal([]domain.Notification{third, second, first}, all)

	unread, err := repository.ListNotifications(domain.NotificationQuery{UserID: "bob", Read: lo.ToPtr(false)})
	req.NoError(err)
	req.Equal([]domain.Notification{second, first}, unread)

	page, err := repository.ListNotifications(domain.NotificationQuery{UserID: "bob", Before: lo.ToPtr(third.CreatedAt), Limit: 1})
	req.NoError(err)
	req.Equal([]domain.Notification{second}, page)
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	req := require.New(t)
	repository := NewNotificationRepository(openDB(t), slog.Default())
	n := newNotification("bob", domain.NotificationMention, "room-1", time.Now().UTC())
	req.NoError(repository.CreateNotifications(n))

	// Then another user cannot see it
	_, err := repository.MarkRead("clara", n.ID)
	req.ErrorIs(err, errors.ErrNotificationNotFound)
	_, err = repository.MarkRead("bob", "missing")
	req.ErrorIs(err, errors.ErrNotificationNotFound)

	read, err := repository.MarkRead("bob", n.ID)
	req.NoError(err)
	req.True(read.Read)
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	req := require.New(t)
	repository := NewNotificationRepository(openDB(t), slog.Default())
	at := time.Now().UTC()
	req.NoError(repository.CreateNotifications(
		newNotification("bob", domain.NotificationMention, "room-1", at),
		newNotification("bob", domain.NotificationInvite, "room-1", at.Add(time.Second)),
	))

	count, err := repository.MarkAllRead("bob")
	req.NoError(err)
	req.Equal(2, count)

	count, err = repository.MarkAllRead("bob")
	req.NoError(err)
	req.Zero(count)

	unread, err := repository.ListNotifications(domain.NotificationQuery{UserID: "bob", Read: lo.ToPtr(false)})
	req.NoError(err)
	req.Empty(unread)
}

func TestNotificationRepository_DeleteByRoom_Keeps_Other_Kinds(t *testing.T) {
	req := require.New(t)
	repository := NewNotificationRepository(openDB(t), slog.Default())
	at := time.Now().UTC()
	deleted := newNotification("bob", domain.NotificationRoomDeleted, "room-1", at.Add(time.Second))
	otherRoom := newNotification("bob", domain.NotificationMention, "room-2", at)
	req.NoError(repository.CreateNotifications(
		newNotification("bob", domain.NotificationMention, "room-1", at),
		newNotification("clara", domain.NotificationInvite, "room-1", at),
		deleted, otherRoom,
	))

	count, err := repository.DeleteByRoom("room-1", domain.NotificationMention, domain.NotificationInvite)
	req.NoError(err)
	req.Equal(2, count)

	bob, err := repository.ListNotifications(domain.NotificationQuery{UserID: "bob"})
	req.NoError(err)
	req.Equal([]domain.Notification{deleted, otherRoom}, bob)
	clara, err := repository.ListNotifications(domain.NotificationQuery{UserID: "clara"})
	req.NoError(err)
	req.Empty(clara)
}
