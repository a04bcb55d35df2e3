package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// NotificationFanout creates notification records and pushes them, along with
// room:joined, to the personal group of every affected user.
type NotificationFanout struct {
	log           *slog.Logger
	rooms         repositories.IRoomRepository
	notifications repositories.INotificationRepository
	publisher     contract.IPublisher
}

func NewNotificationFanout(log *slog.Logger, rooms repositories.IRoomRepository,
	notifications repositories.INotificationRepository, publisher contract.IPublisher) *NotificationFanout {
	return &NotificationFanout{log: log, rooms: rooms, notifications: notifications, publisher: publisher}
}

// Mentions handles the users mentioned by a freshly persisted message.
// Mentioned users outside the room become members and get room:joined.
// Every mentioned user gets exactly one mention notification.
func (f *NotificationFanout) Mentions(ctx context.Context, room domain.Room, message domain.Message) ([]domain.Notification, error) {
	if len(message.Mentions) == 0 {
		return nil, nil
	}

	room, added, err := f.rooms.AddMembers(room.ID, message.Mentions...)
	if err != nil {
		return nil, err
	}
	var deliveries []event.Delivery
	if len(added) > 0 {
		f.log.Info("Auto-added mentioned users to room", "room_id", room.ID, "count", len(added))
		for _, userID := range added {
			deliveries = append(deliveries, event.Delivery{
				To:    event.ToUser(userID),
				Event: event.RoomJoined{RoomID: room.ID, RoomName: room.Name},
			})
		}
	}

	at := time.Now().UTC()
	notifications := lo.Map(message.Mentions, func(userID domain.UserID, _ int) domain.Notification {
		return newNotification(domain.NotificationMention, userID, room.ID, message.SenderID, lo.ToPtr(message.ID), at)
	})
	if err = f.notifications.CreateNotifications(notifications...); err != nil {
		return nil, err
	}
	deliveries = append(deliveries, notificationDeliveries(notifications)...)
	return notifications, f.publisher.Publish(ctx, deliveries...)
}

// Invite notifies a user that was just added to a room by another member.
func (f *NotificationFanout) Invite(ctx context.Context, room domain.Room, from, userID domain.UserID) (domain.Notification, error) {
	notification := newNotification(domain.NotificationInvite, userID, room.ID, from, nil, time.Now().UTC())
	if err := f.notifications.CreateNotifications(notification); err != nil {
		return domain.Notification{}, err
	}
	deliveries := append([]event.Delivery{{
		To:    event.ToUser(userID),
		Event: event.RoomJoined{RoomID: room.ID, RoomName: room.Name},
	}}, notificationDeliveries([]domain.Notification{notification})...)
	return notification, f.publisher.Publish(ctx, deliveries...)
}

// RoomDeleted notifies every member of a room being deleted, except the
// user deleting it. These records outlive the room.
func (f *NotificationFanout) RoomDeleted(ctx context.Context, room domain.Room, deletedBy domain.UserID) ([]domain.Notification, error) {
	at := time.Now().UTC()
	notifications := lo.FilterMap(room.Members, func(userID domain.UserID, _ int) (domain.Notification, bool) {
		return newNotification(domain.NotificationRoomDeleted, userID, room.ID, deletedBy, nil, at), userID != deletedBy
	})
	if len(notifications) == 0 {
		return nil, nil
	}
	if err := f.notifications.CreateNotifications(notifications...); err != nil {
		return nil, err
	}
	return notifications, f.publisher.Publish(ctx, notificationDeliveries(notifications)...)
}

func newNotification(kind domain.NotificationKind, userID domain.UserID, roomID domain.RoomID,
	from domain.UserID, messageID *domain.MessageID, at time.Time) domain.Notification {
	return domain.Notification{
		ID:         domain.NotificationID(uuid.NewString()),
		UserID:     userID,
		Kind:       kind,
		RoomID:     roomID,
		FromUserID: from,
		MessageID:  messageID,
		CreatedAt:  at,
	}
}

func notificationDeliveries(notifications []domain.Notification) []event.Delivery {
	return lo.Map(notifications, func(n domain.Notification, _ int) event.Delivery {
		return event.Delivery{To: event.ToUser(n.UserID), Event: event.ToNotificationCreated(n)}
	})
}
