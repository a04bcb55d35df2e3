package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"log/slog"
)

// NotificationService is the read side of a user's notifications.
type NotificationService struct {
	log           *slog.Logger
	notifications repositories.INotificationRepository
	publisher     contract.IPublisher
	pagination    Pagination
}

func NewNotificationService(log *slog.Logger, notifications repositories.INotificationRepository,
	publisher contract.IPublisher, pagination Pagination) *NotificationService {
	return &NotificationService{log: log, notifications: notifications, publisher: publisher, pagination: pagination}
}

func (s *NotificationService) List(query domain.NotificationQuery) ([]domain.Notification, error) {
	query.Limit = s.pagination.Limit(query.Limit)
	return s.notifications.ListNotifications(query)
}

// MarkRead flags one notification and tells the user's other connections.
func (s *NotificationService) MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) (domain.Notification, error) {
	notification, err := s.notifications.MarkRead(userID, id)
	if err != nil {
		return domain.Notification{}, err
	}
	return notification, s.publisher.Publish(ctx, event.Delivery{
		To:    event.ToUser(userID),
		Event: event.NotificationRead{ID: string(id)},
	})
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID domain.UserID) (int, error) {
	count, err := s.notifications.MarkAllRead(userID)
	if err != nil {
		return 0, err
	}
	return count, s.publisher.Publish(ctx, event.Delivery{
		To:    event.ToUser(userID),
		Event: event.NotificationRead{ID: event.AllNotifications},
	})
}
