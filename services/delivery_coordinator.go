package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mention"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/validation"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IDeliveryCoordinator interface {
	PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error)
	ListMessages(cmd domain.GetMessagesCommand) (domain.MessagePage, error)
}

// DeliveryCoordinator persists messages and broadcasts them. Both transports
// end up here, so a send is handled the same way whichever path it took.
type DeliveryCoordinator struct {
	log              *slog.Logger
	router           IRoomRouter
	sanitizer        *moderation.Sanitizer
	users            repositories.IUserRepository
	rooms            repositories.IRoomRepository
	messages         repositories.IMessageRepository
	locks            *runtime.RoomLocks
	publisher        contract.IPublisher
	fanout           *NotificationFanout
	maxContentLength int
	pagination       Pagination
}

func NewDeliveryCoordinator(
	log *slog.Logger,
	router IRoomRouter,
	sanitizer *moderation.Sanitizer,
	users repositories.IUserRepository,
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	locks *runtime.RoomLocks,
	publisher contract.IPublisher,
	fanout *NotificationFanout,
	maxContentLength int,
	pagination Pagination,
) *DeliveryCoordinator {
	return &DeliveryCoordinator{
		log:              log,
		router:           router,
		sanitizer:        sanitizer,
		users:            users,
		rooms:            rooms,
		messages:         messages,
		locks:            locks,
		publisher:        publisher,
		fanout:           fanout,
		maxContentLength: maxContentLength,
		pagination:       pagination,
	}
}

// PostMessage persists exactly one message per logical send and returns the
// authoritative record. The room lock is held from the membership check to
// the broadcast, so creation instants are strictly increasing inside a room
// and the room group receives messages in persistence order.
// Mention side effects are done when PostMessage returns.
//
// A send whose correlation id was already persisted for the same sender is a
// retry: the stored message is returned and nothing else happens.
func (c *DeliveryCoordinator) PostMessage(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if cmd.Room == "" {
		return domain.Message{}, errors.ErrInvalidRoomID
	}
	content, unmasked := c.sanitizer.Sanitize(cmd.Content)
	if content == "" {
		return domain.Message{}, errors.ErrEmptyMessage
	}
	if err := validation.ContentLength(content, c.maxContentLength); err != nil {
		return domain.Message{}, err
	}

	release := c.locks.Lock(cmd.Room)
	defer release()

	room, err := c.router.Authorize(cmd.Sender.ID, cmd.Room)
	if err != nil {
		return domain.Message{}, err
	}

	mentions, err := c.resolveMentions(unmasked)
	if err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:            domain.MessageID(uuid.NewString()),
		RoomID:        room.ID,
		SenderID:      cmd.Sender.ID,
		Content:       content,
		CorrelationID: cmd.CorrelationID,
		Mentions:      mentions,
		CreatedAt:     nextInstant(room, time.Now().UTC()),
	}

	stored, created, err := c.messages.StoreMessage(message)
	if err != nil {
		return domain.Message{}, err
	}
	if !created {
		c.log.Info("Replayed send, returning stored message",
			"room_id", room.ID, "user_id", cmd.Sender.ID, "correlation_id", cmd.CorrelationID)
		return stored, nil
	}

	if err = c.rooms.Touch(room.ID, stored.CreatedAt); err != nil {
		c.log.Error("Unable to update room activity", "room_id", room.ID, "err", err)
	}
	err = c.publisher.Publish(ctx, event.Delivery{
		To:    event.ToRoom(room.ID),
		Event: event.ToMessageCreated(stored, cmd.Sender.DisplayName),
	})
	if err != nil {
		c.log.Warn("Message persisted but not broadcast", "room_id", room.ID, "message_id", stored.ID, "error", err)
	}

	if _, err = c.fanout.Mentions(ctx, room, stored); err != nil {
		c.log.Error("Mention fan-out failed", "room_id", room.ID, "message_id", stored.ID, "err", err)
	}
	return stored, nil
}

// resolveMentions maps @tokens to user ids. Unknown usernames are ignored.
func (c *DeliveryCoordinator) resolveMentions(content string) ([]domain.UserID, error) {
	usernames := mention.Extract(content)
	if len(usernames) == 0 {
		return nil, nil
	}
	users, err := c.users.FindByUsernames(usernames)
	if err != nil {
		return nil, err
	}
	ids := lo.Uniq(lo.Map(users, func(u domain.User, _ int) domain.UserID { return u.ID }))
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

// nextInstant never goes back in time with respect to the room's last message,
// even when the wall clock does or two sends land in the same nanosecond.
func nextInstant(room domain.Room, now time.Time) time.Time {
	if room.LastMessageAt != nil && !now.After(*room.LastMessageAt) {
		return room.LastMessageAt.Add(time.Nanosecond)
	}
	return now
}

// ListMessages returns one page of history, oldest first. NextBefore is the
// cursor for the previous page.
func (c *DeliveryCoordinator) ListMessages(cmd domain.GetMessagesCommand) (domain.MessagePage, error) {
	if _, err := c.router.Authorize(cmd.UserID, cmd.Room); err != nil {
		return domain.MessagePage{}, err
	}
	messages, err := c.messages.GetMessages(cmd.Room, cmd.Before, c.pagination.Limit(cmd.Limit))
	if err != nil {
		return domain.MessagePage{}, err
	}
	page := domain.MessagePage{Messages: messages}
	if len(messages) > 0 {
		page.NextBefore = lo.ToPtr(messages[0].CreatedAt)
	}
	return page, nil
}
