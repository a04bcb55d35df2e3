package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RoomService covers the room lifecycle the delivery core depends on:
// creation, listing, invitation and the deletion cascade.
type RoomService struct {
	log           *slog.Logger
	users         repositories.IUserRepository
	rooms         repositories.IRoomRepository
	messages      repositories.IMessageRepository
	notifications repositories.INotificationRepository
	fanout        *NotificationFanout
	locks         *runtime.RoomLocks
	publisher     contract.IPublisher
}

func NewRoomService(
	log *slog.Logger,
	users repositories.IUserRepository,
	rooms repositories.IRoomRepository,
	messages repositories.IMessageRepository,
	notifications repositories.INotificationRepository,
	fanout *NotificationFanout,
	locks *runtime.RoomLocks,
	publisher contract.IPublisher,
) *RoomService {
	return &RoomService{
		log:           log,
		users:         users,
		rooms:         rooms,
		messages:      messages,
		notifications: notifications,
		fanout:        fanout,
		locks:         locks,
		publisher:     publisher,
	}
}

// Create stores a new room whose only member is its creator.
func (s *RoomService) Create(creator domain.UserID, name string) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, fmt.Errorf("%w: room name is required", errors.ErrInvalidPayload)
	}
	room := domain.NewRoom(domain.RoomID(uuid.NewString()), name, creator, time.Now().UTC())
	if err := s.rooms.CreateRoom(room); err != nil {
		return domain.Room{}, err
	}
	s.log.Info("Room created", "room_id", room.ID, "user_id", creator)
	return room, nil
}

// List returns the user's rooms, most recently active first.
func (s *RoomService) List(userID domain.UserID) ([]domain.Room, error) {
	return s.rooms.ListRoomsForUser(userID)
}

// Invite adds a user to a room on behalf of one of its members.
func (s *RoomService) Invite(ctx context.Context, inviter, invitee domain.UserID, roomID domain.RoomID) (domain.Room, error) {
	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.IsMember(inviter) {
		return domain.Room{}, errors.ErrForbiddenRoomAccess
	}
	if _, err = s.users.GetUser(invitee); err != nil {
		return domain.Room{}, err
	}
	room, added, err := s.rooms.AddMembers(roomID, invitee)
	if err != nil {
		return domain.Room{}, err
	}
	if len(added) == 0 {
		return domain.Room{}, errors.ErrUserAlreadyMember
	}
	if _, err = s.fanout.Invite(ctx, room, inviter, invitee); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// Delete removes a room and everything hanging off it. The order is part of
// the contract:
//  1. snapshot the members,
//  2. create the room_deleted notifications, which are kept,
//  3. delete the messages,
//  4. delete the room's mention and invite notifications,
//  5. delete the room,
//  6. push room:deleted to the room group and to every former member.
//
// The room lock shared with the delivery coordinator is held throughout: a
// send already past its membership check lands before the cascade, a later
// one finds no room.
func (s *RoomService) Delete(ctx context.Context, userID domain.UserID, roomID domain.RoomID) error {
	release := s.locks.Lock(roomID)
	defer release()

	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return err
	}
	if room.CreatedBy != userID {
		return errors.ErrForbiddenDelete
	}
	members := lo.Uniq(room.Members)

	if _, err = s.fanout.RoomDeleted(ctx, room, userID); err != nil {
		return err
	}
	deletedMessages, err := s.messages.DeleteByRoom(roomID)
	if err != nil {
		return err
	}
	deletedNotifications, err := s.notifications.DeleteByRoom(roomID, domain.NotificationMention, domain.NotificationInvite)
	if err != nil {
		return err
	}
	if err = s.rooms.DeleteRoom(roomID); err != nil {
		return err
	}
	s.log.Info("Room deleted by creator", "room_id", roomID, "user_id", userID,
		"messages", deletedMessages, "notifications", deletedNotifications)

	deleted := event.RoomDeleted{RoomID: room.ID, RoomName: room.Name}
	deliveries := append([]event.Delivery{{To: event.ToRoom(roomID), Event: deleted}},
		lo.Map(members, func(member domain.UserID, _ int) event.Delivery {
			return event.Delivery{To: event.ToUser(member), Event: deleted}
		})...)
	return s.publisher.Publish(ctx, deliveries...)
}
