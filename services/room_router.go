package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"log/slog"
)

type IRoomRouter interface {
	Join(ctx context.Context, session domain.Session, roomID domain.RoomID) error
	Leave(ctx context.Context, session domain.Session, roomID domain.RoomID) error
	Authorize(userID domain.UserID, roomID domain.RoomID) (domain.Room, error)
	RequireJoined(session domain.Session, roomID domain.RoomID) error
}

// RoomRouter is the only gate to a room: every per-room operation goes
// through Authorize (persisted membership) or RequireJoined (live group).
type RoomRouter struct {
	log      *slog.Logger
	rooms    repositories.IRoomRepository
	registry contract.IRegistry
	presence *PresenceNotifier
}

func NewRoomRouter(log *slog.Logger, rooms repositories.IRoomRepository,
	registry contract.IRegistry, presence *PresenceNotifier) *RoomRouter {
	return &RoomRouter{log: log, rooms: rooms, registry: registry, presence: presence}
}

// Authorize loads the room and checks userID is one of its members. An unknown
// room is reported as forbidden so room ids cannot be guessed.
func (r *RoomRouter) Authorize(userID domain.UserID, roomID domain.RoomID) (domain.Room, error) {
	if roomID == "" {
		return domain.Room{}, errors.ErrInvalidRoomID
	}
	room, err := r.rooms.GetRoom(roomID)
	if errors.Is(err, errors.ErrRoomNotFound) {
		return domain.Room{}, errors.ErrForbiddenRoomAccess
	}
	if err != nil {
		return domain.Room{}, err
	}
	if !room.IsMember(userID) {
		return domain.Room{}, errors.ErrForbiddenRoomAccess
	}
	return room, nil
}

// RequireJoined checks the connection currently belongs to the room group.
func (r *RoomRouter) RequireJoined(session domain.Session, roomID domain.RoomID) error {
	if roomID == "" {
		return errors.ErrInvalidRoomID
	}
	if !r.registry.Joined(roomID, session.ConnID) {
		return errors.ErrForbiddenRoomAccess
	}
	return nil
}

func (r *RoomRouter) Join(ctx context.Context, session domain.Session, roomID domain.RoomID) error {
	if _, err := r.Authorize(session.UserID(), roomID); err != nil {
		return err
	}
	if !r.registry.JoinRoom(roomID, session.ConnID) {
		// already in the group, the joiner still gets a fresh list
		return r.presence.Refresh(ctx, roomID)
	}
	r.log.Debug("Connection joined room", "room_id", roomID, "user_id", session.UserID(), "conn_id", session.ConnID)
	return r.presence.Online(ctx, roomID, session.Profile)
}

// Leave is unconditional and idempotent.
func (r *RoomRouter) Leave(ctx context.Context, session domain.Session, roomID domain.RoomID) error {
	if roomID == "" {
		return errors.ErrInvalidRoomID
	}
	if !r.registry.LeaveRoom(roomID, session.ConnID) {
		return nil
	}
	return r.presence.Offline(ctx, roomID, session.UserID())
}
