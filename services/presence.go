package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/runtime"
	"context"
	"log/slog"
)

// PresenceNotifier applies presence changes and broadcasts their outcome to
// the room group.
type PresenceNotifier struct {
	log       *slog.Logger
	presence  *runtime.Presence
	publisher contract.IPublisher
}

func NewPresenceNotifier(log *slog.Logger, presence *runtime.Presence, publisher contract.IPublisher) *PresenceNotifier {
	return &PresenceNotifier{log: log, presence: presence, publisher: publisher}
}

// Online counts one more connection of the user in the room and broadcasts the
// room's online list.
func (p *PresenceNotifier) Online(ctx context.Context, roomID domain.RoomID, profile domain.Profile) error {
	users := p.presence.Add(roomID, profile)
	return p.publisher.Publish(ctx, event.Delivery{
		To:    event.ToRoom(roomID),
		Event: event.PresenceList{RoomID: roomID, Users: users},
	})
}

// Refresh broadcasts the room's online list without changing it.
func (p *PresenceNotifier) Refresh(ctx context.Context, roomID domain.RoomID) error {
	return p.publisher.Publish(ctx, event.Delivery{
		To:    event.ToRoom(roomID),
		Event: event.PresenceList{RoomID: roomID, Users: p.presence.Snapshot(roomID)},
	})
}

// Offline drops one connection of the user from the room. presence:offline is
// only broadcast when it was the user's last connection there.
func (p *PresenceNotifier) Offline(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	if !p.presence.Remove(roomID, userID) {
		return nil
	}
	p.log.Debug("User offline", "room_id", roomID, "user_id", userID)
	return p.publisher.Publish(ctx, event.Delivery{
		To:    event.ToRoom(roomID),
		Event: event.PresenceOffline{RoomID: roomID, UserID: userID},
	})
}
