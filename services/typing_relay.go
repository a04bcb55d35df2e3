package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
)

// TypingRelay forwards typing signals to the other connections of the room.
// Nothing is stored or debounced.
type TypingRelay struct {
	router    IRoomRouter
	publisher contract.IPublisher
}

func NewTypingRelay(router IRoomRouter, publisher contract.IPublisher) *TypingRelay {
	return &TypingRelay{router: router, publisher: publisher}
}

func (t *TypingRelay) Start(ctx context.Context, session domain.Session, roomID domain.RoomID) error {
	return t.relay(ctx, session, roomID, func(typing event.Typing) event.DomainEvent {
		return event.TypingStarted{Typing: typing}
	})
}

func (t *TypingRelay) Stop(ctx context.Context, session domain.Session, roomID domain.RoomID) error {
	return t.relay(ctx, session, roomID, func(typing event.Typing) event.DomainEvent {
		return event.TypingStopped{Typing: typing}
	})
}

func (t *TypingRelay) relay(ctx context.Context, session domain.Session, roomID domain.RoomID,
	build func(event.Typing) event.DomainEvent) error {
	if err := t.router.RequireJoined(session, roomID); err != nil {
		return err
	}
	return t.publisher.Publish(ctx, event.Delivery{
		To:         event.ToRoom(roomID),
		ExceptConn: session.ConnID,
		Event: build(event.Typing{
			RoomID:      roomID,
			UserID:      session.UserID(),
			DisplayName: session.Profile.DisplayName,
		}),
	})
}
