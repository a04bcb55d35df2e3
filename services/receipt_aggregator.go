package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

// ReceiptAggregator records read progress. A mark-read request only ever
// appends receipts that do not exist yet, so replaying it is a no-op.
type ReceiptAggregator struct {
	log       *slog.Logger
	router    IRoomRouter
	messages  repositories.IMessageRepository
	publisher contract.IPublisher
}

func NewReceiptAggregator(log *slog.Logger, router IRoomRouter,
	messages repositories.IMessageRepository, publisher contract.IPublisher) *ReceiptAggregator {
	return &ReceiptAggregator{log: log, router: router, messages: messages, publisher: publisher}
}

// MarkRead appends a receipt to the targeted message, or to every message up
// to cmd.UpTo, in one batch. One message:read event is broadcast per receipt
// actually added.
func (r *ReceiptAggregator) MarkRead(ctx context.Context, cmd domain.MarkReadCommand) ([]event.MessageRead, error) {
	if cmd.MessageID == nil && cmd.UpTo == nil {
		return nil, errors.ErrInvalidPayload
	}
	if _, err := r.router.Authorize(cmd.UserID, cmd.Room); err != nil {
		return nil, err
	}

	// On a partial failure the receipts already committed are still announced
	updated, storeErr := r.messages.AddReceipts(cmd, time.Now().UTC())
	if len(updated) == 0 {
		return nil, storeErr
	}

	reads := lo.Map(updated, func(m domain.Message, _ int) event.MessageRead {
		receipt, _ := lo.Find(m.ReadBy, func(rr domain.ReadReceipt) bool { return rr.UserID == cmd.UserID })
		return event.MessageRead{RoomID: m.RoomID, MessageID: m.ID, UserID: cmd.UserID, At: receipt.At}
	})
	deliveries := lo.Map(reads, func(read event.MessageRead, _ int) event.Delivery {
		return event.Delivery{To: event.ToRoom(cmd.Room), Event: read}
	})
	r.log.Debug("Receipts added", "room_id", cmd.Room, "user_id", cmd.UserID, "count", len(reads))
	if err := r.publisher.Publish(ctx, deliveries...); err != nil {
		return reads, err
	}
	return reads, storeErr
}
