package runtime

import (
	"chat-relay/domain/event"
	"context"
)

// Bus is the single in-process queue between the services and the fan-out
// worker. One queue with one consumer keeps the delivery order equal to the
// publication order.
type Bus struct {
	deliveries chan event.Delivery
}

func NewBus(bufferSize int) *Bus {
	return &Bus{deliveries: make(chan event.Delivery, bufferSize)}
}

// Publish blocks while the queue is full, until ctx is done.
func (b *Bus) Publish(ctx context.Context, deliveries ...event.Delivery) error {
	for _, d := range deliveries {
		select {
		case b.deliveries <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *Bus) Deliveries() <-chan event.Delivery {
	return b.deliveries
}

func (b *Bus) Len() int { return len(b.deliveries) }
func (b *Bus) Cap() int { return cap(b.deliveries) }
