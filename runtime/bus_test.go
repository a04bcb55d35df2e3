package runtime

import (
	"chat-relay/domain/event"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_Publish_Keeps_Order(t *testing.T) {
	req := require.New(t)
	bus := NewBus(4)
	first := event.Delivery{To: event.ToRoom("room-1"), Event: event.TypingStarted{}}
	second := event.Delivery{To: event.ToRoom("room-1"), Event: event.TypingStopped{}}

	req.NoError(bus.Publish(context.Background(), first, second))
	req.Equal(2, bus.Len())
	req.Equal(4, bus.Cap())

	req.Equal(first, <-bus.Deliveries())
	req.Equal(second, <-bus.Deliveries())
}

func TestBus_Publish_Gives_Up_When_Context_Done(t *testing.T) {
	req := require.New(t)
	bus := NewBus(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := bus.Publish(ctx, event.Delivery{To: event.ToUser("alice")})
	req.ErrorIs(err, context.DeadlineExceeded)
}
