package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanoutWorker_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink1 := mocks.NewMockEventSink(ctrl)
	mockSink2 := mocks.NewMockEventSink(ctrl)

	fanoutWorker := NewEventFanout(log, nil, mockRegistry, time.Second, 8)
	evt := event.TypingStarted{Typing: event.Typing{RoomID: "room-1", UserID: "alice"}}
	delivery := event.Delivery{To: event.ToRoom("room-1"), ExceptConn: "conn-alice", Event: evt}

	// Given two sinks are resolved for the room, sender excluded
	mockRegistry.EXPECT().SinksFor(event.ToRoom("room-1"), "conn-alice").
		Return([]contract.EventSink{mockSink1, mockSink2}).Times(1)
	// Then each of them consumes the event once
	mockSink1.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	mockSink2.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	// When the delivery is handled by the worker
	fanoutWorker.Fanout(context.Background(), delivery)
	fanoutWorker.Wait()

	delivered, dropped := fanoutWorker.Stats()
	req.Equal(uint64(2), delivered)
	req.Zero(dropped)
}

func TestEventFanoutWorker_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)
	fastSink := mocks.NewMockEventSink(ctrl)

	fanoutWorker := NewEventFanout(log, nil, mockRegistry, 20*time.Millisecond, 8)

	mockRegistry.EXPECT().SinksFor(gomock.Any(), gomock.Any()).
		Return([]contract.EventSink{slowSink, fastSink}).Times(1)
	// Given the first sink never accepts the event
	slowSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)
	// Then the next sink still gets it
	fastSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	fanoutWorker.Fanout(context.Background(), event.Delivery{To: event.ToUser("bob"), Event: event.NotificationRead{ID: "n1"}})
	fanoutWorker.Wait()

	delivered, dropped := fanoutWorker.Stats()
	req.Equal(uint64(1), delivered)
	req.Equal(uint64(1), dropped)
}

func TestEventFanoutWorker_Run_Preserves_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	deliveries := make(chan event.Delivery, 3)
	fanoutWorker := NewEventFanout(log, deliveries, mockRegistry, time.Second, 8)

	var received []event.DomainEvent
	done := make(chan struct{})
	mockRegistry.EXPECT().SinksFor(gomock.Any(), gomock.Any()).
		Return([]contract.EventSink{mockSink}).Times(3)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			received = append(received, evt)
			if len(received) == 3 {
				close(done)
			}
			return nil
		}).Times(3)

	events := []event.DomainEvent{
		event.MessageCreated{ID: "m1"},
		event.MessageCreated{ID: "m2"},
		event.MessageCreated{ID: "m3"},
	}
	for _, evt := range events {
		deliveries <- event.Delivery{To: event.ToRoom("room-1"), Event: evt}
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error)
	go func() { stopped <- fanoutWorker.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Deliveries were not fanned out in time")
	}
	cancel()
	req.NoError(<-stopped)
	req.Equal(events, received)
}

type blockedSink struct{ name string }

func (blockedSink) Consume(ctx context.Context, _ event.DomainEvent) error {
	<-ctx.Done()
	return ctx.Err()
}

type recordingSink struct{ received chan event.DomainEvent }

func (s recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.received <- e
	return nil
}

func TestEventFanoutWorker_Slow_Sink_Does_Not_Stall_Other_Rooms(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	stuck := &blockedSink{name: "stuck"}
	other := recordingSink{received: make(chan event.DomainEvent, 1)}

	fanoutWorker := NewEventFanout(log, nil, mockRegistry, 2*time.Second, 2)
	mockRegistry.EXPECT().SinksFor(event.ToRoom("room-a"), "").Return([]contract.EventSink{stuck}).Times(3)
	mockRegistry.EXPECT().SinksFor(event.ToRoom("room-b"), "").Return([]contract.EventSink{other}).Times(1)
	ctx, cancel := context.WithCancel(context.Background())

	// Given a connection in room A that never accepts anything
	for _, id := range []string{"m1", "m2", "m3"} {
		fanoutWorker.Fanout(ctx, event.Delivery{To: event.ToRoom("room-a"), Event: event.MessageCreated{ID: domain.MessageID(id)}})
	}

	// When an event is published to room B
	start := time.Now()
	fanoutWorker.Fanout(ctx, event.Delivery{To: event.ToRoom("room-b"), Event: event.MessageCreated{ID: "m4"}})

	// Then room B gets it without waiting on the sink timeout of room A
	select {
	case e := <-other.received:
		req.Equal(event.MessageCreated{ID: "m4"}, e)
	case <-time.After(500 * time.Millisecond):
		req.Fail("room B was stalled by a slow connection in room A")
	}
	req.Less(time.Since(start), time.Second)

	// And the stuck connection only loses its own events
	cancel()
	fanoutWorker.Wait()
	delivered, dropped := fanoutWorker.Stats()
	req.Equal(uint64(1), delivered)
	req.Equal(uint64(3), dropped)
}
