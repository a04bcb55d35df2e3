package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// EventFanout is the single consumer of the delivery queue. It resolves each
// delivery's audience against the registry and posts the event to a mailbox
// per sink. Each mailbox is drained by its own goroutine, so a connection sees
// events in publication order and a slow connection only delays itself.
// A full mailbox drops the event for that sink, and a sink that does not
// accept an event within sinkTimeout loses it. Lost events are never retried.
type EventFanout struct {
	log         *slog.Logger
	deliveries  <-chan event.Delivery
	registry    contract.IRegistry
	sinkTimeout time.Duration
	mailboxSize int

	mu        sync.Mutex
	mailboxes map[contract.EventSink]chan event.DomainEvent
	wg        sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func NewEventFanout(log *slog.Logger, deliveries <-chan event.Delivery,
	registry contract.IRegistry, sinkTimeout time.Duration, mailboxSize int) *EventFanout {
	return &EventFanout{
		log:         log,
		deliveries:  deliveries,
		registry:    registry,
		sinkTimeout: sinkTimeout,
		mailboxSize: max(mailboxSize, 1),
		mailboxes:   make(map[contract.EventSink]chan event.DomainEvent),
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case d := <-w.deliveries:
			w.Fanout(ctx, d)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping delivery fan-out")
			w.Wait()
			return nil
		}
	}
}

// Fanout posts one event to every sink of its audience. It never waits on
// a sink.
func (w *EventFanout) Fanout(ctx context.Context, d event.Delivery) {
	for _, sink := range w.registry.SinksFor(d.To, d.ExceptConn) {
		w.post(ctx, sink, d.Event)
	}
}

func (w *EventFanout) post(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	mailbox, ok := w.mailboxes[sink]
	if !ok {
		mailbox = make(chan event.DomainEvent, w.mailboxSize)
		w.mailboxes[sink] = mailbox
		w.wg.Add(1)
		go w.drain(ctx, sink, mailbox)
	}
	select {
	case mailbox <- e:
	default:
		w.dropped.Add(1)
		w.log.Debug("Event dropped, mailbox full", "type", e.Type())
	}
}

// drain delivers the mailbox content in order and retires the mailbox once
// it is empty. Retiring happens under the lock so post never writes to a
// mailbox nobody reads.
func (w *EventFanout) drain(ctx context.Context, sink contract.EventSink, mailbox chan event.DomainEvent) {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		select {
		case e := <-mailbox:
			w.mu.Unlock()
			w.deliver(ctx, sink, e)
		default:
			delete(w.mailboxes, sink)
			w.mu.Unlock()
			return
		}
	}
}

func (w *EventFanout) deliver(ctx context.Context, sink contract.EventSink, e event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err := sink.Consume(sinkCtx, e); err != nil {
		w.dropped.Add(1)
		w.log.Debug("Event dropped", "type", e.Type(), "error", err)
		return
	}
	w.delivered.Add(1)
}

// Wait blocks until every mailbox posted so far has been drained.
func (w *EventFanout) Wait() {
	w.wg.Wait()
}

// Stats returns the number of events handed to sinks and dropped so far.
func (w *EventFanout) Stats() (delivered, dropped uint64) {
	return w.delivered.Load(), w.dropped.Load()
}
