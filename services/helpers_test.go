package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

const secret = "a-very-long-test-secret"

// recorder stands in for the bus: it keeps every delivery in publication order.
type recorder struct {
	mu         sync.Mutex
	deliveries []event.Delivery
}

func (r *recorder) Publish(ctx context.Context, deliveries ...event.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, deliveries...)
	return nil
}

func (r *recorder) ofType(t event.Type) []event.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(r.deliveries, func(d event.Delivery, _ int) bool { return d.Event.Type() == t })
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}

type fakeConn struct {
	id       string
	mu       sync.Mutex
	received []event.DomainEvent
	closed   chan struct{}
	once     sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString(), closed: make(chan struct{})}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *fakeConn) Consume(ctx context.Context, e event.DomainEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, e)
	return nil
}

func (c *fakeConn) events() []event.DomainEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.DomainEvent(nil), c.received...)
}

type harness struct {
	log           *slog.Logger
	tokens        *auth.TokenManager
	users         repositories.IUserRepository
	rooms         repositories.RoomRepository
	messages      repositories.MessageRepository
	notifications repositories.NotificationRepository
	registry      *runtime.Registry
	presence      *runtime.Presence
	publisher     *recorder
	locks         *runtime.RoomLocks

	router              *RoomRouter
	binder              *SessionBinder
	typing              *TypingRelay
	fanout              *NotificationFanout
	coordinator         *DeliveryCoordinator
	receipts            *ReceiptAggregator
	roomService         *RoomService
	notificationService *NotificationService
	analytics           *AnalyticsService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	h := &harness{
		log:           log,
		tokens:        auth.NewTokenManager(secret, "chat-relay"),
		users:         repositories.NewUserRepository(db),
		rooms:         repositories.NewRoomRepository(db, log),
		messages:      repositories.NewMessageRepository(db, log),
		notifications: repositories.NewNotificationRepository(db, log),
		registry:      runtime.NewRegistry(),
		presence:      runtime.NewPresence(4),
		publisher:     &recorder{},
		locks:         runtime.NewRoomLocks(),
	}
	pagination := Pagination{Default: 20, Max: 50}
	presence := NewPresenceNotifier(log, h.presence, h.publisher)
	h.router = NewRoomRouter(log, h.rooms, h.registry, presence)
	h.binder = NewSessionBinder(log, h.users, h.registry, presence)
	h.typing = NewTypingRelay(h.router, h.publisher)
	h.fanout = NewNotificationFanout(log, h.rooms, h.notifications, h.publisher)
	h.coordinator = NewDeliveryCoordinator(log, h.router, moderation.NewSanitizer(log, nil),
		h.users, h.rooms, h.messages, h.locks, h.publisher, h.fanout, 5000, pagination)
	h.receipts = NewReceiptAggregator(log, h.router, h.messages, h.publisher)
	h.roomService = NewRoomService(log, h.users, h.rooms, h.messages, h.notifications, h.fanout, h.locks, h.publisher)
	h.notificationService = NewNotificationService(log, h.notifications, h.publisher, pagination)
	h.analytics = NewAnalyticsService(log, h.messages)
	return h
}

func (h *harness) user(t *testing.T, username string) domain.User {
	t.Helper()
	user, err := h.users.CreateUser(username, username+" display")
	require.NoError(t, err)
	return user
}

func (h *harness) room(t *testing.T, creator domain.User, members ...domain.User) domain.Room {
	t.Helper()
	room, err := h.roomService.Create(creator.ID, "general")
	require.NoError(t, err)
	if len(members) > 0 {
		room, _, err = h.rooms.AddMembers(room.ID, lo.Map(members, func(u domain.User, _ int) domain.UserID { return u.ID })...)
		require.NoError(t, err)
	}
	return room
}

// connect authenticates user and binds a fake connection to it.
func (h *harness) connect(t *testing.T, user domain.User) (domain.Session, *fakeConn) {
	t.Helper()
	token, err := h.tokens.GenerateToken(user.ID, []string{"user"}, time.Hour)
	require.NoError(t, err)
	claims, err := h.tokens.ValidateToken(token)
	require.NoError(t, err)
	session, err := h.binder.Resolve(claims)
	require.NoError(t, err)
	conn := newFakeConn()
	return h.binder.Bind(session, conn), conn
}

func (h *harness) online(roomID domain.RoomID, userID domain.UserID) bool {
	return lo.ContainsBy(h.presence.Snapshot(roomID), func(p domain.Profile) bool { return p.ID == userID })
}

func post(sender domain.User, room domain.RoomID, content string) domain.PostMessageCommand {
	return domain.PostMessageCommand{Room: room, Sender: sender.Profile(), Content: content, CorrelationID: uuid.NewString()}
}
