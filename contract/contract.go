//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, avoiding a Name method on Worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the write side of one live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Connection is a live real-time connection known to the registry.
type Connection interface {
	EventSink
	ID() string
	// Close forcibly disconnects. Cleanup then runs through the normal
	// disconnect path.
	Close()
}

type IRegistry interface {
	Attach(userID domain.UserID, conn Connection)
	Detach(connID string) []domain.RoomID
	JoinRoom(roomID domain.RoomID, connID string) bool
	LeaveRoom(roomID domain.RoomID, connID string) bool
	Joined(roomID domain.RoomID, connID string) bool
	SinksFor(audience event.Audience, exceptConn string) []EventSink
}

// IPublisher hands deliveries to the fan-out worker.
type IPublisher interface {
	Publish(ctx context.Context, deliveries ...event.Delivery) error
}
