package runtime

import (
	"chat-relay/domain"
	"sync"
)

// RoomLocks hands out one mutex per room. Holding it across "assign creation
// instant, persist, publish" is what makes broadcast order equal persistence
// order inside a room, without serializing unrelated rooms.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[domain.RoomID]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[domain.RoomID]*roomLock)}
}

// Lock blocks until the room's mutex is held and returns its release func.
// Entries are reference counted and dropped once nobody holds or waits on them.
func (l *RoomLocks) Lock(roomID domain.RoomID) func() {
	l.mu.Lock()
	lock, ok := l.locks[roomID]
	if !ok {
		lock = &roomLock{}
		l.locks[roomID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}
