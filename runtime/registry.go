package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"sync"
)

type Set map[string]struct{}

// Registry tracks the live connections and the broadcast groups they belong to:
// one personal group per user and one room group per joined room.
type Registry struct {
	mu          sync.RWMutex
	Sessions    map[string]contract.Connection // map connection -> Connection
	Owners      map[string]domain.UserID       // map connection -> user
	UserConns   map[domain.UserID]Set          // personal broadcast groups
	RoomMembers map[domain.RoomID]Set          // room broadcast groups
	ConnRooms   map[string]map[domain.RoomID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		Sessions:    make(map[string]contract.Connection),
		Owners:      make(map[string]domain.UserID),
		UserConns:   make(map[domain.UserID]Set),
		RoomMembers: make(map[domain.RoomID]Set),
		ConnRooms:   make(map[string]map[domain.RoomID]struct{}),
	}
}

// Attach registers a connection and binds it to its user's personal group.
func (r *Registry) Attach(userID domain.UserID, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Sessions[conn.ID()] = conn
	r.Owners[conn.ID()] = userID
	if _, ok := r.UserConns[userID]; !ok {
		r.UserConns[userID] = make(Set)
	}
	r.UserConns[userID][conn.ID()] = struct{}{}
}

// Detach removes a connection from every group and returns the rooms it had
// joined so presence can be cleaned up. Empty groups are dropped to prevent
// memory leaks over time.
func (r *Registry) Detach(connID string) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rooms []domain.RoomID
	for roomID := range r.ConnRooms[connID] {
		rooms = append(rooms, roomID)
		r.removeFromRoom(roomID, connID)
	}
	delete(r.ConnRooms, connID)

	if userID, ok := r.Owners[connID]; ok {
		if conns, ok := r.UserConns[userID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.UserConns, userID)
			}
		}
	}
	delete(r.Owners, connID)
	delete(r.Sessions, connID)
	return rooms
}

// JoinRoom adds the connection to the room group. It reports whether the
// connection was not already in it. Unknown connections are ignored.
func (r *Registry) JoinRoom(roomID domain.RoomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Sessions[connID]; !ok {
		return false
	}
	if _, ok := r.RoomMembers[roomID]; !ok {
		r.RoomMembers[roomID] = make(Set)
	}
	if _, ok := r.RoomMembers[roomID][connID]; ok {
		return false
	}
	r.RoomMembers[roomID][connID] = struct{}{}
	if _, ok := r.ConnRooms[connID]; !ok {
		r.ConnRooms[connID] = make(map[domain.RoomID]struct{})
	}
	r.ConnRooms[connID][roomID] = struct{}{}
	return true
}

// LeaveRoom removes the connection from the room group. Idempotent; it
// reports whether the connection was in the group.
func (r *Registry) LeaveRoom(roomID domain.RoomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.RoomMembers[roomID][connID]; !ok {
		return false
	}
	r.removeFromRoom(roomID, connID)
	if rooms, ok := r.ConnRooms[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.ConnRooms, connID)
		}
	}
	return true
}

func (r *Registry) removeFromRoom(roomID domain.RoomID, connID string) {
	if members, ok := r.RoomMembers[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.RoomMembers, roomID)
		}
	}
}

func (r *Registry) Joined(roomID domain.RoomID, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.RoomMembers[roomID][connID]
	return ok
}

// SinksFor resolves an audience into the sinks of its live connections.
// Returns nil if the group doesn't exist or is empty.
func (r *Registry) SinksFor(audience event.Audience, exceptConn string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var group Set
	switch audience.Kind {
	case event.RoomAudience:
		group = r.RoomMembers[audience.RoomID]
	case event.UserAudience:
		group = r.UserConns[audience.UserID]
	}

	var activeSinks []contract.EventSink
	for connID := range group {
		if connID == exceptConn {
			continue
		}
		if conn, exists := r.Sessions[connID]; exists {
			activeSinks = append(activeSinks, conn)
		}
	}
	return activeSinks
}

// Counts reports the number of live connections and non-empty room groups.
func (r *Registry) Counts() (connections int, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.Sessions), len(r.RoomMembers)
}

// CloseAll asks every live connection to close. Each one then runs its own
// disconnect path.
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	conns := make([]contract.Connection, 0, len(r.Sessions))
	for _, conn := range r.Sessions {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		conn.Close()
	}
	return len(conns)
}
