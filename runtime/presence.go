package runtime

import (
	"chat-relay/domain"
	"hash/fnv"
	"sort"
	"sync"
)

// Presence is the process-local view of who is online in which room.
// Rooms are spread over shards so that unrelated rooms never contend on the
// same lock; every mutation of one room happens under its shard lock, which
// keeps concurrent joins and leaves of the same user from losing updates.
// A user stays online in a room while at least one of their connections is
// joined to it.
type Presence struct {
	shards []*presenceShard

	mu          sync.RWMutex
	profiles    map[domain.UserID]domain.Profile
	profileRefs map[domain.UserID]int
}

type presenceShard struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]map[domain.UserID]int
}

func NewPresence(shards int) *Presence {
	if shards < 1 {
		shards = 1
	}
	p := &Presence{
		shards:      make([]*presenceShard, shards),
		profiles:    make(map[domain.UserID]domain.Profile),
		profileRefs: make(map[domain.UserID]int),
	}
	for i := range p.shards {
		p.shards[i] = &presenceShard{rooms: make(map[domain.RoomID]map[domain.UserID]int)}
	}
	return p
}

func (p *Presence) shard(roomID domain.RoomID) *presenceShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	return p.shards[h.Sum32()%uint32(len(p.shards))]
}

// Add records one more connection of profile's user in the room and returns
// the room's online list as it is right after the addition.
func (p *Presence) Add(roomID domain.RoomID, profile domain.Profile) []domain.Profile {
	s := p.shard(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.rooms[roomID]
	if !ok {
		users = make(map[domain.UserID]int)
		s.rooms[roomID] = users
	}
	users[profile.ID]++

	p.mu.Lock()
	p.profiles[profile.ID] = profile
	if users[profile.ID] == 1 {
		p.profileRefs[profile.ID]++
	}
	p.mu.Unlock()

	return p.snapshot(users)
}

// Remove drops one connection of userID from the room. It reports whether the
// user went offline in that room, i.e. it was their last connection there.
func (p *Presence) Remove(roomID domain.RoomID, userID domain.UserID) bool {
	s := p.shard(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.rooms[roomID]
	if !ok || users[userID] == 0 {
		return false
	}
	users[userID]--
	if users[userID] > 0 {
		return false
	}
	delete(users, userID)
	if len(users) == 0 {
		delete(s.rooms, roomID)
	}

	p.mu.Lock()
	p.profileRefs[userID]--
	if p.profileRefs[userID] <= 0 {
		delete(p.profileRefs, userID)
		delete(p.profiles, userID)
	}
	p.mu.Unlock()
	return true
}

// Snapshot returns the room's online users ordered by id.
func (p *Presence) Snapshot(roomID domain.RoomID) []domain.Profile {
	s := p.shard(roomID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.snapshot(s.rooms[roomID])
}

// snapshot must be called with the shard lock held.
func (p *Presence) snapshot(users map[domain.UserID]int) []domain.Profile {
	p.mu.RLock()
	defer p.mu.RUnlock()

	list := make([]domain.Profile, 0, len(users))
	for userID := range users {
		profile, ok := p.profiles[userID]
		if !ok {
			profile = domain.Profile{ID: userID}
		}
		list = append(list, profile)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}
