package core

import (
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry tracks which connections belong to which named room. It is the
// only state shared across connections, so every read-modify-write sequence
// on a room (capacity check + add, remove + count) runs under its lock: two
// simultaneous joins against a room at capacity cannot both succeed.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]map[ClientID]*Session
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomName]map[ClientID]*Session)}
}

func (r *Registry) MemberCount(room domain.RoomName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room])
}

// Exists is a derived predicate, not stored state: a room exists while it has
// members and vanishes with its last one.
func (r *Registry) Exists(room domain.RoomName) bool {
	return r.MemberCount(room) > 0
}

func (r *Registry) Describe(room domain.RoomName) domain.RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.describeLocked(room)
}

func (r *Registry) describeLocked(room domain.RoomName) domain.RoomInfo {
	members := r.rooms[room]
	info := domain.RoomInfo{
		RoomName:  room,
		RoomCount: len(members),
		Clients:   make(map[string]domain.Presence, len(members)),
	}
	for id, s := range members {
		info.Clients[string(id)] = s.Presence()
	}
	return info
}

// Add is idempotent; adding an existing member is a no-op.
func (r *Registry) Add(room domain.RoomName, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(room, s)
}

func (r *Registry) addLocked(room domain.RoomName, s *Session) {
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[ClientID]*Session)
		r.rooms[room] = members
	}
	members[s.ID] = s
}

// Remove is idempotent and returns the remaining member count. The room map
// entry is dropped with its last member.
func (r *Registry) Remove(room domain.RoomName, id ClientID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(room, id)
}

func (r *Registry) removeLocked(room domain.RoomName, id ClientID) int {
	members := r.rooms[room]
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, room)
		return 0
	}
	return len(members)
}

func (r *Registry) Members(room domain.RoomName) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membersLocked(room)
}

func (r *Registry) membersLocked(room domain.RoomName) []*Session {
	members := r.rooms[room]
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

// Join admits s into room under a single lock: the capacity guard, the
// pre-admission snapshot, the implicit departure from prev and the add are
// one atomic step. vacated holds the members of prev (s included) as of the
// moment of departure, for the remove broadcast.
func (r *Registry) Join(room, prev domain.RoomName, s *Session, max int) (info domain.RoomInfo, vacated []*Session, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if max > 0 && len(r.rooms[room]) >= max {
		return domain.RoomInfo{}, nil, ErrRoomFull
	}
	if prev != "" {
		vacated = r.membersLocked(prev)
		r.removeLocked(prev, s.ID)
	}
	info = r.describeLocked(room)
	r.addLocked(room, s)
	log.Debug().Str("module", "core.registry").Str("sid", string(s.ID)).Str("room", string(room)).Int("count", info.RoomCount+1).Msg("joined room")
	return info, vacated, nil
}

// Create is Join without the capacity guard, failing instead when the room
// already has members.
func (r *Registry) Create(room, prev domain.RoomName, s *Session) (info domain.RoomInfo, vacated []*Session, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rooms[room]) > 0 {
		return domain.RoomInfo{}, nil, ErrNameTaken
	}
	if prev != "" {
		vacated = r.membersLocked(prev)
		r.removeLocked(prev, s.ID)
	}
	info = r.describeLocked(room)
	r.addLocked(room, s)
	return info, vacated, nil
}

// RoomStat is a read-only listing entry for APIs.
type RoomStat struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

func (r *Registry) List() []RoomStat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomStat, 0, len(r.rooms))
	for name, members := range r.rooms {
		out = append(out, RoomStat{Name: name, MemberCount: len(members)})
	}
	return out
}
