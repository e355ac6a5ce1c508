package core

import (
	"sync"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle of one connection: Connected (no room) → InRoom →
// Connected again on leave; Closed is terminal.
type State int

const (
	StateConnected State = iota
	StateInRoom
	StateClosed
)

// Session is the per-connection state: presence flags, current room and the
// lifecycle position. It is mutated only in response to events on its own
// connection; the room registry is the only cross-connection state it
// touches.
type Session struct {
	ID   ClientID
	hub  *Hub
	conn SignalConnection

	mu    sync.Mutex // guards state and room
	state State
	room  domain.RoomName

	// presence has its own lock because the registry reads it while
	// building snapshots, concurrently with this session's own calls.
	pmu      sync.RWMutex
	presence domain.Presence
}

func (s *Session) Presence() domain.Presence {
	s.pmu.RLock()
	defer s.pmu.RUnlock()
	return s.presence
}

func (s *Session) SetProfile(profile map[string]any) {
	s.pmu.Lock()
	s.presence.Profile = profile
	s.pmu.Unlock()
}

func (s *Session) Room() domain.RoomName {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Join moves the session into room, implicitly leaving the current one
// first. The returned snapshot shows the room as of just before admission.
func (s *Session) Join(room domain.RoomName) (domain.RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return domain.RoomInfo{}, errClosed
	}
	if room == "" {
		return domain.RoomInfo{}, ErrInvalidName
	}
	info, vacated, err := s.hub.registry.Join(room, s.room, s, s.hub.maxClients())
	if err != nil {
		return domain.RoomInfo{}, err
	}
	if s.room != "" {
		s.hub.notifyRemove(vacated, s.ID, "")
	}
	s.room = room
	s.state = StateInRoom
	return info, nil
}

// Create behaves as Join but generates a name when none is given and fails
// with ErrNameTaken on an occupied room. The capacity guard does not apply:
// the room is empty by construction.
func (s *Session) Create(room domain.RoomName) (domain.RoomName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return "", errClosed
	}
	if room == "" {
		room = domain.RoomName(uuid.NewString())
	}
	_, vacated, err := s.hub.registry.Create(room, s.room, s)
	if err != nil {
		return "", err
	}
	if s.room != "" {
		s.hub.notifyRemove(vacated, s.ID, "")
	}
	s.room = room
	s.state = StateInRoom
	return room, nil
}

// Leave is a no-op outside a room. It notifies the vacated room and reports
// its post-leave member count through the leave hook.
func (s *Session) Leave() {
	s.mu.Lock()
	room, remaining, left := s.leaveLocked()
	s.mu.Unlock()
	if left {
		s.hub.emitLeave(s, room, remaining)
	}
}

func (s *Session) leaveLocked() (domain.RoomName, int, bool) {
	if s.room == "" {
		return "", 0, false
	}
	room := s.room
	// The departing member is still joined here, so it receives its own
	// remove notification, same as everyone else in the room.
	s.hub.notifyRemove(s.hub.registry.Members(room), s.ID, "")
	remaining := s.hub.registry.Remove(room, s.ID)
	s.room = ""
	s.state = StateConnected
	return room, remaining, true
}

// SetScreenShare flips the screen presence flag. Turning it off additionally
// tells the current room to drop the screen feed, without leaving.
func (s *Session) SetScreenShare(on bool) {
	s.pmu.Lock()
	s.presence.Screen = on
	s.pmu.Unlock()
	if on {
		return
	}
	s.mu.Lock()
	room := s.room
	s.mu.Unlock()
	if room != "" {
		s.hub.notifyRemove(s.hub.registry.Members(room), s.ID, "screen")
	}
}

// Close is the terminal transition: leave, then forget the session. Triggered
// exactly once by the transport teardown and safe to call again.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	room, remaining, left := s.leaveLocked()
	s.state = StateClosed
	s.mu.Unlock()

	s.hub.dropSession(s.ID)
	if left {
		s.hub.emitLeave(s, room, remaining)
	}
	log.Info().Str("module", "core.session").Str("sid", string(s.ID)).Msg("session closed")
}
