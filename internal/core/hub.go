package core

import (
	"sync"
	"time"

	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/turn"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Hooks lets surrounding application code observe protocol events or take
// them over. A non-nil Message handler claims every relay message: the
// built-in forwarding is skipped entirely (e.g. to route everything through a
// media bridge). A non-nil Join handler suppresses the default ready push to
// the joiner. Connection and Leave are purely observational.
type Hooks struct {
	Connection func(*Session)
	Message    func(*Session, Message)
	Join       func(domain.RoomName, *Session)
	Leave      func(*Session, domain.RoomName, int)
}

// Hub owns the room registry and the set of live sessions. It wires each new
// transport connection into the protocol engine and is the only place
// configuration enters the core.
type Hub struct {
	cfg      *config.Config
	registry *Registry
	hooks    Hooks
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[ClientID]*Session
}

func NewHub(cfg *config.Config) *Hub {
	return &Hub{
		cfg:      cfg,
		registry: NewRegistry(),
		now:      time.Now,
		sessions: make(map[ClientID]*Session),
	}
}

// Subscribe registers the external hooks. Call it before serving traffic;
// the hub does not support swapping hooks under load.
func (h *Hub) Subscribe(hooks Hooks) {
	h.hooks = hooks
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) Session(id ClientID) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Hub) maxClients() int { return h.cfg.RoomMaxClients }

// Accept turns a fresh transport connection into a Session. Before any
// client-initiated event the new connection is told about the STUN services
// and gets TURN credentials minted for its origin.
func (h *Hub) Accept(conn SignalConnection, origin string) *Session {
	s := &Session{
		ID:       ClientID(uuid.NewString()),
		hub:      h,
		conn:     conn,
		presence: domain.NewPresence(),
	}
	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()

	h.pushICEServers(s, origin)
	if h.hooks.Connection != nil {
		h.hooks.Connection(s)
	}
	log.Info().Str("module", "core.hub").Str("sid", string(s.ID)).Str("origin", origin).Msg("connection accepted")
	return s
}

type iceServers struct {
	StunServers []config.StunServer `json:"stunservers"`
	TurnServers []turn.Credential   `json:"turnservers"`
}

func (h *Hub) pushICEServers(s *Session, origin string) {
	info := iceServers{
		StunServers: h.cfg.StunServers,
		TurnServers: turn.Vend(h.cfg.TurnServers, h.cfg.TurnOrigins, origin, h.now()),
	}
	if info.StunServers == nil {
		info.StunServers = []config.StunServer{}
	}
	if info.TurnServers == nil {
		info.TurnServers = []turn.Credential{}
	}
	_ = s.conn.TrySend(push("iceservers", info))
}

func (h *Hub) dropSession(id ClientID) {
	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()
}

type removeInfo struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// notifyRemove tells room members that id withdrew a feed. An empty kind
// means the member itself is gone; "screen" withdraws just the screen feed.
func (h *Hub) notifyRemove(members []*Session, id ClientID, kind string) {
	frame := push("remove", removeInfo{ID: string(id), Type: kind})
	for _, m := range members {
		if err := m.conn.TrySend(frame); err != nil {
			log.Debug().Str("module", "core.hub").Str("sid", string(m.ID)).Err(err).Msg("remove notify dropped")
		}
	}
}

func (h *Hub) emitLeave(s *Session, room domain.RoomName, remaining int) {
	if h.hooks.Leave != nil {
		h.hooks.Leave(s, room, remaining)
	}
}
