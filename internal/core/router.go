package core

import (
	"encoding/json"
	"os"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Message is the freeform payload of a relay event. The router only looks at
// the "to" field and stamps "from"; everything else passes through verbatim.
type Message map[string]any

const (
	infoNoTarget = "no specify a client, should send to the room !"
	infoSent     = "the message is sent"
)

type infoPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type readyInfo struct {
	RoomName string `json:"roomName"`
	PID      int    `json:"pid"`
}

// Router dispatches inbound protocol events to the session state machine and
// implements the private-message relay. It guarantees enqueue-to-transport,
// never delivery.
type Router struct {
	hub *Hub
}

func NewRouter(h *Hub) *Router {
	return &Router{hub: h}
}

// Route handles one inbound event for s. respond may be nil when the client
// did not ask for an ack. Malformed input answers through the responder; it
// never tears the connection down.
func (r *Router) Route(s *Session, event string, data json.RawMessage, respond Responder) {
	cb := safeCb(respond)
	switch event {
	case "join":
		r.join(s, data, cb)
	case "leave", "bye":
		r.leave(s)
	case "create":
		r.create(s, data, cb)
	case "message":
		r.message(s, data, cb)
	case "shareScreen":
		s.SetScreenShare(true)
	case "unshareScreen":
		s.SetScreenShare(false)
	default:
		log.Warn().Str("module", "core.router").Str("event", event).Str("sid", string(s.ID)).Msg("unknown event")
	}
}

func (r *Router) join(s *Session, data json.RawMessage, cb Responder) {
	var name string
	if err := json.Unmarshal(data, &name); err != nil || name == "" {
		cb(ErrInvalidName.Error(), nil)
		return
	}
	room := domain.RoomName(name)
	info, err := s.Join(room)
	if err != nil {
		cb(err.Error(), nil)
		return
	}
	cb("", info)
	r.afterJoin(s, room)
}

// afterJoin announces the membership change: a registered join hook takes
// over, otherwise the joiner gets the default ready push.
func (r *Router) afterJoin(s *Session, room domain.RoomName) {
	if h := r.hub.hooks.Join; h != nil {
		h(room, s)
		return
	}
	_ = s.conn.TrySend(push("ready", readyInfo{RoomName: string(room), PID: os.Getpid()}))
}

func (r *Router) leave(s *Session) {
	s.Leave()
	_ = s.conn.TrySend(push("left", nil))
}

func (r *Router) create(s *Session, data json.RawMessage, cb Responder) {
	var name string
	// a missing or non-string payload just means "pick a name for me"
	_ = json.Unmarshal(data, &name)
	room, err := s.Create(domain.RoomName(name))
	if err != nil {
		cb(err.Error(), nil)
		return
	}
	cb("", string(room))
	r.afterJoin(s, room)
}

func (r *Router) message(s *Session, data json.RawMessage, cb Responder) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil || msg == nil {
		return
	}

	// An external subscriber claims the whole relay concern.
	if h := r.hub.hooks.Message; h != nil {
		h(s, msg)
		return
	}

	to, _ := msg["to"].(string)
	if to == "" {
		cb("", infoPayload{Type: "info", Message: infoNoTarget})
		return
	}

	msg["from"] = string(s.ID)
	if target, ok := r.hub.Session(ClientID(to)); ok {
		if err := target.conn.TrySend(push("message", msg)); err != nil {
			log.Debug().Str("module", "core.router").Str("to", to).Err(err).Msg("forward dropped")
		}
	}
	// Unknown or closed targets drop silently: the relay acknowledges the
	// enqueue attempt, not delivery.
	cb("", infoPayload{Type: "info", Message: infoSent})
}
