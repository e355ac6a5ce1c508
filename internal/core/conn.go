// Package core is the signaling protocol engine: connection sessions, the
// room registry, message routing and the hub that ties them together. It
// knows nothing about websockets or HTTP; the transport adapter hands it an
// ordered, message-framed connection and gets frames back.
package core

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Frame is one marshaled protocol envelope.
type Frame []byte

// ClientID is the process-unique identity assigned to a connection at accept.
type ClientID string

// SignalConnection is the transport endpoint of one client.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Responder delivers the per-request acknowledgment back to the caller.
// errMsg is the wire error code, empty on success. Protocol failures are
// always reported this way, never by dropping the connection.
type Responder func(errMsg string, data any)

// safeCb lets handlers call the responder unconditionally even when the
// client did not ask for an ack.
func safeCb(cb Responder) Responder {
	if cb != nil {
		return cb
	}
	return func(string, any) {}
}

// Envelope frames every message in both directions.
type Envelope struct {
	Type  string `json:"type"`
	ID    *int64 `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func push(event string, data any) Frame {
	b, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "core").Str("event", event).Msg("marshal push")
		return nil
	}
	return b
}
