package core

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/config"
)

// fakeConn records every frame the core enqueues.
type fakeConn struct {
	mu     sync.Mutex
	frames []Frame
	closed bool
}

func (f *fakeConn) TrySend(fr Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

type sentEnvelope struct {
	Type  string          `json:"type"`
	ID    *int64          `json:"id"`
	Error string          `json:"error"`
	Data  json.RawMessage `json:"data"`
}

func (f *fakeConn) envelopes(t *testing.T) []sentEnvelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEnvelope, 0, len(f.frames))
	for _, fr := range f.frames {
		var env sentEnvelope
		if err := json.Unmarshal(fr, &env); err != nil {
			t.Fatalf("undecodable frame %q: %v", fr, err)
		}
		out = append(out, env)
	}
	return out
}

// ofType returns the decoded data payloads of every pushed frame of one event.
func (f *fakeConn) ofType(t *testing.T, event string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, env := range f.envelopes(t) {
		if env.Type != event {
			continue
		}
		payload := map[string]any{}
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				t.Fatalf("undecodable %s payload %q: %v", event, env.Data, err)
			}
		}
		out = append(out, payload)
	}
	return out
}

var testNow = time.Unix(1700000000, 0)

func newTestHub(maxClients int) *Hub {
	h := NewHub(&config.Config{
		RoomMaxClients: maxClients,
		StunServers:    []config.StunServer{{URL: "stun:stun.test:3478"}},
		TurnServers:    []config.TurnServer{{Secret: "hunter2", URLs: []string{"turn:turn.test:3478"}, Expiry: 600}},
	})
	h.now = func() time.Time { return testNow }
	return h
}

// ack captures a single responder invocation.
type ack struct {
	called bool
	err    string
	data   any
}

func (a *ack) responder() Responder {
	return func(errMsg string, data any) {
		a.called = true
		a.err = errMsg
		a.data = data
	}
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}
