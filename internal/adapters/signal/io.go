package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess *core.Session, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Msg("readPump closing")
		cancel()
		sess.Close()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(sess, c, data)
		}
	}
}

// inbound is the client side of the envelope; data stays raw for the router.
type inbound struct {
	Type string          `json:"type"`
	ID   *int64          `json:"id"`
	Data json.RawMessage `json:"data"`
}

func (ctl *Controller) handleFrame(sess *core.Session, c *wsConn, data []byte) {
	var env inbound
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad json")
		return
	}

	var respond core.Responder
	if env.ID != nil {
		id := *env.ID
		respond = func(errMsg string, data any) {
			ctl.sendAck(c, id, errMsg, data)
		}
	}
	ctl.Router.Route(sess, env.Type, env.Data, respond)
}

func (ctl *Controller) sendHello(c *wsConn, id core.ClientID) {
	b, err := json.Marshal(core.Envelope{Type: "hello", Data: map[string]string{"id": string(id)}})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendHello marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendAck(c *wsConn, id int64, errMsg string, data any) {
	b, err := json.Marshal(core.Envelope{Type: "ack", ID: &id, Error: errMsg, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendAck marshal")
		return
	}
	_ = c.TrySend(b)
}
