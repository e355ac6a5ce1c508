// Package signal is the websocket transport collaborator: it upgrades HTTP
// requests, owns the read/write pumps per connection and translates wire
// frames into core router events.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dkeye/Relay/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

type Controller struct {
	Hub       *core.Hub
	Router    *core.Router
	ReadLimit int64
}

func NewController(hub *core.Hub) *Controller {
	return &Controller{Hub: hub, Router: core.NewRouter(hub)}
}

// wsConn adapts a gorilla connection to core.SignalConnection. Sends are
// buffered and never block the caller; a full buffer reports backpressure.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and hands the connection to the hub. The
// session lives exactly as long as the transport: the read pump closing it is
// the single close transition.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	sess := ctl.Hub.Accept(conn, c.GetHeader("Origin"))
	// the socket itself is the only way a client can learn its own identity
	ctl.sendHello(conn, sess.ID)
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Str("ct", c.GetString("client_token")).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}
