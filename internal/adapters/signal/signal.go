// Package signal is the WebSocket controller for the collaboration relay.
// It parses JSON envelopes, hands intents to the orchestrator and fans the
// resulting events back out. All payload knowledge lives here; the
// orchestrator never sees JSON.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/app/orch"
	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *ConnRateLimiter
}

func NewSignalWSController(o *orch.Orchestrator) *SignalWSController {
	ctl := &SignalWSController{
		Orch:    o,
		Limiter: NewConnRateLimiter(120, time.Second),
	}
	// Policy kicks happen deep inside a broadcast; route their fallout
	// through the same departure path the disconnect teardown uses.
	o.OnDeparture = ctl.notifyDeparture
	return ctl
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
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

func (c *WsSignalConn) Close() {
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

// HandleCollab upgrades the connection and starts the pumps. The client
// token cookie doubles as the connection id.
func (ctl *SignalWSController) HandleCollab(ctx context.Context, c *gin.Context, readLimit int64) {
	id := domain.ConnID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if readLimit > 0 {
		ws.SetReadLimit(readLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	participant, _ := ctl.Orch.Registry.GetOrCreateParticipant(id)
	sess := core.NewMemberSession(participant).UpdateSignal(conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(id, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, id, conn)
}
