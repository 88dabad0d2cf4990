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

	"github.com/beamlink/signaling/internal/app"
	"github.com/beamlink/signaling/internal/core"
	"github.com/beamlink/signaling/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// SignalWSController upgrades HTTP to WebSocket and feeds inbound events to
// the lifecycle controller. The connection id is assigned here, on accept.
type SignalWSController struct {
	Life       *app.Lifecycle
	ReadLimit  int64
	PingPeriod time.Duration
}

func NewSignalWSController(life *app.Lifecycle, readLimit int64, pingPeriod time.Duration) *SignalWSController {
	return &SignalWSController{
		Life:       life,
		ReadLimit:  readLimit,
		PingPeriod: pingPeriod,
	}
}

// WsSignalConn implements core.SignalConnection over one websocket.
// Writes go through the buffered send channel; TrySend never blocks.
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

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	connID := domain.NewConnID()
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("remote", c.ClientIP()).Msg("new WS connection")

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctl.Life.OnConnect(connID, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, connID, conn)
}
