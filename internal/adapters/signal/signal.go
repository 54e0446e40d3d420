package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/farmrelay/internal/app/orch"
	"github.com/dkeye/farmrelay/internal/config"
	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const writeWait = 5 * time.Second

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	SendQueue  int
}

func OptionsFrom(cfg *config.Config) Options {
	return Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		SendQueue:  cfg.SendQueue,
	}
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Limiter *HandshakeLimiter
	opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, limiter *HandshakeLimiter, opts Options) *SignalWSController {
	if opts.SendQueue <= 0 {
		opts.SendQueue = 256
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 60 * time.Second
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= opts.PongWait {
		opts.PingPeriod = opts.PongWait * 9 / 10
	}
	return &SignalWSController{Orch: o, Limiter: limiter, opts: opts}
}

// WsSignalConn implements core.SignalConnection over a websocket.
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
		return ErrClosed
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

// HandleSignal upgrades an authenticated request and runs the connection
// until either side goes away. ctx is the server's base context.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context, ident domain.Identity) {
	if ctl.Limiter != nil && !ctl.Limiter.Allow(ident.Key()) {
		log.Warn().Str("module", "signal").Str("identity", ident.Key()).Msg("handshake rate limited")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many connections"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	id := core.ConnID(uuid.NewString())
	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendQueue),
	}
	log.Info().Str("module", "signal").Str("cid", string(id)).Str("identity", ident.Key()).Msg("new WS connection")

	connCtx, cancel := context.WithCancel(ctx)
	ctl.Orch.OnConnect(ctx, core.Connection{ID: id, Identity: ident, Signal: conn})

	go ctl.writePump(connCtx, conn)
	go ctl.readPump(ctx, connCtx, cancel, id, conn)
}
