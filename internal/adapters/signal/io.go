package signal

import (
	"context"
	"time"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

// readPump owns the connection's lifetime: when it returns the connection
// is disconnected from the relay. Events run in arrival order; baseCtx, not
// connCtx, is handed to handlers so their store writes survive the close.
func (ctl *SignalWSController) readPump(baseCtx, connCtx context.Context, cancel context.CancelFunc, id core.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(id)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Orch.OnDisconnect(baseCtx, id)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-connCtx.Done():
			log.Info().Str("module", "signal").Str("cid", string(id)).Msg("readPump ctx done")
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("cid", string(id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
		ctl.handleSignal(baseCtx, id, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, id core.ConnID, c *WsSignalConn, data []byte) {
	env, err := core.DecodeEnvelope(data)
	if err != nil {
		metrics.RecordDropped("", metrics.DropMalformed)
		log.Debug().Err(err).Str("module", "signal").Str("cid", string(id)).Msg("bad frame")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDropped(env.Event, metrics.DropPanic)
			log.Error().Interface("panic", r).Str("module", "signal").Str("cid", string(id)).Str("event", env.Event).Msg("event handler panic")
		}
	}()

	switch env.Event {
	case core.EventPing:
		ctl.handlePing(c)
	case core.EventWhoAmI:
		ctl.handleWhoAmI(id, c)
	default:
		ctl.Orch.Dispatch(ctx, id, env)
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, event string, v any) {
	b, err := core.Encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
