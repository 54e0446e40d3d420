package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/farmrelay/internal/app"
	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/dkeye/farmrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Orchestrator routes role-tagged events between hosts and users.
// Presence changes are broadcast to every user connection; telemetry and
// commands only reach the room of the printer they are about.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Presence *app.PresenceTracker
	Policy   app.Policy
}

// OnConnect registers an authenticated connection. A host connection is
// the implicit "host online" event.
func (o *Orchestrator) OnConnect(ctx context.Context, conn core.Connection) {
	o.Registry.Register(conn)
	metrics.RecordConnected(conn.Role().String())
	if conn.Identity.IsHost() {
		log.Info().Str("module", "orch").Str("host", conn.Identity.HostID).Msg("host connected")
		o.Presence.HostConnect(ctx, conn.Identity.HostID)
		return
	}
	log.Info().Str("module", "orch").Str("user", conn.Identity.UserID).Msg("user connected")
}

// OnDisconnect is terminal for a connection. Calling it twice is harmless.
func (o *Orchestrator) OnDisconnect(ctx context.Context, id core.ConnID) {
	conn, ok := o.Registry.Unregister(id)
	if !ok {
		return
	}
	metrics.RecordDisconnected(conn.Role().String())
	o.Rooms.LeaveAll(id)

	if conn.Identity.IsHost() {
		log.Info().Str("module", "orch").Str("host", conn.Identity.HostID).Msg("host disconnected")
		o.Presence.HostDisconnect(ctx, conn.Identity.HostID)
		return
	}
	log.Info().Str("module", "orch").Str("user", conn.Identity.UserID).Msg("user disconnected")
}

// Dispatch handles one inbound event from connection id.
func (o *Orchestrator) Dispatch(ctx context.Context, id core.ConnID, env core.Envelope) {
	conn, ok := o.Registry.Get(id)
	if !ok {
		log.Debug().Str("module", "orch").Str("cid", string(id)).Str("event", env.Event).Msg("event from unregistered connection")
		return
	}

	switch env.Event {
	case core.EventStatus:
		o.handleStatus(ctx, conn, env.Data)
	case core.EventOnline:
		o.handleOnline(ctx, conn, env.Data)
	case core.EventOffline:
		o.handleOffline(ctx, conn, env.Data)
	case core.EventJoin:
		o.handleJoin(conn, env.Data)
	case core.EventLeave:
		o.handleLeave(conn, env.Data)
	case core.EventTemperature:
		o.handleTemperature(conn, env.Data)
	case core.EventCommand:
		o.handleCommand(conn, env.Data)
	default:
		// client-chosen names stay out of metric labels
		metrics.RecordDropped("", metrics.DropUnknown)
		log.Debug().Str("module", "orch").Str("cid", string(conn.ID)).Str("event", env.Event).Msg("unknown event")
	}
}

func (o *Orchestrator) drop(conn core.Connection, event, reason string) {
	metrics.RecordDropped(event, reason)
	log.Debug().Str("module", "orch").Str("cid", string(conn.ID)).Str("event", event).Str("reason", reason).Msg("event dropped")
}

// requireRole drops the event when conn is not role.
func (o *Orchestrator) requireRole(conn core.Connection, event string, role domain.Role) bool {
	if conn.Role() != role {
		o.drop(conn, event, metrics.DropRole)
		return false
	}
	return true
}

// addressed is the part every device-scoped payload shares.
type addressed struct {
	RemoteAddress string `json:"remoteAddress"`
}

func decodeAddressed(data json.RawMessage) (addressed, bool) {
	var p addressed
	if len(data) == 0 || json.Unmarshal(data, &p) != nil || p.RemoteAddress == "" {
		return addressed{}, false
	}
	return p, true
}

// onBackPressure applies the policy to every connection that refused a frame.
func (o *Orchestrator) onBackPressure(dropped []core.ConnID) {
	if len(dropped) == 0 {
		return
	}
	metrics.SendsDropped.Add(float64(len(dropped)))
	if o.Policy == nil {
		return
	}
	for _, id := range dropped {
		switch o.Policy.OnBackPressure(id) {
		case app.KickMember:
			if conn, ok := o.Registry.Get(id); ok {
				log.Warn().Str("module", "orch").Str("cid", string(id)).Msg("kicking slow connection")
				conn.Signal.Close()
			}
		case app.DropFrame, app.NoAction:
		}
	}
}
