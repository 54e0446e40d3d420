package orch

import (
	"encoding/json"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/dkeye/farmrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) handleJoin(conn core.Connection, data json.RawMessage) {
	p, ok := decodeAddressed(data)
	if !ok {
		o.drop(conn, core.EventJoin, metrics.DropMalformed)
		return
	}
	metrics.RecordHandled(core.EventJoin)
	log.Debug().Str("module", "orch").Str("cid", string(conn.ID)).Str("room", p.RemoteAddress).Msg("joining room")
	o.Rooms.Join(domain.RoomName(p.RemoteAddress), conn)
}

func (o *Orchestrator) handleLeave(conn core.Connection, data json.RawMessage) {
	p, ok := decodeAddressed(data)
	if !ok {
		o.drop(conn, core.EventLeave, metrics.DropMalformed)
		return
	}
	metrics.RecordHandled(core.EventLeave)
	log.Debug().Str("module", "orch").Str("cid", string(conn.ID)).Str("room", p.RemoteAddress).Msg("leaving room")
	o.Rooms.Leave(domain.RoomName(p.RemoteAddress), conn.ID)
}

// handleTemperature relays host telemetry to the printer's room.
func (o *Orchestrator) handleTemperature(conn core.Connection, data json.RawMessage) {
	if !o.requireRole(conn, core.EventTemperature, domain.RoleHost) {
		return
	}
	p, ok := decodeAddressed(data)
	if !ok {
		o.drop(conn, core.EventTemperature, metrics.DropMalformed)
		return
	}
	metrics.RecordHandled(core.EventTemperature)
	o.emitToRoom(conn, domain.RoomName(p.RemoteAddress), core.EventTemperature, data)
}

type commandPayload struct {
	RemoteAddress string `json:"remoteAddress"`
	Type          string `json:"type"`
}

// handleCommand relays a user's command to the printer's room under the
// command's own type as event name.
func (o *Orchestrator) handleCommand(conn core.Connection, data json.RawMessage) {
	if !o.requireRole(conn, core.EventCommand, domain.RoleUser) {
		return
	}
	var p commandPayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil || p.RemoteAddress == "" || p.Type == "" {
		o.drop(conn, core.EventCommand, metrics.DropMalformed)
		return
	}
	metrics.RecordHandled(core.EventCommand)
	log.Info().Str("module", "orch").Str("user", conn.Identity.UserID).Str("printer", p.RemoteAddress).Str("command", p.Type).Msg("relaying command")
	o.emitToRoom(conn, domain.RoomName(p.RemoteAddress), p.Type, data)
}

func (o *Orchestrator) emitToRoom(from core.Connection, room domain.RoomName, event string, data json.RawMessage) {
	frame, err := core.Encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("encode room frame")
		return
	}
	res := o.Rooms.Emit(room, from.ID, frame)
	metrics.RecordRoomEmit(event, res.SendTo)
	o.onBackPressure(res.Dropped)
}
