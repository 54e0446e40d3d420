package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/dkeye/farmrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

type devicePayload struct {
	RemoteAddress string        `json:"remoteAddress"`
	Type          string        `json:"type"`
	HostID        string        `json:"hostId"`
	Status        domain.Status `json:"status"`
}

// decodeDevice validates a host's printer event. ok is false when the event
// must be dropped; the drop has already been recorded.
func (o *Orchestrator) decodeDevice(conn core.Connection, event string, data json.RawMessage) (devicePayload, bool) {
	if !o.requireRole(conn, event, domain.RoleHost) {
		return devicePayload{}, false
	}
	var p devicePayload
	if len(data) == 0 || json.Unmarshal(data, &p) != nil || p.RemoteAddress == "" {
		o.drop(conn, event, metrics.DropMalformed)
		return devicePayload{}, false
	}
	if p.Type != domain.DeviceKindPrinter {
		o.drop(conn, event, metrics.DropKind)
		return devicePayload{}, false
	}
	if p.HostID == "" {
		p.HostID = conn.Identity.HostID
	}
	return p, true
}

func (o *Orchestrator) handleStatus(ctx context.Context, conn core.Connection, data json.RawMessage) {
	p, ok := o.decodeDevice(conn, core.EventStatus, data)
	if !ok {
		return
	}
	if p.Status == nil {
		o.drop(conn, core.EventStatus, metrics.DropMalformed)
		return
	}
	metrics.RecordHandled(core.EventStatus)
	log.Info().Str("module", "orch").Str("printer", p.RemoteAddress).Str("status", p.Status.Type()).Msg("setting printer status")
	o.Presence.PrinterStatusUpdate(ctx, p.RemoteAddress, p.Status, data)
}

func (o *Orchestrator) handleOnline(ctx context.Context, conn core.Connection, data json.RawMessage) {
	p, ok := o.decodeDevice(conn, core.EventOnline, data)
	if !ok {
		return
	}
	metrics.RecordHandled(core.EventOnline)
	log.Info().Str("module", "orch").Str("printer", p.RemoteAddress).Msg("setting printer online")
	o.Presence.PrinterOnline(ctx, p.RemoteAddress, p.HostID)
	o.Rooms.Join(domain.RoomName(p.RemoteAddress), conn)
}

func (o *Orchestrator) handleOffline(ctx context.Context, conn core.Connection, data json.RawMessage) {
	p, ok := o.decodeDevice(conn, core.EventOffline, data)
	if !ok {
		return
	}
	metrics.RecordHandled(core.EventOffline)
	log.Info().Str("module", "orch").Str("printer", p.RemoteAddress).Msg("setting printer offline")
	o.Presence.PrinterOffline(ctx, p.RemoteAddress, p.HostID)
}

// SendStatusToUsers delivers payload to each user connection on its own.
// A recipient that cannot take the frame does not hold up the others.
func (o *Orchestrator) SendStatusToUsers(payload any) {
	frame, err := core.Encode(core.EventStatus, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode status")
		return
	}
	metrics.StatusBroadcasts.Inc()

	var dropped []core.ConnID
	sent := 0
	for _, conn := range o.Registry.ListByRole(domain.RoleUser) {
		if err := conn.Signal.TrySend(frame); err != nil {
			dropped = append(dropped, conn.ID)
			continue
		}
		sent++
	}
	log.Debug().Str("module", "orch").Int("sent_to", sent).Int("dropped", len(dropped)).Msg("status broadcast")
	o.onBackPressure(dropped)
}
