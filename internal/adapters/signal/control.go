package signal

import (
	"github.com/dkeye/farmrelay/internal/core"
)

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, core.EventPong, struct{}{})
}

func (ctl *SignalWSController) handleWhoAmI(
	id core.ConnID,
	conn *WsSignalConn,
) {
	c, ok := ctl.Orch.Registry.Get(id)
	if !ok {
		ctl.sendJSON(conn, core.EventError, map[string]any{"error": "not registered"})
		return
	}
	resp := struct {
		ID     core.ConnID `json:"connectionId"`
		Role   string      `json:"role"`
		HostID string      `json:"hostId,omitempty"`
		UserID string      `json:"id,omitempty"`
		Email  string      `json:"email,omitempty"`
	}{
		ID:     id,
		Role:   c.Role().String(),
		HostID: c.Identity.HostID,
		UserID: c.Identity.UserID,
		Email:  c.Identity.Email,
	}
	ctl.sendJSON(conn, core.EventWhoAmI, resp)
}
