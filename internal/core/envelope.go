package core

import (
	"encoding/json"
	"fmt"
)

// Inbound and outbound event names.
const (
	EventStatus      = "status"
	EventOnline      = "online"
	EventOffline     = "offline"
	EventJoin        = "join"
	EventLeave       = "leave"
	EventTemperature = "temperature"
	EventCommand     = "command"
	EventPing        = "ping"
	EventPong        = "pong"
	EventWhoAmI      = "whoami"
	EventError       = "error"
)

// Envelope is the wire shape of every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event")
	}
	return env, nil
}

// Encode wraps payload into an envelope frame. json.RawMessage payloads are
// passed through as-is.
func Encode(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	b, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return b, nil
}
