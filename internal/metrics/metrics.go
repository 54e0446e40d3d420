package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons an inbound event is dropped without effect.
const (
	DropMalformed = "malformed"
	DropRole      = "role"
	DropKind      = "kind"
	DropUnknown   = "unknown"
	DropPanic     = "panic"
)

var (
	// ConnectionsActive tracks live connections by role
	ConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "farmrelay_connections_active",
			Help: "Number of live relay connections",
		},
		[]string{"role"},
	)

	// EventsHandled counts inbound events that reached a handler
	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmrelay_events_handled_total",
			Help: "Total number of inbound events dispatched to a handler",
		},
		[]string{"event"},
	)

	// EventsDropped counts inbound events ignored by the router
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmrelay_events_dropped_total",
			Help: "Total number of inbound events dropped without effect",
		},
		[]string{"event", "reason"},
	)

	// StatusBroadcasts counts status payloads fanned out to users
	StatusBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farmrelay_status_broadcasts_total",
			Help: "Total number of status events broadcast to user connections",
		},
	)

	// RoomEmits counts room-scoped deliveries by event
	RoomEmits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmrelay_room_emits_total",
			Help: "Total number of room-scoped frames delivered",
		},
		[]string{"event"},
	)

	// SendsDropped counts frames not queued because of backpressure
	SendsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "farmrelay_sends_dropped_total",
			Help: "Total number of outbound frames dropped by a full or closed connection",
		},
	)

	// PersistenceErrors counts failed store operations
	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farmrelay_persistence_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"op"},
	)
)

func RecordConnected(role string)    { ConnectionsActive.WithLabelValues(role).Inc() }
func RecordDisconnected(role string) { ConnectionsActive.WithLabelValues(role).Dec() }

func RecordHandled(event string) { EventsHandled.WithLabelValues(event).Inc() }

func RecordDropped(event, reason string) {
	EventsDropped.WithLabelValues(event, reason).Inc()
}

func RecordPersistenceError(op string) { PersistenceErrors.WithLabelValues(op).Inc() }

func RecordRoomEmit(event string, delivered int) {
	RoomEmits.WithLabelValues(event).Add(float64(delivered))
}
