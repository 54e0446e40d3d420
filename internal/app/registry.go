package app

import (
	"sort"
	"sync"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	conn core.Connection
	seq  uint64
}

// Registry tracks every live connection and its role.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
	seq   uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*connEntry),
	}
}

// Register adds conn. Identities are not unique: a host may reconnect under
// a new id while its old connection is still being torn down.
func (r *Registry) Register(conn core.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.conns[conn.ID] = &connEntry{conn: conn, seq: r.seq}
	log.Info().
		Str("module", "app.registry").
		Str("cid", string(conn.ID)).
		Str("role", conn.Role().String()).
		Str("identity", conn.Identity.Key()).
		Msg("registered connection")
}

// Unregister is idempotent.
func (r *Registry) Unregister(id core.ConnID) (core.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return core.Connection{}, false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("cid", string(id)).Msg("unregistered connection")
	return e.conn, true
}

func (r *Registry) Get(id core.ConnID) (core.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.conn, true
	}
	return core.Connection{}, false
}

// ListByRole returns connections of role in registration order.
func (r *Registry) ListByRole(role domain.Role) []core.Connection {
	r.mu.RLock()
	entries := make([]*connEntry, 0, len(r.conns))
	for _, e := range r.conns {
		if e.conn.Role() == role {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]core.Connection, len(entries))
	for i, e := range entries {
		out[i] = e.conn
	}
	return out
}

func (r *Registry) Count(role domain.Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.conns {
		if e.conn.Role() == role {
			n++
		}
	}
	return n
}
