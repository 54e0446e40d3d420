package app

import (
	"sort"
	"sync"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomMember struct {
	signal core.SignalConnection
	seq    uint64
}

// RoomManagerImpl is a threadsafe in-memory set of rooms keyed by
// printer address. It never closes adapter-owned resources.
type RoomManagerImpl struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomName]map[core.ConnID]roomMember
	byConn map[core.ConnID]map[domain.RoomName]struct{}
	seq    uint64
}

// NewRoomManager returns a manager with no rooms; rooms appear on first Join.
func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{
		rooms:  make(map[domain.RoomName]map[core.ConnID]roomMember),
		byConn: make(map[core.ConnID]map[domain.RoomName]struct{}),
	}
}

func (m *RoomManagerImpl) Join(name domain.RoomName, conn core.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[name]
	if !ok {
		room = make(map[core.ConnID]roomMember)
		m.rooms[name] = room
	}
	if _, ok := room[conn.ID]; ok {
		return
	}
	m.seq++
	room[conn.ID] = roomMember{signal: conn.Signal, seq: m.seq}

	joined, ok := m.byConn[conn.ID]
	if !ok {
		joined = make(map[domain.RoomName]struct{})
		m.byConn[conn.ID] = joined
	}
	joined[name] = struct{}{}
	log.Debug().Str("module", "app.rooms").Str("cid", string(conn.ID)).Str("room", string(name)).Msg("joined room")
}

func (m *RoomManagerImpl) Leave(name domain.RoomName, id core.ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(name, id)
	if joined, ok := m.byConn[id]; ok {
		delete(joined, name)
		if len(joined) == 0 {
			delete(m.byConn, id)
		}
	}
	log.Debug().Str("module", "app.rooms").Str("cid", string(id)).Str("room", string(name)).Msg("left room")
}

// LeaveAll removes id from every room it joined and returns those rooms.
func (m *RoomManagerImpl) LeaveAll(id core.ConnID) []domain.RoomName {
	m.mu.Lock()
	defer m.mu.Unlock()
	joined := m.byConn[id]
	delete(m.byConn, id)
	out := make([]domain.RoomName, 0, len(joined))
	for name := range joined {
		m.leaveLocked(name, id)
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *RoomManagerImpl) leaveLocked(name domain.RoomName, id core.ConnID) {
	room, ok := m.rooms[name]
	if !ok {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(m.rooms, name)
	}
}

// Members returns the ids in name in join order.
func (m *RoomManagerImpl) Members(name domain.RoomName) []core.ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.membersLocked(name, "")
}

func (m *RoomManagerImpl) membersLocked(name domain.RoomName, except core.ConnID) []core.ConnID {
	room := m.rooms[name]
	out := make([]core.ConnID, 0, len(room))
	for id := range room {
		if id != except {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return room[out[i]].seq < room[out[j]].seq })
	return out
}

func (m *RoomManagerImpl) Emit(name domain.RoomName, from core.ConnID, data core.Frame) core.PublishResult {
	type target struct {
		id     core.ConnID
		signal core.SignalConnection
	}
	m.mu.RLock()
	ids := m.membersLocked(name, from)
	targets := make([]target, len(ids))
	for i, id := range ids {
		targets[i] = target{id: id, signal: m.rooms[name][id].signal}
	}
	m.mu.RUnlock()

	res := core.PublishResult{}
	for _, t := range targets {
		if err := t.signal.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, t.id)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(name)).Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("emit result")
	return res
}

func (m *RoomManagerImpl) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for name, room := range m.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: len(room)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
