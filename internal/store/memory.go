package store

import (
	"context"
	"sync"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
)

// MemoryStore keeps hosts and printers in process memory. It backs the
// "memory" store driver and the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	hosts    map[string]domain.Host
	printers map[string]domain.Printer
	order    []string // printer insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hosts:    make(map[string]domain.Host),
		printers: make(map[string]domain.Printer),
	}
}

var _ core.Store = (*MemoryStore)(nil)

func (s *MemoryStore) UpsertHost(_ context.Context, h domain.Host) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hosts[h.HostID] = h
	return nil
}

func (s *MemoryStore) DeleteHost(_ context.Context, hostID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.hosts[hostID]
	delete(s.hosts, hostID)
	return ok, nil
}

func (s *MemoryStore) ClearHosts(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.hosts))
	s.hosts = make(map[string]domain.Host)
	return n, nil
}

// Host is a read helper for tests and the admin surface.
func (s *MemoryStore) Host(hostID string) (domain.Host, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hosts[hostID]
	return h, ok
}

func (s *MemoryStore) FindPrinter(_ context.Context, remoteAddress string) (domain.Printer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.printers[remoteAddress]
	if !ok {
		return domain.Printer{}, core.ErrNotFound
	}
	return clonePrinter(p), nil
}

func (s *MemoryStore) InsertPrinter(_ context.Context, p domain.Printer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.printers[p.RemoteAddress]; ok {
		return ErrDuplicatePrinter
	}
	s.printers[p.RemoteAddress] = clonePrinter(p)
	s.order = append(s.order, p.RemoteAddress)
	return nil
}

func (s *MemoryStore) SetPresence(_ context.Context, remoteAddress string, pr domain.Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.printers[remoteAddress]
	if !ok {
		return core.ErrNotFound
	}
	p.HostID = pr.HostID
	p.Online = pr.Online
	p.Status = cloneStatus(pr.Status)
	p.ConnectedAt = pr.ConnectedAt
	s.printers[remoteAddress] = p
	return nil
}

func (s *MemoryStore) SetStatus(_ context.Context, remoteAddress string, st domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.printers[remoteAddress]
	if !ok {
		return core.ErrNotFound
	}
	p.Status = cloneStatus(st)
	s.printers[remoteAddress] = p
	return nil
}

func (s *MemoryStore) PrintersByHost(_ context.Context, hostID string) ([]domain.Printer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Printer
	for _, addr := range s.order {
		if p := s.printers[addr]; p.HostID == hostID {
			out = append(out, clonePrinter(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func clonePrinter(p domain.Printer) domain.Printer {
	p.Status = cloneStatus(p.Status)
	return p
}

func cloneStatus(st domain.Status) domain.Status {
	if st == nil {
		return nil
	}
	out := make(domain.Status, len(st))
	for k, v := range st {
		out[k] = v
	}
	return out
}
