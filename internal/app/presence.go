package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/dkeye/farmrelay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// StatusSink receives every status payload a presence transition produces.
type StatusSink interface {
	SendStatusToUsers(payload any)
}

// PresenceTracker runs the host and printer presence state machine.
//
// A failed store call never stops a transition: the error is logged and
// counted, and the locally computed status is still sent to the sink.
// Transitions on one printer address are serialized, so for a single
// printer the broadcast order matches the order writes were issued.
// Nothing orders transitions of different printers, nor a host's offline
// sweep against an online event arriving on a newer connection.
type PresenceTracker struct {
	store   core.Store
	sink    StatusSink
	timeout time.Duration
	now     func() time.Time
	locks   *KeyLock

	mu     sync.Mutex
	hostOf map[string]string // remoteAddress -> last reported hostId
}

// NewPresenceTracker bounds every store call by opTimeout; zero means no bound.
func NewPresenceTracker(store core.Store, sink StatusSink, opTimeout time.Duration) *PresenceTracker {
	return &PresenceTracker{
		store:   store,
		sink:    sink,
		timeout: opTimeout,
		now:     time.Now,
		locks:   NewKeyLock(),
		hostOf:  make(map[string]string),
	}
}

// opCtx detaches store calls from the caller's cancellation: a write that
// has started keeps going after its connection is gone.
func (t *PresenceTracker) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if t.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *PresenceTracker) persistenceFailed(op, key string, err error) {
	metrics.RecordPersistenceError(op)
	log.Error().Err(err).Str("module", "app.presence").Str("op", op).Str("key", key).Msg("persistence unavailable, relaying anyway")
}

func (t *PresenceTracker) HostConnect(ctx context.Context, hostID string) {
	c, cancel := t.opCtx(ctx)
	defer cancel()
	if err := t.store.UpsertHost(c, domain.NewOnlineHost(hostID, t.now())); err != nil {
		t.persistenceFailed("upsert_host", hostID, err)
		return
	}
	log.Info().Str("module", "app.presence").Str("host", hostID).Msg("host online")
}

// HostDisconnect removes the host record and forces every printer of that
// host offline, one write and one broadcast per printer. It returns the
// number of printers swept.
func (t *PresenceTracker) HostDisconnect(ctx context.Context, hostID string) int {
	c, cancel := t.opCtx(ctx)
	deleted, err := t.store.DeleteHost(c, hostID)
	cancel()
	switch {
	case err != nil:
		t.persistenceFailed("delete_host", hostID, err)
	case deleted:
		log.Info().Str("module", "app.presence").Str("host", hostID).Msg("host removed")
	default:
		log.Warn().Str("module", "app.presence").Str("host", hostID).Msg("host not found in store")
	}

	addrs := t.printersOf(ctx, hostID)
	for _, addr := range addrs {
		t.transition(ctx, addr, "sweep_offline", domain.OfflinePresence(hostID))
		t.forget(addr, hostID)
	}
	if len(addrs) == 0 {
		log.Warn().Str("module", "app.presence").Str("host", hostID).Msg("no printers found for host")
	} else {
		log.Info().Str("module", "app.presence").Str("host", hostID).Int("printers", len(addrs)).Msg("host printers set offline")
	}
	return len(addrs)
}

// printersOf lists the store's printers for hostID. Only when the listing
// fails does it fall back to the printers this process saw that host report.
func (t *PresenceTracker) printersOf(ctx context.Context, hostID string) []string {
	c, cancel := t.opCtx(ctx)
	printers, err := t.store.PrintersByHost(c, hostID)
	cancel()
	if err == nil {
		out := make([]string, 0, len(printers))
		for _, p := range printers {
			out = append(out, p.RemoteAddress)
		}
		return out
	}
	t.persistenceFailed("list_printers", hostID, err)

	var known []string
	t.mu.Lock()
	for addr, owner := range t.hostOf {
		if owner == hostID {
			known = append(known, addr)
		}
	}
	t.mu.Unlock()
	sort.Strings(known)
	return known
}

// forget drops addr from the fallback index if hostID still owns it.
func (t *PresenceTracker) forget(addr, hostID string) {
	t.mu.Lock()
	if t.hostOf[addr] == hostID {
		delete(t.hostOf, addr)
	}
	t.mu.Unlock()
}

func (t *PresenceTracker) PrinterOnline(ctx context.Context, remoteAddress, hostID string) {
	t.transition(ctx, remoteAddress, "printer_online", domain.OnlinePresence(hostID, t.now()))
}

func (t *PresenceTracker) PrinterOffline(ctx context.Context, remoteAddress, hostID string) {
	t.transition(ctx, remoteAddress, "printer_offline", domain.OfflinePresence(hostID))
}

// transition upserts p for remoteAddress and broadcasts the result.
func (t *PresenceTracker) transition(ctx context.Context, remoteAddress, op string, p domain.Presence) {
	unlock := t.locks.Lock(remoteAddress)
	defer unlock()

	if err := t.upsert(ctx, remoteAddress, p); err != nil {
		t.persistenceFailed(op, remoteAddress, err)
	}
	t.mu.Lock()
	t.hostOf[remoteAddress] = p.HostID
	t.mu.Unlock()

	t.sink.SendStatusToUsers(p.StatusOf(remoteAddress))
}

func (t *PresenceTracker) upsert(ctx context.Context, remoteAddress string, p domain.Presence) error {
	c, cancel := t.opCtx(ctx)
	defer cancel()

	_, err := t.store.FindPrinter(c, remoteAddress)
	switch {
	case errors.Is(err, core.ErrNotFound):
		if err := t.store.InsertPrinter(c, domain.NewPrinter(remoteAddress, p)); err != nil {
			return err
		}
		log.Info().Str("module", "app.presence").Str("printer", remoteAddress).Bool("online", p.Online).Msg("new printer added")
		return nil
	case err != nil:
		return err
	}
	if err := t.store.SetPresence(c, remoteAddress, p); err != nil {
		return err
	}
	log.Info().Str("module", "app.presence").Str("printer", remoteAddress).Bool("online", p.Online).Msg("printer updated")
	return nil
}

// PrinterStatusUpdate writes only the status field and relays payload
// untouched. It never creates a record: when the store has no printer for
// remoteAddress nothing is written or sent and it returns false.
func (t *PresenceTracker) PrinterStatusUpdate(ctx context.Context, remoteAddress string, status domain.Status, payload any) bool {
	unlock := t.locks.Lock(remoteAddress)
	defer unlock()

	c, cancel := t.opCtx(ctx)
	defer cancel()

	_, err := t.store.FindPrinter(c, remoteAddress)
	switch {
	case errors.Is(err, core.ErrNotFound):
		log.Debug().Str("module", "app.presence").Str("printer", remoteAddress).Msg("status for unknown printer ignored")
		return false
	case err != nil:
		t.persistenceFailed("find_printer", remoteAddress, err)
	default:
		err := t.store.SetStatus(c, remoteAddress, status)
		switch {
		case errors.Is(err, core.ErrNotFound):
			log.Debug().Str("module", "app.presence").Str("printer", remoteAddress).Msg("printer removed before status update")
			return false
		case err != nil:
			t.persistenceFailed("set_status", remoteAddress, err)
		default:
			log.Debug().Str("module", "app.presence").Str("printer", remoteAddress).Str("status", status.Type()).Msg("printer status updated")
		}
	}

	t.sink.SendStatusToUsers(payload)
	return true
}

// ClearHosts drops every host record. A fresh process has no hosts attached.
func (t *PresenceTracker) ClearHosts(ctx context.Context) (int64, error) {
	c, cancel := t.opCtx(ctx)
	defer cancel()
	n, err := t.store.ClearHosts(c)
	if err != nil {
		metrics.RecordPersistenceError("clear_hosts")
		return 0, err
	}
	log.Info().Str("module", "app.presence").Int64("deleted", n).Msg("cleared hosts collection")
	return n, nil
}
