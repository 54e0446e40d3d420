package store

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/dkeye/farmrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Hosts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.UpsertHost(ctx, domain.NewOnlineHost("H1", time.Now())))
	require.NoError(t, s.UpsertHost(ctx, domain.NewOnlineHost("H2", time.Now())))
	require.NoError(t, s.UpsertHost(ctx, domain.NewOnlineHost("H1", time.Now())))

	h, ok := s.Host("H1")
	require.True(t, ok)
	assert.True(t, h.Online)
	assert.NotNil(t, h.ConnectedAt)

	deleted, err := s.DeleteHost(ctx, "H1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteHost(ctx, "H1")
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := s.ClearHosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, ok = s.Host("H2")
	assert.False(t, ok)
}

func TestMemoryStore_Printers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.FindPrinter(ctx, "10.0.0.5")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.SetStatus(ctx, "10.0.0.5", domain.NewStatus("Printing")), core.ErrNotFound)
	assert.ErrorIs(t, s.SetPresence(ctx, "10.0.0.5", domain.OfflinePresence("H1")), core.ErrNotFound)

	require.NoError(t, s.InsertPrinter(ctx, domain.NewPrinter("10.0.0.5", domain.OnlinePresence("H1", time.Now()))))
	assert.ErrorIs(t, s.InsertPrinter(ctx, domain.NewPrinter("10.0.0.5", domain.OfflinePresence("H1"))), ErrDuplicatePrinter)
	require.NoError(t, s.InsertPrinter(ctx, domain.NewPrinter("10.0.0.6", domain.OfflinePresence("H2"))))
	require.NoError(t, s.InsertPrinter(ctx, domain.NewPrinter("10.0.0.7", domain.OfflinePresence("H1"))))

	require.NoError(t, s.SetStatus(ctx, "10.0.0.5", domain.Status{"type": "Printing", "progress": 10}))
	p, err := s.FindPrinter(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "Printing", p.Status.Type())
	assert.True(t, p.Online, "status update must not touch presence")
	assert.NotNil(t, p.ConnectedAt)

	require.NoError(t, s.SetPresence(ctx, "10.0.0.5", domain.OfflinePresence("H1")))
	p, err = s.FindPrinter(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.False(t, p.Online)
	assert.Nil(t, p.ConnectedAt)
	assert.Equal(t, domain.StatusOffline, p.Status.Type())

	owned, err := s.PrintersByHost(ctx, "H1")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "10.0.0.5", owned[0].RemoteAddress)
	assert.Equal(t, "10.0.0.7", owned[1].RemoteAddress)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertPrinter(ctx, domain.NewPrinter("10.0.0.5", domain.OfflinePresence("H1"))))

	p, err := s.FindPrinter(ctx, "10.0.0.5")
	require.NoError(t, err)
	p.Status["type"] = "Tampered"

	p, err = s.FindPrinter(ctx, "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOffline, p.Status.Type())
}

func TestOpen(t *testing.T) {
	s, err := Open(context.Background(), Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(context.Background(), Options{Driver: "sqlite"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Driver: DriverMongo})
	assert.Error(t, err, "mongo without uri must fail fast")
}
