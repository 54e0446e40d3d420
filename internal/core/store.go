package core

import (
	"context"
	"errors"

	"github.com/dkeye/farmrelay/internal/domain"
)

var ErrNotFound = errors.New("not found")

type HostStore interface {
	UpsertHost(ctx context.Context, h domain.Host) error
	DeleteHost(ctx context.Context, hostID string) (bool, error)
	ClearHosts(ctx context.Context) (int64, error)
}

type PrinterStore interface {
	// FindPrinter returns ErrNotFound when no record has remoteAddress.
	FindPrinter(ctx context.Context, remoteAddress string) (domain.Printer, error)
	InsertPrinter(ctx context.Context, p domain.Printer) error
	// SetPresence and SetStatus return ErrNotFound when nothing matched.
	SetPresence(ctx context.Context, remoteAddress string, p domain.Presence) error
	SetStatus(ctx context.Context, remoteAddress string, s domain.Status) error
	PrintersByHost(ctx context.Context, hostID string) ([]domain.Printer, error)
}

// Store is the durable side of the relay.
type Store interface {
	HostStore
	PrinterStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
