package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/farmrelay/internal/core"
	"github.com/pkg/errors"
)

var ErrDuplicatePrinter = errors.New("printer already exists")

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

type Options struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	MaxPoolSize   uint64
	MaxRetry      int
	RetryDelay    time.Duration
}

// Open builds the store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (core.Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverMongo, "":
		s, err := OpenMongo(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
