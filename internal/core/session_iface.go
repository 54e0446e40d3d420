package core

import "github.com/dkeye/farmrelay/internal/domain"

// ConnID is the transport-assigned id of a live connection.
type ConnID string

// Connection binds an authenticated identity and its transport endpoint.
type Connection struct {
	ID       ConnID
	Identity domain.Identity
	Signal   SignalConnection
}

func (c Connection) Role() domain.Role { return c.Identity.Role }
