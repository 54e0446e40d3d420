// Package domain contains entity without logic, just meta-data
package domain

import "errors"

var ErrHostIDEmpty = errors.New("host id empty")

// Role is the side of the relay a connection speaks for.
type Role int

const (
	RoleUser Role = iota
	RoleHost
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleUser:
		return "user"
	default:
		return "unknown"
	}
}

// Identity is decided once at handshake time. A Host carries HostID,
// a User carries UserID and Email.
type Identity struct {
	Role   Role   `json:"role"`
	HostID string `json:"hostId,omitempty"`
	UserID string `json:"id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func NewHostIdentity(hostID string) (Identity, error) {
	if hostID == "" {
		return Identity{}, ErrHostIDEmpty
	}
	return Identity{Role: RoleHost, HostID: hostID}, nil
}

func NewUserIdentity(id, email string) Identity {
	return Identity{Role: RoleUser, UserID: id, Email: email}
}

func (i Identity) IsHost() bool { return i.Role == RoleHost }

// Key identifies the party behind a connection, independent of how many
// connections it currently holds.
func (i Identity) Key() string {
	if i.IsHost() {
		return "host:" + i.HostID
	}
	return "user:" + i.UserID
}
