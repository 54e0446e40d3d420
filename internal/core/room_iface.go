package core

import "github.com/dkeye/farmrelay/internal/domain"

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []ConnID
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

// RoomManager groups connections by printer address.
// It owns the membership sets but never touches transport resources.
type RoomManager interface {
	Join(name domain.RoomName, conn Connection)
	Leave(name domain.RoomName, id ConnID)
	LeaveAll(id ConnID) []domain.RoomName
	Members(name domain.RoomName) []ConnID
	// Emit delivers to every member of name except from.
	Emit(name domain.RoomName, from ConnID, data Frame) PublishResult
	List() []RoomInfo
}
