package domain

import "time"

const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"

	// DeviceKindPrinter is the only device kind the relay tracks.
	DeviceKindPrinter = "printer"
)

// Status is a tagged printer status. The "type" key names the variant,
// richer variants carry their own extra keys.
type Status map[string]any

func NewStatus(kind string) Status {
	return Status{"type": kind}
}

func (s Status) Type() string {
	t, _ := s["type"].(string)
	return t
}

type Printer struct {
	RemoteAddress  string     `json:"remoteAddress" bson:"remoteAddress"`
	HostID         string     `json:"hostId" bson:"hostId"`
	Online         bool       `json:"online" bson:"online"`
	Status         Status     `json:"status" bson:"status"`
	ConnectedAt    *time.Time `json:"connectedAt" bson:"connectedAt"`
	FriendlyName   string     `json:"friendlyName" bson:"friendlyName"`
	LoadedFilament any        `json:"loadedFilament" bson:"loadedFilament"`
}

// Presence is the part of a Printer a presence transition owns.
// FriendlyName and LoadedFilament are never touched by it.
type Presence struct {
	HostID      string
	Online      bool
	Status      Status
	ConnectedAt *time.Time
}

func OnlinePresence(hostID string, at time.Time) Presence {
	return Presence{HostID: hostID, Online: true, Status: NewStatus(StatusOnline), ConnectedAt: &at}
}

func OfflinePresence(hostID string) Presence {
	return Presence{HostID: hostID, Online: false, Status: NewStatus(StatusOffline)}
}

// NewPrinter builds a fresh record with default metadata.
func NewPrinter(remoteAddress string, p Presence) Printer {
	return Printer{
		RemoteAddress:  remoteAddress,
		HostID:         p.HostID,
		Online:         p.Online,
		Status:         p.Status,
		ConnectedAt:    p.ConnectedAt,
		FriendlyName:   "",
		LoadedFilament: nil,
	}
}

// PrinterStatus is what users receive on the "status" event.
type PrinterStatus struct {
	RemoteAddress string     `json:"remoteAddress"`
	HostID        string     `json:"hostId"`
	Online        bool       `json:"online"`
	Status        Status     `json:"status"`
	ConnectedAt   *time.Time `json:"connectedAt"`
}

func (p Presence) StatusOf(remoteAddress string) PrinterStatus {
	return PrinterStatus{
		RemoteAddress: remoteAddress,
		HostID:        p.HostID,
		Online:        p.Online,
		Status:        p.Status,
		ConnectedAt:   p.ConnectedAt,
	}
}
