package domain

import "time"

type Host struct {
	HostID      string     `json:"hostId" bson:"hostId"`
	Online      bool       `json:"online" bson:"online"`
	ConnectedAt *time.Time `json:"connectedAt" bson:"connectedAt"`
}

func NewOnlineHost(hostID string, at time.Time) Host {
	return Host{HostID: hostID, Online: true, ConnectedAt: &at}
}
