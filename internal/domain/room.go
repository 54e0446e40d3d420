package domain

// RoomName is the remote address of the printer a room is about.
type RoomName string
