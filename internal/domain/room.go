package domain

// RoomName identifies a room. A room has no object of its own: it exists
// exactly as long as at least one connection is joined to it.
type RoomName string

// RoomInfo is the snapshot handed to a joining client. It is captured before
// the new member is added, so a client that sees RoomCount == 0 knows it is
// first in the room.
type RoomInfo struct {
	RoomName  RoomName            `json:"roomName"`
	RoomCount int                 `json:"roomCount"`
	Clients   map[string]Presence `json:"clients"`
}
