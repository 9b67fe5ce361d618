package domain

type (
	RoomName string
	RoomID   string
)

// RoomMetadata is the shared custom data every subscriber of a room sees.
type RoomMetadata struct {
	MessageTimer Timer `json:"messageTimer"`
}

type Room struct {
	ID       RoomID       `json:"id"`
	Name     RoomName     `json:"name"`
	Metadata RoomMetadata `json:"customData"`
	Users    []User       `json:"users,omitempty"`
}
