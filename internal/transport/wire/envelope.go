// Package wire is the JSON protocol spoken over the realtime websocket.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Whisper/internal/domain"
)

// Frame types. Client requests carry a RequestID that the server echoes in
// its ack, subscribed or error reply.
const (
	TypeConnected   = "connected"
	TypeSubscribe   = "subscribe"
	TypeSubscribed  = "subscribed"
	TypeSendMessage = "send_message"
	TypeUpdateRoom  = "update_room"
	TypeAck         = "ack"
	TypeError       = "error"
	TypeMessage     = "message"
	TypePresence    = "presence"
	TypeRoomUpdated = "room_updated"
	TypePing        = "ping"
	TypePong        = "pong"
)

type Envelope struct {
	Type         string               `json:"type"`
	RequestID    string               `json:"request_id,omitempty"`
	RoomID       domain.RoomID        `json:"room_id,omitempty"`
	MessageLimit int                  `json:"message_limit,omitempty"`
	Text         string               `json:"text,omitempty"`
	CustomData   *domain.RoomMetadata `json:"custom_data,omitempty"`
	Room         *domain.Room         `json:"room,omitempty"`
	Message      *domain.Message      `json:"message,omitempty"`
	Users        []domain.User        `json:"users,omitempty"`
	User         *domain.User         `json:"user,omitempty"`
	Error        string               `json:"error,omitempty"`
}

func Encode(env Envelope) ([]byte, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", env.Type, err)
	}
	return b, nil
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode frame: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode frame: missing type")
	}
	return env, nil
}

func Ack(requestID string) Envelope {
	return Envelope{Type: TypeAck, RequestID: requestID}
}

func Fail(requestID string, err error) Envelope {
	return Envelope{Type: TypeError, RequestID: requestID, Error: err.Error()}
}

func MessageFrame(roomID domain.RoomID, msg domain.Message) Envelope {
	return Envelope{Type: TypeMessage, RoomID: roomID, Message: &msg}
}

func PresenceFrame(roomID domain.RoomID, users []domain.User) Envelope {
	return Envelope{Type: TypePresence, RoomID: roomID, Users: users}
}

func RoomUpdatedFrame(room domain.Room) Envelope {
	return Envelope{Type: TypeRoomUpdated, RoomID: room.ID, Room: &room}
}
