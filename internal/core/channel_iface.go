package core

import (
	"context"

	"github.com/dkeye/Whisper/internal/domain"
)

// ConnectHooks are invoked by the channel for identity-wide notifications.
type ConnectHooks struct {
	OnRoomUpdated func(room domain.Room)
}

// RoomHooks are invoked by the channel for a subscribed room. Calls for one
// room arrive in the order the channel emitted them.
type RoomHooks struct {
	OnMessage         func(msg domain.Message)
	OnPresenceChanged func(users []domain.User)
}

type SubscribeOptions struct {
	RoomID       domain.RoomID
	MessageLimit int
	Hooks        RoomHooks
}

type SendMessageRequest struct {
	Text   string
	RoomID domain.RoomID
}

type UpdateRoomRequest struct {
	RoomID     domain.RoomID
	CustomData domain.RoomMetadata
}

// Connector establishes an identity with the realtime channel.
type Connector interface {
	Connect(ctx context.Context, userID domain.UserID, hooks ConnectHooks) (Identity, error)
}

// Identity is a connected user on the realtime channel.
type Identity interface {
	User() domain.User
	SubscribeToRoom(ctx context.Context, opts SubscribeOptions) (domain.Room, error)
	SendMessage(ctx context.Context, req SendMessageRequest) error
	UpdateRoom(ctx context.Context, req UpdateRoomRequest) error
	Close() error
}

// Registrar registers a user with the backend before connecting.
type Registrar interface {
	RegisterUser(ctx context.Context, userID domain.UserID) error
}

type DeleteRequest struct {
	MessageID string `json:"messageId"`
	Timer     int    `json:"timer"`
}

// MessageDeleter asks the backend to mark a message deleted after a delay.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, req DeleteRequest) error
}
