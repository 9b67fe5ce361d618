package core

import (
	"github.com/dkeye/Whisper/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// RoomService is the server-side state of one room: shared metadata,
// members with presence, the message store and the subscriber set.
// It never touches transport resources beyond TrySend.
type RoomService interface {
	Room() domain.Room
	Metadata() domain.RoomMetadata
	UpdateMetadata(domain.RoomMetadata) domain.Room

	// AddMember reports whether the user was not a member yet.
	AddMember(user *domain.User) bool
	// SetPresence reports whether the member's state changed.
	SetPresence(id domain.UserID, state domain.PresenceState) bool
	UsersSnapshot() []domain.User

	AppendMessage(msg domain.Message)
	// ReplaceMessage swaps the stored message with the same id.
	ReplaceMessage(msg domain.Message) bool
	Message(id string) (domain.Message, bool)
	RecentMessages(limit int) []domain.Message

	Subscribe(sid SessionID, ms MemberSession)
	Unsubscribe(sid SessionID)
	SubscriberCount() int
	Broadcast(data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

type RoomManager interface {
	CreateRoom(id domain.RoomID, name domain.RoomName, meta domain.RoomMetadata) RoomService
	GetRoom(id domain.RoomID) (RoomService, bool)
	// FindMessage locates a stored message in any room.
	FindMessage(id string) (RoomService, domain.Message, bool)
	List() []RoomInfo
}
