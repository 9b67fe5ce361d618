package core

import "github.com/dkeye/Whisper/internal/domain"

type SessionID string

// MemberSession binds a registered user and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	User() *domain.User
	Signal() SignalConnection
}
