package core

import (
	"fmt"

	"github.com/dkeye/Whisper/internal/domain"
)

// Session is an immutable snapshot of the client state. Reducers return a
// new value; slices reachable from a committed Session are never written.
type Session struct {
	Identity     *domain.User
	Room         *domain.Room
	MessageTimer domain.Timer
	Messages     []domain.Message
	Users        []domain.User
	PendingInput string
	UserIDInput  string
}

func NewSession() Session {
	return Session{MessageTimer: domain.TimerOff}
}

func (s Session) Joined() bool { return s.Identity != nil && s.Room != nil }

// ChatMessages is the log without local status notices.
func (s Session) ChatMessages() []domain.Message {
	out := make([]domain.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if !m.Status() {
			out = append(out, m)
		}
	}
	return out
}

// TimerNotice is the text of the local status message for a confirmed timer.
func TimerNotice(t domain.Timer) string {
	return fmt.Sprintf("The disappearing message timeout has been set to %d seconds", t.Millis()/1000)
}
