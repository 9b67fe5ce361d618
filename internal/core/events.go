package core

import (
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/rs/zerolog/log"
)

// Event is one input to Reduce. The set is closed.
type Event interface{ event() }

// MessageReceived is a message delivered (or redelivered) by the channel.
type MessageReceived struct{ Message domain.Message }

// PresenceChanged carries the full user list of the room.
type PresenceChanged struct{ Users []domain.User }

// Subscribed commits the identity and room once the join flow completed.
// The room's timer is adopted silently; notices only follow room updates.
type Subscribed struct {
	Identity domain.User
	Room     domain.Room
}

// TimerSet is the optimistic local change made by this client.
type TimerSet struct{ Timer domain.Timer }

// TimerConfirmed is the shared value observed through room metadata.
// NoticeID names the local status message announcing it.
type TimerConfirmed struct {
	Timer    domain.Timer
	NoticeID string
}

// InputChanged edits one of the form fields.
type InputChanged struct {
	Field InputField
	Value string
}

func (MessageReceived) event() {}
func (PresenceChanged) event() {}
func (Subscribed) event()      {}
func (TimerSet) event()        {}
func (TimerConfirmed) event()  {}
func (InputChanged) event()    {}

// Reduce returns the session that results from applying ev to s.
func Reduce(s Session, ev Event) Session {
	switch ev := ev.(type) {
	case MessageReceived:
		s.Messages = ApplyMessage(s.Messages, ev.Message)
	case PresenceChanged:
		s.Users = ReorderUsers(ev.Users)
	case Subscribed:
		identity, room := ev.Identity, ev.Room
		s.Identity = &identity
		s.Room = &room
		s.Users = append([]domain.User(nil), room.Users...)
		if room.Metadata.MessageTimer.Valid() {
			s.MessageTimer = room.Metadata.MessageTimer
		}
	case TimerSet:
		if !ev.Timer.Valid() {
			log.Warn().Str("module", "core.session").Str("timer", string(ev.Timer)).Msg("ignoring invalid local timer")
			return s
		}
		s.MessageTimer = ev.Timer
	case TimerConfirmed:
		if !ev.Timer.Valid() {
			log.Warn().Str("module", "core.session").Str("timer", string(ev.Timer)).Msg("ignoring invalid room timer")
			return s
		}
		s.MessageTimer = ev.Timer
		s.Messages = ApplyMessage(s.Messages, domain.NewStatusMessage(ev.NoticeID, TimerNotice(ev.Timer)))
		if s.Room != nil {
			room := *s.Room
			room.Metadata.MessageTimer = ev.Timer
			s.Room = &room
		}
	case InputChanged:
		return setInput(s, ev.Field, ev.Value)
	}
	return s
}
