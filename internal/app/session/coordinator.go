package session

import (
	"context"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Coordinator drives the disappearing message protocol. The timer itself
// lives in the session; the coordinator decides what a message or a room
// update means under it.
type Coordinator struct {
	deleter core.MessageDeleter
	newID   func() string
	// spawn runs fire-and-forget work; the controller tracks it.
	spawn func(func())
}

func NewCoordinator(deleter core.MessageDeleter, newID func() string, spawn func(func())) *Coordinator {
	if newID == nil {
		newID = uuid.NewString
	}
	if spawn == nil {
		spawn = func(f func()) { go f() }
	}
	return &Coordinator{deleter: deleter, newID: newID, spawn: spawn}
}

// OnMessage issues a deletion request for msg when timer is armed. The log
// is not touched; the DELETED rewrite comes back as a message update.
func (c *Coordinator) OnMessage(ctx context.Context, timer domain.Timer, msg domain.Message) bool {
	if !timer.Armed() || msg.Status() || msg.Deleted() {
		return false
	}
	req := core.DeleteRequest{MessageID: msg.ID, Timer: timer.Millis()}
	c.spawn(func() {
		if err := c.deleter.DeleteMessage(ctx, req); err != nil {
			log.Error().Err(err).Str("module", "app.session").Str("message", req.MessageID).Msg("deletion request failed")
		}
	})
	return true
}

// OnRoomUpdated turns a metadata notification into the authoritative timer
// plus a locally generated status notice.
func (c *Coordinator) OnRoomUpdated(room domain.Room) core.Event {
	return core.TimerConfirmed{Timer: room.Metadata.MessageTimer, NoticeID: c.newID()}
}
