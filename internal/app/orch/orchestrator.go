package orch

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Whisper/internal/app"
	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotSubscribed   = errors.New("not subscribed to room")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyMessage    = errors.New("message text empty")
	ErrUnknownSession  = errors.New("unknown session")
)

// Scheduler runs f once after d. The returned func cancels it.
type Scheduler func(d time.Duration, f func()) (stop func() bool)

func AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	// Schedule defaults to AfterFunc.
	Schedule Scheduler

	mu      sync.Mutex
	pending map[string]func() bool
}

func (o *Orchestrator) broadcast(room core.RoomService, env wire.Envelope) {
	data, err := wire.Encode(env)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("broadcast encode")
		return
	}
	res := room.Broadcast(data)
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			if sid, ok := o.Registry.SessionBySignal(slow.Signal()); ok {
				log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("kicking slow subscriber")
				o.Registry.Cancel(sid)
			}
			slow.Signal().Close()
		case app.DropFrame, app.MarkSlow:
			log.Debug().Str("module", "orch").Str("user", string(slow.User().ID)).Msg("frame dropped for slow subscriber")
		case app.NoAction:
		}
	}
}

func (o *Orchestrator) broadcastPresence(room core.RoomService) {
	o.broadcast(room, wire.PresenceFrame(room.Room().ID, room.UsersSnapshot()))
}

// Close stops pending deletion timers.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, stop := range o.pending {
		stop()
		delete(o.pending, id)
	}
}

func (o *Orchestrator) room(id domain.RoomID) (core.RoomService, error) {
	room, ok := o.Rooms.GetRoom(id)
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}
