package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/rs/zerolog/log"
)

// Connect binds a websocket session. The first session of a user flips
// their presence to online in every room they belong to.
func (o *Orchestrator) Connect(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) error {
	first, err := o.Registry.BindSignal(sid, sess, cancel)
	if err != nil {
		return fmt.Errorf("connect %s: %w", sid, err)
	}
	if first {
		o.setPresence(sess.User().ID, domain.PresenceOnline)
	}
	return nil
}

// Subscribe adds the session's user to the room and returns the room
// snapshot plus up to limit recent messages for replay.
func (o *Orchestrator) Subscribe(sid core.SessionID, roomID domain.RoomID, limit int) (domain.Room, []domain.Message, error) {
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.Room{}, nil, ErrUnknownSession
	}
	room, err := o.room(roomID)
	if err != nil {
		return domain.Room{}, nil, err
	}
	user := sess.User()
	added := room.AddMember(user)
	changed := room.SetPresence(user.ID, domain.PresenceOnline)
	room.Subscribe(sid, sess)
	o.Registry.AddRoom(sid, roomID)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Msg("subscribed to room")

	snapshot := room.Room()
	history := room.RecentMessages(limit)
	if added || changed {
		o.broadcastPresence(room)
	}
	return snapshot, history, nil
}

// Disconnect drops the session; the user's last session going away flips
// their presence to offline.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	uid, rooms, last, ok := o.Registry.Unbind(sid)
	if !ok {
		return
	}
	for _, id := range rooms {
		if room, ok := o.Rooms.GetRoom(id); ok {
			room.Unsubscribe(sid)
		}
	}
	if last {
		o.setPresence(uid, domain.PresenceOffline)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(uid)).Msg("disconnected")
}

func (o *Orchestrator) setPresence(uid domain.UserID, state domain.PresenceState) {
	for _, info := range o.Rooms.List() {
		room, ok := o.Rooms.GetRoom(info.ID)
		if !ok {
			continue
		}
		if room.SetPresence(uid, state) {
			o.broadcastPresence(room)
		}
	}
}
