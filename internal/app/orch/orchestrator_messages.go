package orch

import (
	"fmt"
	"strings"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SendMessage stores a new message and fans it out to every subscriber,
// the sender included.
func (o *Orchestrator) SendMessage(sid core.SessionID, roomID domain.RoomID, text string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, ErrEmptyMessage
	}
	sess, ok := o.Registry.GetSession(sid)
	if !ok {
		return domain.Message{}, ErrUnknownSession
	}
	room, err := o.room(roomID)
	if err != nil {
		return domain.Message{}, err
	}
	if !o.Registry.InRoom(sid, roomID) {
		return domain.Message{}, ErrNotSubscribed
	}
	msg := domain.Message{
		ID:       uuid.NewString(),
		SenderID: sess.User().ID,
		Text:     text,
		Kind:     domain.KindMessage,
	}
	room.AppendMessage(msg)
	o.broadcast(room, wire.MessageFrame(roomID, msg))
	return msg, nil
}

// UpdateRoom replaces the room's shared metadata and notifies every
// subscriber, the writer included. Concurrent writers: last one wins.
func (o *Orchestrator) UpdateRoom(sid core.SessionID, roomID domain.RoomID, meta domain.RoomMetadata) (domain.Room, error) {
	if !meta.MessageTimer.Valid() {
		return domain.Room{}, fmt.Errorf("update room %s: %w", roomID, domain.ErrInvalidTimer)
	}
	room, err := o.room(roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !o.Registry.InRoom(sid, roomID) {
		return domain.Room{}, ErrNotSubscribed
	}
	updated := room.UpdateMetadata(meta)
	o.broadcast(room, wire.RoomUpdatedFrame(updated))
	return updated, nil
}

// ScheduleDeletion rewrites the message to domain.DeletedText once timer
// elapses and redelivers it to the room. A second request for the same
// message replaces the first.
func (o *Orchestrator) ScheduleDeletion(messageID string, timer domain.Timer) error {
	if !timer.Armed() {
		return fmt.Errorf("schedule deletion: %w", domain.ErrInvalidTimer)
	}
	if _, _, ok := o.Rooms.FindMessage(messageID); !ok {
		return ErrMessageNotFound
	}
	schedule := o.Schedule
	if schedule == nil {
		schedule = AfterFunc
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending == nil {
		o.pending = make(map[string]func() bool)
	}
	if stop, ok := o.pending[messageID]; ok {
		stop()
	}
	o.pending[messageID] = schedule(timer.Duration(), func() { o.deleteNow(messageID) })
	log.Info().Str("module", "orch").Str("message", messageID).Str("timer", string(timer)).Msg("deletion scheduled")
	return nil
}

func (o *Orchestrator) deleteNow(messageID string) {
	o.mu.Lock()
	delete(o.pending, messageID)
	o.mu.Unlock()

	room, msg, ok := o.Rooms.FindMessage(messageID)
	if !ok || msg.Deleted() {
		return
	}
	msg.Text = domain.DeletedText
	if !room.ReplaceMessage(msg) {
		return
	}
	log.Info().Str("module", "orch").Str("message", messageID).Msg("message deleted")
	o.broadcast(room, wire.MessageFrame(room.Room().ID, msg))
}
