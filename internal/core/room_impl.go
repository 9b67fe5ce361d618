package core

import (
	"sync"

	"github.com/dkeye/Whisper/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	mu       sync.RWMutex
	id       domain.RoomID
	name     domain.RoomName
	meta     domain.RoomMetadata
	members  []*domain.Member
	byUser   map[domain.UserID]*domain.Member
	messages []domain.Message
	byMsgID  map[string]int
	bySID    map[SessionID]MemberSession
}

func NewRoomService(id domain.RoomID, name domain.RoomName, meta domain.RoomMetadata) RoomService {
	return &roomImpl{
		id:      id,
		name:    name,
		meta:    meta,
		byUser:  make(map[domain.UserID]*domain.Member),
		byMsgID: make(map[string]int),
		bySID:   make(map[SessionID]MemberSession),
	}
}

func (r *roomImpl) Room() domain.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.Room{ID: r.id, Name: r.name, Metadata: r.meta, Users: r.usersLocked()}
}

func (r *roomImpl) Metadata() domain.RoomMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.meta
}

func (r *roomImpl) UpdateMetadata(meta domain.RoomMetadata) domain.Room {
	r.mu.Lock()
	r.meta = meta
	r.mu.Unlock()
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("timer", string(meta.MessageTimer)).Msg("metadata updated")
	return r.Room()
}

func (r *roomImpl) AddMember(user *domain.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[user.ID]; ok {
		return false
	}
	m := domain.NewMember(user)
	r.members = append(r.members, m)
	r.byUser[user.ID] = m
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("user", string(user.ID)).Msg("member added")
	return true
}

func (r *roomImpl) SetPresence(id domain.UserID, state domain.PresenceState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byUser[id]
	if !ok || m.Presence == state {
		return false
	}
	m.Presence = state
	return true
}

func (r *roomImpl) UsersSnapshot() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usersLocked()
}

func (r *roomImpl) usersLocked() []domain.User {
	out := make([]domain.User, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.Snapshot())
	}
	return out
}

func (r *roomImpl) AppendMessage(msg domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMsgID[msg.ID] = len(r.messages)
	r.messages = append(r.messages, msg)
}

func (r *roomImpl) ReplaceMessage(msg domain.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byMsgID[msg.ID]
	if !ok {
		return false
	}
	r.messages[i] = msg
	return true
}

func (r *roomImpl) Message(id string) (domain.Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byMsgID[id]
	if !ok {
		return domain.Message{}, false
	}
	return r.messages[i], true
}

func (r *roomImpl) RecentMessages(limit int) []domain.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	start := 0
	if limit >= 0 && len(r.messages) > limit {
		start = len(r.messages) - limit
	}
	out := make([]domain.Message, len(r.messages)-start)
	copy(out, r.messages[start:])
	return out
}

func (r *roomImpl) Subscribe(sid SessionID, ms MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySID[sid] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("subscribed")
}

func (r *roomImpl) Unsubscribe(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bySID, sid)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(sid)).Msg("unsubscribed")
}

func (r *roomImpl) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) Broadcast(data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for _, m := range r.bySID {
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
