package app

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrUserNotRegistered = errors.New("user not registered")

type sessionEntry struct {
	UserID  domain.UserID
	Rooms   map[domain.RoomID]struct{}
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry tracks registered users and their bound websocket sessions.
// A user is online while at least one session is bound.
type Registry struct {
	mu       sync.RWMutex
	users    map[domain.UserID]*domain.User
	sessions map[core.SessionID]*sessionEntry
	conns    map[domain.UserID]int
}

func NewRegistry() *Registry {
	return &Registry{
		users:    make(map[domain.UserID]*domain.User),
		sessions: make(map[core.SessionID]*sessionEntry),
		conns:    make(map[domain.UserID]int),
	}
}

// RegisterUser is idempotent; created is false when the id already exists.
func (r *Registry) RegisterUser(raw string) (user *domain.User, created bool, err error) {
	u, err := domain.NewUser(raw)
	if err != nil {
		return nil, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.ID]; ok {
		return existing, false, nil
	}
	r.users[u.ID] = u
	log.Info().Str("module", "app.registry").Str("user", string(u.ID)).Msg("registered user")
	return u, true, nil
}

func (r *Registry) User(id domain.UserID) (*domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return u, ok
}

// BindSignal reports whether this is the user's first live session.
func (r *Registry) BindSignal(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) (first bool, err error) {
	uid := sess.User().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[uid]; !ok {
		return false, ErrUserNotRegistered
	}
	r.sessions[sid] = &sessionEntry{
		UserID:  uid,
		Rooms:   make(map[domain.RoomID]struct{}),
		Session: sess,
		Cancel:  cancel,
	}
	r.conns[uid]++
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(uid)).Msg("bound signal")
	return r.conns[uid] == 1, nil
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind removes the session and returns the rooms it was subscribed to.
// last is true when the user has no session left.
func (r *Registry) Unbind(sid core.SessionID) (uid domain.UserID, rooms []domain.RoomID, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", nil, false, false
	}
	delete(r.sessions, sid)
	for id := range e.Rooms {
		rooms = append(rooms, id)
	}
	r.conns[e.UserID]--
	if r.conns[e.UserID] <= 0 {
		delete(r.conns, e.UserID)
		last = true
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e.UserID, rooms, last, true
}

func (r *Registry) AddRoom(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	entry.Rooms[room] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("added room")
	return true
}

func (r *Registry) InRoom(sid core.SessionID, room domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[sid]
	if !ok {
		return false
	}
	_, ok = entry.Rooms[room]
	return ok
}

// SessionBySignal finds the id of the session owning conn.
func (r *Registry) SessionBySignal(conn core.SignalConnection) (core.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sid, e := range r.sessions {
		if e.Session.Signal() == conn {
			return sid, true
		}
	}
	return "", false
}

func (r *Registry) Online(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[uid] > 0
}

func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
