package app

import (
	"sync"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
)

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() core.RoomManager {
	return &RoomManagerImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

// CreateRoom returns the existing room when id is taken.
func (f *RoomManagerImpl) CreateRoom(id domain.RoomID, name domain.RoomName, meta domain.RoomMetadata) core.RoomService {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok := f.rooms[id]; ok {
		return room
	}
	if !meta.MessageTimer.Valid() {
		meta.MessageTimer = domain.TimerOff
	}
	room := core.NewRoomService(id, name, meta)
	f.rooms[id] = room
	return room
}

func (f *RoomManagerImpl) GetRoom(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) FindMessage(id string) (core.RoomService, domain.Message, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, r := range f.rooms {
		if msg, ok := r.Message(id); ok {
			return r, msg, true
		}
	}
	return nil, domain.Message{}, false
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		room := r.Room()
		out = append(out, core.RoomInfo{ID: id, Name: room.Name, MemberCount: r.SubscriberCount()})
	}
	return out
}
