package session

import (
	"context"
	"sync"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
)

type fakeBackend struct {
	mu          sync.Mutex
	registerErr error
	deleteErr   error
	registered  []domain.UserID
	deletes     []core.DeleteRequest
}

func (b *fakeBackend) RegisterUser(_ context.Context, id domain.UserID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = append(b.registered, id)
	return b.registerErr
}

func (b *fakeBackend) DeleteMessage(_ context.Context, req core.DeleteRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletes = append(b.deletes, req)
	return b.deleteErr
}

func (b *fakeBackend) setRegisterErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerErr = err
}

func (b *fakeBackend) registerCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.registered)
}

func (b *fakeBackend) deleteRequests() []core.DeleteRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.DeleteRequest(nil), b.deletes...)
}

type fakeConnector struct {
	mu       sync.Mutex
	identity *fakeIdentity
	err      error
	hooks    core.ConnectHooks
	calls    int
}

func (c *fakeConnector) Connect(_ context.Context, id domain.UserID, hooks core.ConnectHooks) (core.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	c.hooks = hooks
	c.identity.user = domain.User{ID: id, Name: string(id), Presence: domain.PresenceOnline}
	c.identity.connector = c
	return c.identity, nil
}

func (c *fakeConnector) connectCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// roomUpdated plays a metadata notification as the channel would.
func (c *fakeConnector) roomUpdated(room domain.Room) {
	c.mu.Lock()
	hooks := c.hooks
	c.mu.Unlock()
	hooks.OnRoomUpdated(room)
}

type fakeIdentity struct {
	mu        sync.Mutex
	connector *fakeConnector
	user      domain.User
	room      domain.Room
	subErr    error
	// beforeSubscribe runs inside SubscribeToRoom before it returns.
	beforeSubscribe func()
	hooks           core.RoomHooks
	sent            []core.SendMessageRequest
	updates         []core.UpdateRoomRequest
	closed          bool
}

func (i *fakeIdentity) User() domain.User { return i.user }

func (i *fakeIdentity) SubscribeToRoom(_ context.Context, opts core.SubscribeOptions) (domain.Room, error) {
	if i.beforeSubscribe != nil {
		i.beforeSubscribe()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.subErr != nil {
		return domain.Room{}, i.subErr
	}
	i.hooks = opts.Hooks
	room := i.room
	room.ID = opts.RoomID
	return room, nil
}

func (i *fakeIdentity) SendMessage(_ context.Context, req core.SendMessageRequest) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sent = append(i.sent, req)
	return nil
}

func (i *fakeIdentity) UpdateRoom(_ context.Context, req core.UpdateRoomRequest) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.updates = append(i.updates, req)
	return nil
}

func (i *fakeIdentity) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

func (i *fakeIdentity) deliver(msg domain.Message) {
	i.mu.Lock()
	hooks := i.hooks
	i.mu.Unlock()
	hooks.OnMessage(msg)
}

func (i *fakeIdentity) presence(users []domain.User) {
	i.mu.Lock()
	hooks := i.hooks
	i.mu.Unlock()
	hooks.OnPresenceChanged(users)
}

func (i *fakeIdentity) sentMessages() []core.SendMessageRequest {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]core.SendMessageRequest(nil), i.sent...)
}

func (i *fakeIdentity) roomUpdates() []core.UpdateRoomRequest {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]core.UpdateRoomRequest(nil), i.updates...)
}

func (i *fakeIdentity) isClosed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}
