package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type identity struct {
	user  domain.User
	conn  *websocket.Conn
	hooks core.ConnectHooks
	send  chan []byte
	done  chan struct{}
	once  sync.Once

	mu      sync.Mutex
	pending map[string]chan wire.Envelope
	rooms   map[domain.RoomID]core.RoomHooks
}

func newIdentity(user domain.User, conn *websocket.Conn, hooks core.ConnectHooks) *identity {
	return &identity{
		user:    user,
		conn:    conn,
		hooks:   hooks,
		send:    make(chan []byte, sendBacklog),
		done:    make(chan struct{}),
		pending: make(map[string]chan wire.Envelope),
		rooms:   make(map[domain.RoomID]core.RoomHooks),
	}
}

func (i *identity) User() domain.User { return i.user }

// SubscribeToRoom registers hooks before asking, so history replayed right
// after the subscribed reply is not lost.
func (i *identity) SubscribeToRoom(ctx context.Context, opts core.SubscribeOptions) (domain.Room, error) {
	i.mu.Lock()
	i.rooms[opts.RoomID] = opts.Hooks
	i.mu.Unlock()

	reply, err := i.request(ctx, wire.Envelope{
		Type:         wire.TypeSubscribe,
		RoomID:       opts.RoomID,
		MessageLimit: opts.MessageLimit,
	})
	if err != nil {
		i.mu.Lock()
		delete(i.rooms, opts.RoomID)
		i.mu.Unlock()
		return domain.Room{}, fmt.Errorf("subscribe %s: %w", opts.RoomID, err)
	}
	if reply.Room == nil {
		return domain.Room{}, fmt.Errorf("subscribe %s: empty room", opts.RoomID)
	}
	return *reply.Room, nil
}

func (i *identity) SendMessage(ctx context.Context, req core.SendMessageRequest) error {
	if _, err := i.request(ctx, wire.Envelope{Type: wire.TypeSendMessage, RoomID: req.RoomID, Text: req.Text}); err != nil {
		return fmt.Errorf("send message to %s: %w", req.RoomID, err)
	}
	return nil
}

func (i *identity) UpdateRoom(ctx context.Context, req core.UpdateRoomRequest) error {
	meta := req.CustomData
	if _, err := i.request(ctx, wire.Envelope{Type: wire.TypeUpdateRoom, RoomID: req.RoomID, CustomData: &meta}); err != nil {
		return fmt.Errorf("update room %s: %w", req.RoomID, err)
	}
	return nil
}

func (i *identity) Close() error {
	i.shutdown()
	return nil
}

func (i *identity) shutdown() {
	i.once.Do(func() {
		close(i.done)
		_ = i.conn.Close()
		log.Info().Str("module", "realtime").Str("user", string(i.user.ID)).Msg("connection closed")
	})
}

// request sends env with a fresh request id and waits for the matching
// ack, subscribed or error frame.
func (i *identity) request(ctx context.Context, env wire.Envelope) (wire.Envelope, error) {
	env.RequestID = uuid.NewString()
	data, err := wire.Encode(env)
	if err != nil {
		return wire.Envelope{}, err
	}

	reply := make(chan wire.Envelope, 1)
	i.mu.Lock()
	select {
	case <-i.done:
		i.mu.Unlock()
		return wire.Envelope{}, ErrClosed
	default:
	}
	i.pending[env.RequestID] = reply
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		delete(i.pending, env.RequestID)
		i.mu.Unlock()
	}()

	select {
	case i.send <- data:
	case <-i.done:
		return wire.Envelope{}, ErrClosed
	case <-ctx.Done():
		return wire.Envelope{}, ctx.Err()
	}

	select {
	case resp := <-reply:
		if resp.Type == wire.TypeError {
			return wire.Envelope{}, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
		}
		return resp, nil
	case <-i.done:
		return wire.Envelope{}, ErrClosed
	case <-ctx.Done():
		return wire.Envelope{}, ctx.Err()
	}
}

func (i *identity) roomHooks(env wire.Envelope) (core.RoomHooks, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	hooks, ok := i.rooms[env.RoomID]
	return hooks, ok
}
