package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Registrar core.Registrar
	Deleter   core.MessageDeleter
	Connector core.Connector
}

type Options struct {
	RoomID       domain.RoomID
	MessageLimit int
	// OnCommit is called from the loop after every committed snapshot.
	OnCommit func(core.Session)
	// NewID generates status message ids; uuid by default.
	NewID func() string
}

type task func(core.Session) core.Session

// Controller owns the session. Every state change runs as a task on the
// loop started by Run, so tasks never overlap and each one replaces the
// snapshot atomically.
type Controller struct {
	deps  Deps
	opts  Options
	coord *Coordinator

	tasks    chan task
	done     chan struct{}
	state    atomic.Pointer[core.Session]
	inflight sync.WaitGroup

	// Loop-owned.
	ctx      context.Context
	identity core.Identity
	joining  bool
}

func NewController(deps Deps, opts Options) *Controller {
	c := &Controller{
		deps:  deps,
		opts:  opts,
		tasks: make(chan task, 256),
		done:  make(chan struct{}),
	}
	c.coord = NewCoordinator(deps.Deleter, opts.NewID, c.spawn)
	s := core.NewSession()
	c.state.Store(&s)
	return c
}

// Snapshot returns the last committed session.
func (c *Controller) Snapshot() core.Session { return *c.state.Load() }

// Run executes tasks until ctx is done, then closes the channel identity.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.done)
	defer func() {
		if c.identity != nil {
			if err := c.identity.Close(); err != nil {
				log.Warn().Err(err).Str("module", "app.session").Msg("close identity")
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-c.tasks:
			next := t(c.Snapshot())
			c.state.Store(&next)
			if c.opts.OnCommit != nil {
				c.opts.OnCommit(next)
			}
		}
	}
}

// Wait blocks until every in-flight network call has returned.
func (c *Controller) Wait() { c.inflight.Wait() }

func (c *Controller) post(t task) {
	select {
	case c.tasks <- t:
	case <-c.done:
	}
}

func (c *Controller) dispatch(ev core.Event) {
	c.post(func(s core.Session) core.Session { return core.Reduce(s, ev) })
}

func (c *Controller) spawn(f func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		f()
	}()
}

func (c *Controller) SetInput(field core.InputField, value string) {
	c.dispatch(core.InputChanged{Field: field, Value: value})
}

// Join registers userID, connects and subscribes to the configured room.
// Failures are logged and leave the session joinable again.
func (c *Controller) Join(userID string) {
	c.post(func(s core.Session) core.Session {
		uid, err := domain.ParseUserID(userID)
		if err != nil {
			log.Warn().Err(err).Str("module", "app.session").Msg("join ignored")
			return s
		}
		if c.joining || c.identity != nil {
			log.Warn().Str("module", "app.session").Str("user", string(uid)).Msg("join already in progress or done")
			return s
		}
		c.joining = true
		ctx := c.ctx
		c.spawn(func() { c.join(ctx, uid) })
		return s
	})
}

func (c *Controller) join(ctx context.Context, uid domain.UserID) {
	abort := func() {
		c.post(func(s core.Session) core.Session {
			c.joining = false
			return s
		})
	}

	if err := c.deps.Registrar.RegisterUser(ctx, uid); err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("user", string(uid)).Msg("registration failed")
		abort()
		return
	}

	identity, err := c.deps.Connector.Connect(ctx, uid, core.ConnectHooks{OnRoomUpdated: c.onRoomUpdated})
	if err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("user", string(uid)).Msg("connection failed")
		abort()
		return
	}

	room, err := identity.SubscribeToRoom(ctx, core.SubscribeOptions{
		RoomID:       c.opts.RoomID,
		MessageLimit: c.opts.MessageLimit,
		Hooks: core.RoomHooks{
			OnMessage:         c.onMessage,
			OnPresenceChanged: c.onPresenceChanged,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.session").Str("room", string(c.opts.RoomID)).Msg("subscribe failed")
		_ = identity.Close()
		abort()
		return
	}

	c.post(func(s core.Session) core.Session {
		c.identity = identity
		c.joining = false
		log.Info().Str("module", "app.session").Str("user", string(uid)).Str("room", string(room.ID)).Msg("joined")
		return core.Reduce(s, core.Subscribed{Identity: identity.User(), Room: room})
	})
}

func (c *Controller) onMessage(msg domain.Message) {
	c.post(func(s core.Session) core.Session {
		next := core.Reduce(s, core.MessageReceived{Message: msg})
		c.coord.OnMessage(c.ctx, next.MessageTimer, msg)
		return next
	})
}

func (c *Controller) onPresenceChanged(users []domain.User) {
	c.dispatch(core.PresenceChanged{Users: users})
}

func (c *Controller) onRoomUpdated(room domain.Room) {
	c.post(func(s core.Session) core.Session {
		return core.Reduce(s, c.coord.OnRoomUpdated(room))
	})
}

// SendMessage hands text to the channel. The log only changes when the
// channel redelivers the message.
func (c *Controller) SendMessage(text string) {
	c.post(func(s core.Session) core.Session { return c.send(s, text) })
}

// Submit sends the pending input.
func (c *Controller) Submit() {
	c.post(func(s core.Session) core.Session { return c.send(s, s.PendingInput) })
}

func (c *Controller) send(s core.Session, text string) core.Session {
	if strings.TrimSpace(text) == "" {
		return s
	}
	if c.identity == nil || s.Room == nil {
		log.Warn().Str("module", "app.session").Msg("send before join ignored")
		return s
	}
	identity, req, ctx := c.identity, core.SendMessageRequest{Text: text, RoomID: s.Room.ID}, c.ctx
	c.spawn(func() {
		if err := identity.SendMessage(ctx, req); err != nil {
			log.Error().Err(err).Str("module", "app.session").Msg("send failed")
		}
	})
	return core.Reduce(s, core.InputChanged{Field: core.FieldNewMessage, Value: ""})
}

// UpdateMessageTimer sets the timer locally right away and writes it to the
// room metadata. The status notice follows the metadata notification.
func (c *Controller) UpdateMessageTimer(value string) error {
	timer, err := domain.ParseTimer(value)
	if err != nil {
		return err
	}
	c.post(func(s core.Session) core.Session {
		next := core.Reduce(s, core.TimerSet{Timer: timer})
		if c.identity == nil || s.Room == nil {
			log.Warn().Str("module", "app.session").Str("timer", value).Msg("not subscribed, metadata write skipped")
			return next
		}
		identity, ctx := c.identity, c.ctx
		req := core.UpdateRoomRequest{RoomID: s.Room.ID, CustomData: domain.RoomMetadata{MessageTimer: timer}}
		c.spawn(func() {
			if err := identity.UpdateRoom(ctx, req); err != nil {
				log.Error().Err(err).Str("module", "app.session").Str("timer", value).Msg("metadata write failed")
			}
		})
		return next
	})
	return nil
}
