package orch

import (
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Whisper/internal/app"
	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roomID domain.RoomID = "20509997"

type fakeConn struct {
	mu     sync.Mutex
	frames []wire.Envelope
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	env, err := wire.Decode(f)
	if err != nil {
		return err
	}
	c.frames = append(c.frames, env)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) of(typ string) []wire.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []wire.Envelope
	for _, f := range c.frames {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

type scheduled struct {
	d       time.Duration
	f       func()
	stopped bool
}

type fakeClock struct {
	mu   sync.Mutex
	jobs []*scheduled
}

func (c *fakeClock) schedule(d time.Duration, f func()) func() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	job := &scheduled{d: d, f: f}
	c.jobs = append(c.jobs, job)
	return func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		was := !job.stopped
		job.stopped = true
		return was
	}
}

// fire runs every job that was not stopped.
func (c *fakeClock) fire() {
	c.mu.Lock()
	jobs := c.jobs
	c.jobs = nil
	c.mu.Unlock()
	for _, j := range jobs {
		if !j.stopped {
			j.f()
		}
	}
}

type fixture struct {
	orch  *Orchestrator
	clock *fakeClock
	room  core.RoomService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rooms := app.NewRoomManager()
	room := rooms.CreateRoom(roomID, "general", domain.RoomMetadata{MessageTimer: domain.TimerOff})
	clock := &fakeClock{}
	o := &Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Policy:   app.SimplePolicy{},
		Schedule: clock.schedule,
	}
	t.Cleanup(o.Close)
	return &fixture{orch: o, clock: clock, room: room}
}

func (f *fixture) connect(t *testing.T, sid, uid string) (*fakeConn, *bool) {
	t.Helper()
	user, _, err := f.orch.Registry.RegisterUser(uid)
	require.NoError(t, err)
	conn := &fakeConn{}
	canceled := new(bool)
	require.NoError(t, f.orch.Connect(core.SessionID(sid), core.NewMemberSession(user, conn), func() { *canceled = true }))
	return conn, canceled
}

func (f *fixture) join(t *testing.T, sid, uid string) *fakeConn {
	t.Helper()
	conn, _ := f.connect(t, sid, uid)
	_, _, err := f.orch.Subscribe(core.SessionID(sid), roomID, 100)
	require.NoError(t, err)
	return conn
}

func presenceOf(users []domain.User) map[domain.UserID]domain.PresenceState {
	out := make(map[domain.UserID]domain.PresenceState, len(users))
	for _, u := range users {
		out[u.ID] = u.Presence
	}
	return out
}

func TestConnectRequiresRegistration(t *testing.T) {
	f := newFixture(t)
	err := f.orch.Connect("s1", core.NewMemberSession(&domain.User{ID: "ghost"}, &fakeConn{}), nil)
	assert.ErrorIs(t, err, app.ErrUserNotRegistered)
}

func TestSubscribePresence(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	bob := f.join(t, "s2", "bob")

	room, history, err := f.orch.Subscribe("s2", roomID, 100)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, map[domain.UserID]domain.PresenceState{
		"alice": domain.PresenceOnline,
		"bob":   domain.PresenceOnline,
	}, presenceOf(room.Users))

	frames := alice.of(wire.TypePresence)
	require.Len(t, frames, 2)
	assert.Equal(t, domain.PresenceOnline, presenceOf(frames[1].Users)["bob"])
	assert.Len(t, bob.of(wire.TypePresence), 1)

	f.orch.Disconnect("s2")
	frames = alice.of(wire.TypePresence)
	require.Len(t, frames, 3)
	assert.Equal(t, domain.PresenceOffline, presenceOf(frames[2].Users)["bob"])
	assert.Equal(t, 1, f.room.SubscriberCount())
}

func TestSecondSessionKeepsUserOnline(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	f.join(t, "s2", "bob")
	f.join(t, "s3", "bob")
	before := len(alice.of(wire.TypePresence))

	f.orch.Disconnect("s3")
	assert.Len(t, alice.of(wire.TypePresence), before)
	assert.True(t, f.orch.Registry.Online("bob"))
}

func TestSubscribeUnknownRoom(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "s1", "alice")
	_, _, err := f.orch.Subscribe("s1", "nope", 10)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, _, err = f.orch.Subscribe("missing", roomID, 10)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestSendMessageBroadcastsToSender(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	bob := f.join(t, "s2", "bob")

	msg, err := f.orch.SendMessage("s1", roomID, "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, domain.UserID("alice"), msg.SenderID)

	for _, conn := range []*fakeConn{alice, bob} {
		frames := conn.of(wire.TypeMessage)
		require.Len(t, frames, 1)
		assert.Equal(t, msg, *frames[0].Message)
	}

	_, history, err := f.orch.Subscribe("s2", roomID, 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{msg}, history)
}

func TestSendMessageErrors(t *testing.T) {
	f := newFixture(t)
	f.connect(t, "s1", "alice")

	_, err := f.orch.SendMessage("s1", roomID, "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = f.orch.SendMessage("s1", roomID, "hi")
	assert.ErrorIs(t, err, ErrNotSubscribed)
	_, err = f.orch.SendMessage("s9", roomID, "hi")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestUpdateRoom(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	bob := f.join(t, "s2", "bob")

	room, err := f.orch.UpdateRoom("s2", roomID, domain.RoomMetadata{MessageTimer: domain.Timer30s})
	require.NoError(t, err)
	assert.Equal(t, domain.Timer30s, room.Metadata.MessageTimer)
	assert.Equal(t, domain.Timer30s, f.room.Metadata().MessageTimer)

	for _, conn := range []*fakeConn{alice, bob} {
		frames := conn.of(wire.TypeRoomUpdated)
		require.Len(t, frames, 1)
		assert.Equal(t, domain.Timer30s, frames[0].Room.Metadata.MessageTimer)
	}

	_, err = f.orch.UpdateRoom("s1", roomID, domain.RoomMetadata{MessageTimer: "5"})
	assert.ErrorIs(t, err, domain.ErrInvalidTimer)
	assert.Equal(t, domain.Timer30s, f.room.Metadata().MessageTimer)
}

func TestScheduleDeletion(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	msg, err := f.orch.SendMessage("s1", roomID, "secret")
	require.NoError(t, err)

	require.NoError(t, f.orch.ScheduleDeletion(msg.ID, domain.Timer10s))
	require.Len(t, f.clock.jobs, 1)
	assert.Equal(t, 10*time.Second, f.clock.jobs[0].d)
	assert.Len(t, alice.of(wire.TypeMessage), 1)

	f.clock.fire()

	frames := alice.of(wire.TypeMessage)
	require.Len(t, frames, 2)
	assert.Equal(t, msg.ID, frames[1].Message.ID)
	assert.Equal(t, domain.DeletedText, frames[1].Message.Text)

	stored, ok := f.room.Message(msg.ID)
	require.True(t, ok)
	assert.True(t, stored.Deleted())
}

func TestScheduleDeletionReplacesPending(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	msg, err := f.orch.SendMessage("s1", roomID, "secret")
	require.NoError(t, err)

	require.NoError(t, f.orch.ScheduleDeletion(msg.ID, domain.Timer60s))
	require.NoError(t, f.orch.ScheduleDeletion(msg.ID, domain.Timer10s))
	f.clock.fire()

	assert.Len(t, alice.of(wire.TypeMessage), 2, "one original plus one rewrite")
}

func TestScheduleDeletionErrors(t *testing.T) {
	f := newFixture(t)
	f.join(t, "s1", "alice")
	msg, err := f.orch.SendMessage("s1", roomID, "secret")
	require.NoError(t, err)

	assert.ErrorIs(t, f.orch.ScheduleDeletion(msg.ID, domain.TimerOff), domain.ErrInvalidTimer)
	assert.ErrorIs(t, f.orch.ScheduleDeletion(msg.ID, "123"), domain.ErrInvalidTimer)
	assert.ErrorIs(t, f.orch.ScheduleDeletion("unknown", domain.Timer10s), ErrMessageNotFound)
	assert.Empty(t, f.clock.jobs)
}

func TestCloseStopsPendingDeletions(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	msg, err := f.orch.SendMessage("s1", roomID, "secret")
	require.NoError(t, err)
	require.NoError(t, f.orch.ScheduleDeletion(msg.ID, domain.Timer10s))

	f.orch.Close()
	f.clock.fire()
	assert.Len(t, alice.of(wire.TypeMessage), 1)
}

func TestBackpressureKicksSlowSubscriber(t *testing.T) {
	f := newFixture(t)
	alice := f.join(t, "s1", "alice")
	bob, canceled := f.connect(t, "s2", "bob")
	_, _, err := f.orch.Subscribe("s2", roomID, 10)
	require.NoError(t, err)

	bob.mu.Lock()
	bob.full = true
	bob.mu.Unlock()

	_, err = f.orch.SendMessage("s1", roomID, "hello")
	require.NoError(t, err)

	assert.Len(t, alice.of(wire.TypeMessage), 1)
	assert.True(t, *canceled)
	bob.mu.Lock()
	assert.True(t, bob.closed)
	bob.mu.Unlock()
}

func TestAfterFunc(t *testing.T) {
	ran := make(chan struct{})
	stop := AfterFunc(time.Millisecond, func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc never fired")
	}
	assert.False(t, stop())

	stop = AfterFunc(time.Hour, func() { t.Error("stopped timer fired") })
	assert.True(t, stop())
}

func TestStrikePolicyDropsBeforeKicking(t *testing.T) {
	f := newFixture(t)
	f.orch.Policy = app.NewStrikePolicy(1)
	f.join(t, "s1", "alice")
	bob, canceled := f.connect(t, "s2", "bob")
	_, _, err := f.orch.Subscribe("s2", roomID, 10)
	require.NoError(t, err)

	bob.mu.Lock()
	bob.full = true
	bob.mu.Unlock()

	_, err = f.orch.SendMessage("s1", roomID, "one")
	require.NoError(t, err)
	assert.False(t, *canceled, "first miss is tolerated")

	_, err = f.orch.SendMessage("s1", roomID, "two")
	require.NoError(t, err)
	assert.True(t, *canceled)
}
