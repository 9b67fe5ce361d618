package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Whisper/internal/app/orch"
	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	InstanceLocator string
	ReadLimit       int64
	PingPeriod      time.Duration
	SendLimit       int
	SendInterval    time.Duration
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	opts    Options
	limiter *SendLimiter
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	ctl := &SignalWSController{Orch: o, opts: opts}
	if opts.SendLimit > 0 && opts.SendInterval > 0 {
		ctl.limiter = NewSendLimiter(opts.SendLimit, opts.SendInterval)
	}
	return ctl
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades GET /ws?user_id=..&instance=.. for a registered user.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	if ctl.opts.InstanceLocator != "" && c.Query("instance") != ctl.opts.InstanceLocator {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown instance"})
		return
	}
	uid, err := domain.ParseUserID(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := ctl.Orch.Registry.User(uid)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not registered"})
		return
	}

	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(uid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.opts.ReadLimit > 0 {
		ws.SetReadLimit(ctl.opts.ReadLimit)
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 64),
	}

	sess := core.NewMemberSession(user, conn)
	ctx, cancel := context.WithCancel(ctx)
	if err := ctl.Orch.Connect(sid, sess, cancel); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("connect")
		cancel()
		conn.Close()
		return
	}

	snapshot := *user
	snapshot.Presence = domain.PresenceOnline
	ctl.sendJSON(conn, wire.Envelope{Type: wire.TypeConnected, User: &snapshot})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, uid, conn)
}
