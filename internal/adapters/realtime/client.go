// Package realtime implements the channel contract over the Whisper
// websocket protocol.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/domain"
	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrClosed   = errors.New("realtime connection closed")
	ErrRejected = errors.New("request rejected")
)

const (
	writeWait   = 5 * time.Second
	sendBacklog = 64
)

type Client struct {
	URL             string
	InstanceLocator string
	Dialer          *websocket.Dialer
}

func NewClient(rawURL, instanceLocator string) *Client {
	return &Client{URL: rawURL, InstanceLocator: instanceLocator, Dialer: websocket.DefaultDialer}
}

// Connect dials the channel as userID and waits for the connected frame.
func (c *Client) Connect(ctx context.Context, userID domain.UserID, hooks core.ConnectHooks) (core.Identity, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime url: %w", err)
	}
	q := u.Query()
	q.Set("user_id", string(userID))
	if c.InstanceLocator != "" {
		q.Set("instance", c.InstanceLocator)
	}
	u.RawQuery = q.Encode()

	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connect %s: %w (status %d)", userID, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("connect %s: %w", userID, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = ws.SetReadDeadline(deadline)
	}
	_, data, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("connect %s: read handshake: %w", userID, err)
	}
	env, err := wire.Decode(data)
	if err != nil || env.Type != wire.TypeConnected || env.User == nil {
		_ = ws.Close()
		return nil, fmt.Errorf("connect %s: unexpected handshake %q", userID, env.Type)
	}
	_ = ws.SetReadDeadline(time.Time{})

	id := newIdentity(*env.User, ws, hooks)
	go id.writePump()
	go id.readPump()
	log.Info().Str("module", "realtime").Str("user", string(userID)).Msg("connected")
	return id, nil
}
