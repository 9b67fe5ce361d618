package signal

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Whisper/internal/core"
	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/rs/zerolog/log"
)

var (
	errRateLimited   = errors.New("rate limited")
	errMissingRoom   = errors.New("missing room_id")
	errMissingCustom = errors.New("missing custom_data")
)

// handleSubscribe replies with the room snapshot, then replays history as
// ordinary message frames so the client folds them like live ones.
func (ctl *SignalWSController) handleSubscribe(sid core.SessionID, conn *WsSignalConn, env wire.Envelope) {
	if env.RoomID == "" {
		ctl.sendJSON(conn, wire.Fail(env.RequestID, errMissingRoom))
		return
	}
	room, history, err := ctl.Orch.Subscribe(sid, env.RoomID, env.MessageLimit)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room_id", string(env.RoomID)).Msg("subscribe")
		ctl.sendJSON(conn, wire.Fail(env.RequestID, err))
		return
	}
	ctl.sendJSON(conn, wire.Envelope{Type: wire.TypeSubscribed, RequestID: env.RequestID, RoomID: room.ID, Room: &room})
	for _, msg := range history {
		ctl.sendJSON(conn, wire.MessageFrame(room.ID, msg))
	}
}

func (ctl *SignalWSController) handleSendMessage(sid core.SessionID, conn *WsSignalConn, env wire.Envelope) {
	sess, ok := ctl.Orch.Registry.GetSession(sid)
	if !ok {
		return
	}
	if ctl.limiter != nil {
		if ok, retry := ctl.limiter.Allow(sess.User().ID); !ok {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Dur("retry", retry).Msg("send rate limited")
			ctl.sendJSON(conn, wire.Fail(env.RequestID, fmt.Errorf("%w, retry in %s", errRateLimited, retry.Round(time.Second))))
			return
		}
	}
	if _, err := ctl.Orch.SendMessage(sid, env.RoomID, env.Text); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("send message")
		ctl.sendJSON(conn, wire.Fail(env.RequestID, err))
		return
	}
	ctl.sendJSON(conn, wire.Ack(env.RequestID))
}

func (ctl *SignalWSController) handleUpdateRoom(sid core.SessionID, conn *WsSignalConn, env wire.Envelope) {
	if env.CustomData == nil {
		ctl.sendJSON(conn, wire.Fail(env.RequestID, errMissingCustom))
		return
	}
	if _, err := ctl.Orch.UpdateRoom(sid, env.RoomID, *env.CustomData); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("update room")
		ctl.sendJSON(conn, wire.Fail(env.RequestID, err))
		return
	}
	ctl.sendJSON(conn, wire.Ack(env.RequestID))
}
