package realtime

import (
	"time"

	"github.com/dkeye/Whisper/internal/transport/wire"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (i *identity) writePump() {
	for {
		select {
		case <-i.done:
			return
		case data := <-i.send:
			if err := i.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "realtime").Msg("writePump set deadline")
				i.shutdown()
				return
			}
			if err := i.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "realtime").Msg("writePump write error")
				i.shutdown()
				return
			}
		}
	}
}

// readPump dispatches frames in arrival order from a single goroutine, which
// keeps per-room hook calls FIFO.
func (i *identity) readPump() {
	defer i.shutdown()
	for {
		_, data, err := i.conn.ReadMessage()
		if err != nil {
			select {
			case <-i.done:
			default:
				log.Warn().Err(err).Str("module", "realtime").Msg("readPump read error")
			}
			return
		}
		env, err := wire.Decode(data)
		if err != nil {
			log.Error().Err(err).Str("module", "realtime").Msg("bad frame")
			continue
		}
		i.dispatch(env)
	}
}

func (i *identity) dispatch(env wire.Envelope) {
	switch env.Type {
	case wire.TypeAck, wire.TypeSubscribed, wire.TypeError, wire.TypePong:
		i.mu.Lock()
		reply, ok := i.pending[env.RequestID]
		i.mu.Unlock()
		if ok {
			select {
			case reply <- env:
			default:
			}
		} else if env.Type == wire.TypeError {
			log.Warn().Str("module", "realtime").Str("error", env.Error).Msg("unsolicited error frame")
		}
	case wire.TypeMessage:
		hooks, ok := i.roomHooks(env)
		if ok && hooks.OnMessage != nil && env.Message != nil {
			hooks.OnMessage(*env.Message)
		}
	case wire.TypePresence:
		hooks, ok := i.roomHooks(env)
		if ok && hooks.OnPresenceChanged != nil {
			hooks.OnPresenceChanged(env.Users)
		}
	case wire.TypeRoomUpdated:
		if i.hooks.OnRoomUpdated != nil && env.Room != nil {
			i.hooks.OnRoomUpdated(*env.Room)
		}
	default:
		log.Warn().Str("module", "realtime").Str("type", env.Type).Msg("unknown frame")
	}
}
