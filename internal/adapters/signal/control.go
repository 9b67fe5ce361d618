package signal

import "github.com/dkeye/Whisper/internal/transport/wire"

func (ctl *SignalWSController) handlePing(conn *WsSignalConn, env wire.Envelope) {
	ctl.sendJSON(conn, wire.Envelope{Type: wire.TypePong, RequestID: env.RequestID})
}
