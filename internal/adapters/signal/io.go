package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump handles each inbound envelope to completion before reading the
// next, so per-connection arrival order is preserved end to end.
func (ctl *SignalWSController) readPump(ctx context.Context, id domain.ConnID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		dep := ctl.Orch.OnDisconnect(id)
		ctl.notifyDeparture(dep)
		ctl.Limiter.Forget(id)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
				return
			}
			if !ctl.Limiter.Allow(id) {
				log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("rate limited, frame dropped")
				continue
			}
			ctl.handleSignal(ctx, id, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, id domain.ConnID, c core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "joinRoom":
		ctl.handleJoinRoom(ctx, id, c, data)
	case "ping":
		ctl.handlePing(c)
	case "rename":
		ctl.handleRename(id, c, data)
	case "folder-structure":
		ctl.handleFolderStructure(ctx, id, data)
	case "fileOpened":
		ctl.handleFileOpened(ctx, id, data)
	case "fileUpdated":
		ctl.handleFileUpdated(ctx, id, data)
	case "request-file":
		ctl.handleRequestFile(id, c, data)
	case "file-response":
		ctl.handleFileResponse(id, data)
	case "chat-message":
		ctl.handleChat(id, data)
	case "call-user":
		ctl.handleCallUser(id, data)
	case "accept-call":
		ctl.handleAcceptCall(id, data)
	case "reject-call":
		ctl.handleRejectCall(id, data)
	case "ice-candidate":
		ctl.handleIceCandidate(id, data)
	case "call-ended":
		ctl.handleCallEnded(id)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) marshal(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("marshal envelope")
		return nil, false
	}
	return b, true
}
