package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/domain"
)

// handleChat attaches the sender's display name from the presence table
// and rebroadcasts to the room.
func (ctl *SignalWSController) handleChat(
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type      string           `json:"type"`
		SessionID domain.SessionID `json:"sessionId"`
		Message   string           `json:"message"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}

	sender := ctl.Orch.Registry.DisplayNameOf(id)
	if frame, ok := ctl.marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Sender  string `json:"sender"`
	}{"chat-message", p.Message, sender}); ok {
		ctl.Orch.BroadcastToSession(p.SessionID, frame)
	}
}
