package signal

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/domain"
)

// Call signaling is a pure router: no call state is held server-side and
// the target is never validated. A stale target means the frame is dropped.

func (ctl *SignalWSController) handleCallUser(
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type  string                    `json:"type"`
		To    domain.ConnID             `json:"to"`
		From  domain.ConnID             `json:"from"`
		Offer webrtc.SessionDescription `json:"offer"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-user payload")
		return
	}

	frame, ok := ctl.marshal(struct {
		Type  string                    `json:"type"`
		From  domain.ConnID             `json:"from"`
		Offer webrtc.SessionDescription `json:"offer"`
	}{"incoming-call", p.From, p.Offer})
	if !ok {
		return
	}
	if err := ctl.Orch.SendTo(p.To, frame); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("to", string(p.To)).Msg("call-user target gone")
	}
}

func (ctl *SignalWSController) handleAcceptCall(
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type   string                    `json:"type"`
		To     domain.ConnID             `json:"to"`
		From   domain.ConnID             `json:"from"`
		Answer webrtc.SessionDescription `json:"answer"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad accept-call payload")
		return
	}

	frame, ok := ctl.marshal(struct {
		Type   string                    `json:"type"`
		From   domain.ConnID             `json:"from"`
		Answer webrtc.SessionDescription `json:"answer"`
	}{"call-accepted", p.From, p.Answer})
	if !ok {
		return
	}
	if err := ctl.Orch.SendTo(p.To, frame); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("to", string(p.To)).Msg("accept-call target gone")
	}
}

func (ctl *SignalWSController) handleRejectCall(
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type string        `json:"type"`
		To   domain.ConnID `json:"to"`
		From domain.ConnID `json:"from"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad reject-call payload")
		return
	}

	frame, ok := ctl.marshal(struct {
		Type string        `json:"type"`
		From domain.ConnID `json:"from"`
	}{"call-rejected", p.From})
	if !ok {
		return
	}
	if err := ctl.Orch.SendTo(p.To, frame); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("to", string(p.To)).Msg("reject-call target gone")
	}
}

func (ctl *SignalWSController) handleIceCandidate(
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type      string                  `json:"type"`
		To        domain.ConnID           `json:"to"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad ice-candidate payload")
		return
	}

	frame, ok := ctl.marshal(struct {
		Type      string                  `json:"type"`
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}{"ice-candidate", p.Candidate})
	if !ok {
		return
	}
	if err := ctl.Orch.SendTo(p.To, frame); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("to", string(p.To)).Msg("ice-candidate target gone")
	}
}

// handleCallEnded is the one global fan-out: every live connection except
// the sender hears that the call is over.
func (ctl *SignalWSController) handleCallEnded(id domain.ConnID) {
	frame, ok := ctl.marshal(struct {
		Type string `json:"type"`
	}{"call-ended"})
	if !ok {
		return
	}
	for _, snap := range ctl.Orch.Registry.AllExcept(id) {
		_ = snap.Session.Signal().TrySend(frame)
	}
}
