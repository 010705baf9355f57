package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

type fileOpened struct {
	Type string          `json:"type"`
	File domain.OpenFile `json:"file"`
}

type fileError struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// handleFolderStructure persists the host's snapshot and rebroadcasts it
// live. A cache failure degrades persistence/replay only; the live
// broadcast still goes out.
func (ctl *SignalWSController) handleFolderStructure(
	ctx context.Context,
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type      string            `json:"type"`
		Structure []domain.TreeNode `json:"structure"`
		SessionID domain.SessionID  `json:"sessionId"`
		Expanded  bool              `json:"expanded"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad folder-structure payload")
		return
	}

	_ = ctl.Orch.PersistTree(ctx, p.SessionID, p.Structure)

	if frame, ok := ctl.marshal(treeStructure{Type: "treeStructure", Structure: p.Structure, Expanded: p.Expanded}); ok {
		ctl.Orch.BroadcastToSession(p.SessionID, frame)
	}
}

// handleFileOpened relays a host-opened file: unicast when answering a
// specific request, room broadcast otherwise.
func (ctl *SignalWSController) handleFileOpened(
	ctx context.Context,
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type      string           `json:"type"`
		File      domain.OpenFile  `json:"file"`
		SessionID domain.SessionID `json:"sessionId"`
		To        domain.ConnID    `json:"to,omitempty"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad fileOpened payload")
		return
	}

	_ = ctl.Orch.PersistOpenFile(ctx, p.SessionID, p.File)

	frame, ok := ctl.marshal(fileOpened{Type: "fileOpened", File: p.File})
	if !ok {
		return
	}
	if p.To != "" {
		if err := ctl.Orch.UnicastInSession(p.SessionID, p.To, frame); err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("to", string(p.To)).Msg("fileOpened target gone")
		}
		return
	}
	ctl.Orch.BroadcastToSession(p.SessionID, frame)
}

// handleFileUpdated is the last-write-wins edit path: persist the new
// content, then rebroadcast to the whole session in arrival order.
func (ctl *SignalWSController) handleFileUpdated(
	ctx context.Context,
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type      string           `json:"type"`
		File      domain.OpenFile  `json:"file"`
		SessionID domain.SessionID `json:"sessionId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad fileUpdated payload")
		return
	}

	_ = ctl.Orch.PersistOpenFile(ctx, p.SessionID, p.File)

	if frame, ok := ctl.marshal(struct {
		Type string          `json:"type"`
		File domain.OpenFile `json:"file"`
	}{"fileUpdated", p.File}); ok {
		ctl.Orch.BroadcastToSession(p.SessionID, frame)
	}
}

// handleRequestFile forwards a guest's open request to the current host,
// tagging it with the requester id. No host (or a stale host connection)
// yields an explicit negative ack instead of a silent drop.
func (ctl *SignalWSController) handleRequestFile(
	id domain.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type payload struct {
		Type      string           `json:"type"`
		Path      string           `json:"path"`
		SessionID domain.SessionID `json:"sessionId"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad request-file payload")
		return
	}

	hostID, ok := ctl.Orch.HostOf(p.SessionID)
	if !ok {
		ctl.sendJSON(conn, fileError{Type: "file-error", Path: p.Path, Reason: "no host available"})
		return
	}
	if hostID == id {
		// The host already has the file locally.
		return
	}

	log.Info().Str("module", "signal").Str("path", p.Path).
		Str("host", string(hostID)).Str("requester", string(id)).Msg("file requested")

	frame, ok := ctl.marshal(struct {
		Type        string        `json:"type"`
		Path        string        `json:"path"`
		RequesterID domain.ConnID `json:"requesterId"`
	}{"request-file", p.Path, id})
	if !ok {
		return
	}
	if err := ctl.Orch.SendTo(hostID, frame); err != nil {
		ctl.sendJSON(conn, fileError{Type: "file-error", Path: p.Path, Reason: "no host available"})
	}
}

// handleFileResponse delivers the host's answer to the requester only.
func (ctl *SignalWSController) handleFileResponse(
	id domain.ConnID,
	data []byte,
) {
	type payload struct {
		Type      string           `json:"type"`
		File      domain.OpenFile  `json:"file"`
		SessionID domain.SessionID `json:"sessionId"`
		To        domain.ConnID    `json:"to"`
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad file-response payload")
		return
	}
	if p.To == "" {
		return
	}
	frame, ok := ctl.marshal(fileOpened{Type: "fileOpened", File: p.File})
	if !ok {
		return
	}
	if err := ctl.Orch.UnicastInSession(p.SessionID, p.To, frame); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("to", string(p.To)).Msg("file-response target gone")
	}
}
