package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/app/orch"
	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

type collaboratorsUpdate struct {
	Type          string          `json:"type"`
	Collaborators []domain.ConnID `json:"collaborators"`
}

type roleAssigned struct {
	Type   string `json:"type"`
	IsHost bool   `json:"isHost"`
}

type treeStructure struct {
	Type      string            `json:"type"`
	Structure []domain.TreeNode `json:"structure"`
	Expanded  bool              `json:"expanded"`
}

func (ctl *SignalWSController) handleJoinRoom(
	ctx context.Context,
	id domain.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type joinPayload struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		return
	}
	if p.SessionID == "" {
		return
	}

	sid := domain.SessionID(p.SessionID)
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("session", string(sid)).Msg("joinRoom")

	res, err := ctl.Orch.Join(ctx, id, sid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("join failed")
		return
	}
	if res.Left != nil {
		ctl.notifyDeparture(res.Left)
	}

	// Full member list to the whole room, never a diff.
	if frame, ok := ctl.marshal(collaboratorsUpdate{Type: "collaborators-update", Collaborators: res.Members}); ok {
		ctl.Orch.BroadcastToSession(sid, frame)
	}

	ctl.sendJSON(conn, roleAssigned{Type: "role-assigned", IsHost: res.IsHost})

	if res.NewName != "" {
		ctl.sendJSON(conn, struct {
			Type string `json:"type"`
			Name string `json:"name"`
		}{"your-name", res.NewName})
	}

	// Private replay so late joiners see the tree without the host
	// re-sending it.
	if res.HasTree {
		ctl.sendJSON(conn, treeStructure{Type: "treeStructure", Structure: res.Tree, Expanded: true})
	}
}

// notifyDeparture pushes the post-leave member list and, after a host
// failover, the new role to the promoted member only.
func (ctl *SignalWSController) notifyDeparture(dep *orch.Departure) {
	if dep == nil {
		return
	}
	if frame, ok := ctl.marshal(collaboratorsUpdate{Type: "collaborators-update", Collaborators: dep.Members}); ok {
		ctl.Orch.BroadcastToSession(dep.SessionID, frame)
	}
	if !dep.Promoted {
		return
	}
	if frame, ok := ctl.marshal(roleAssigned{Type: "role-assigned", IsHost: true}); ok {
		if err := ctl.Orch.UnicastInSession(dep.SessionID, dep.NewHost, frame); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(dep.NewHost)).
				Msg("could not deliver promoted role")
		}
	}
}

func (ctl *SignalWSController) handleRename(
	id domain.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type renamePayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p renamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad rename payload")
		return
	}
	if err := ctl.Orch.Registry.UpdateDisplayName(id, p.Name); err != nil {
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "invalid_name",
		})
		return
	}
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"your-name", p.Name})
}
