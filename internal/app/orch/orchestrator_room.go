package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/domain"
)

// JoinResult carries everything the adapter must deliver after a join:
// the assigned role, the fresh display name (first join only), the full
// member list for the presence broadcast and the replayed tree snapshot.
type JoinResult struct {
	SessionID domain.SessionID
	IsHost    bool
	NewName   string // empty unless this is the participant's first join
	Members   []domain.ConnID
	Tree      []domain.TreeNode
	HasTree   bool

	// Left is set when the connection was moved out of another session
	// by this join; that session needs its own presence/role updates.
	Left *Departure
}

// Departure describes the fallout of a member leaving a session.
// Promoted is set when the departed member was host and the role failed
// over to NewHost (first remaining member in join order).
type Departure struct {
	SessionID domain.SessionID
	Members   []domain.ConnID
	NewHost   domain.ConnID
	Promoted  bool
}

// Join adds the connection to the session, assigning host to the first
// joiner. The tree snapshot, if any, is fetched for private replay; a cache
// failure degrades to no replay and the join still succeeds.
func (o *Orchestrator) Join(ctx context.Context, id domain.ConnID, sid domain.SessionID) (JoinResult, error) {
	ms, ok := o.Registry.GetSession(id)
	if !ok {
		return JoinResult{}, ErrNotConnected
	}

	res := JoinResult{SessionID: sid}
	if oldSid, _, ok := o.Registry.SessionOf(id); ok && oldSid != sid {
		res.Left = o.KickByConn(id)
		log.Info().Str("module", "orch").Str("conn", string(id)).
			Str("from_session", string(oldSid)).Msg("moved out of previous session")
	}

	if name, first := o.Registry.ClaimName(id); first {
		res.NewName = name
	}

	sess := o.Sessions.GetOrCreate(sid)
	res.IsHost = sess.AddMember(id, ms)
	o.Registry.UpdateSession(id, sid)
	res.Members = sess.Members()

	nodes, ok, err := o.Store.GetTree(ctx, sid)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("session", string(sid)).
			Msg("tree replay skipped, cache unavailable")
	} else if ok {
		res.Tree = nodes
		res.HasTree = true
	}

	log.Info().Str("module", "orch").Str("conn", string(id)).
		Str("session", string(sid)).Bool("host", res.IsHost).Msg("joined session")
	return res, nil
}

// KickByConn removes the connection from its current session, if any,
// without touching the transport. Returns the departure fallout.
func (o *Orchestrator) KickByConn(id domain.ConnID) *Departure {
	sid, _, ok := o.Registry.SessionOf(id)
	if !ok {
		return nil
	}
	o.Registry.ClearSession(id)
	return o.removeFromSession(sid, id)
}

// OnDisconnect tears down all state for a dead connection. Host failover
// happens here: the first remaining member in join order is promoted and
// reported so the adapter can push the new role.
func (o *Orchestrator) OnDisconnect(id domain.ConnID) *Departure {
	sid, _, ok := o.Registry.SessionOf(id)
	o.Registry.Unbind(id)
	if !ok {
		return nil
	}
	return o.removeFromSession(sid, id)
}

func (o *Orchestrator) removeFromSession(sid domain.SessionID, id domain.ConnID) *Departure {
	sess, ok := o.Sessions.Get(sid)
	if !ok {
		return nil
	}
	wasHost, remaining := sess.RemoveMember(id)
	if remaining == 0 {
		o.Sessions.Drop(sid)
		log.Info().Str("module", "orch").Str("session", string(sid)).Msg("session emptied, dropped")
		return nil
	}
	dep := &Departure{SessionID: sid, Members: sess.Members()}
	if wasHost {
		dep.NewHost, dep.Promoted = sess.PromoteNextHost()
		if dep.Promoted {
			log.Info().Str("module", "orch").Str("session", string(sid)).
				Str("new_host", string(dep.NewHost)).Msg("host failed over")
		}
	}
	return dep
}
