package orch

import (
	"errors"

	"github.com/coderush/relay/internal/app"
	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

var ErrNotConnected = errors.New("target not connected")

// Orchestrator glues the connection registry, the session manager and the
// tree store together. Adapters hand it parsed intents; it never sees JSON.
type Orchestrator struct {
	Registry *app.Registry
	Sessions core.SessionManager
	Policy   app.Policy
	Store    core.TreeStore

	// OnDeparture, when set, receives the fallout of members removed
	// outside the disconnect path (policy kicks), so the adapter can push
	// presence and role updates to the survivors.
	OnDeparture func(*Departure)
}

// SendTo is a global unicast by connection id. A stale target yields
// ErrNotConnected and the frame is dropped, per the signaling contract.
func (o *Orchestrator) SendTo(to domain.ConnID, data core.Frame) error {
	sess, ok := o.Registry.GetSession(to)
	if !ok {
		return ErrNotConnected
	}
	return sess.Signal().TrySend(data)
}

// BroadcastToSession fans a frame out to every member of the session,
// sender included, and applies the backpressure policy to slow members.
func (o *Orchestrator) BroadcastToSession(sid domain.SessionID, data core.Frame) {
	sess, ok := o.Sessions.Get(sid)
	if !ok {
		return
	}
	o.applyPolicy(sess, sess.Broadcast(data))
}

// UnicastInSession delivers to one member of a session.
func (o *Orchestrator) UnicastInSession(sid domain.SessionID, to domain.ConnID, data core.Frame) error {
	sess, ok := o.Sessions.Get(sid)
	if !ok {
		return ErrNotConnected
	}
	return sess.Unicast(to, data)
}

// HostOf looks up the current host, if any, of a session.
func (o *Orchestrator) HostOf(sid domain.SessionID) (domain.ConnID, bool) {
	sess, ok := o.Sessions.Get(sid)
	if !ok {
		return "", false
	}
	return sess.HostID()
}

func (o *Orchestrator) applyPolicy(sess core.SessionService, res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(sess, slow) {
		case app.KickMember:
			o.kick(slow)
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}

// kick removes a slow member from its session, surfaces the departure so
// the survivors hear about it (a kicked host must hand the role over), and
// tears the transport down so the read pump unblocks.
func (o *Orchestrator) kick(id domain.ConnID) {
	dep := o.KickByConn(id)
	if dep != nil && o.OnDeparture != nil {
		o.OnDeparture(dep)
	}
	if ms, ok := o.Registry.GetSession(id); ok {
		ms.Signal().Close()
	}
	o.Registry.Cancel(id)
}
