package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

var ErrUnknownConn = errors.New("unknown connection")

type connEntry struct {
	SessionID domain.SessionID
	Session   core.MemberSession
	Cancel    context.CancelFunc
}

// Registry is the process-wide connection table: which session each
// connection belongs to and who the participant behind it is. All mutation
// goes through one mutex; it is injected into handlers, never reached
// through package globals.
type Registry struct {
	mu           sync.RWMutex
	conns        map[domain.ConnID]*connEntry
	participants map[domain.ConnID]*domain.Participant
	named        map[domain.ConnID]bool
}

func NewRegistry() *Registry {
	return &Registry{
		conns:        make(map[domain.ConnID]*connEntry),
		participants: make(map[domain.ConnID]*domain.Participant),
		named:        make(map[domain.ConnID]bool),
	}
}

// GetOrCreateParticipant assigns the derived display name on first sight.
func (r *Registry) GetOrCreateParticipant(id domain.ConnID) (*domain.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.participants[id]; ok {
		return p, false
	}
	p := domain.NewParticipant(id)
	r.participants[id] = p
	log.Info().Str("module", "app.registry").Str("conn", string(id)).
		Str("name", p.DisplayName).Msg("created participant")
	return p, true
}

// ClaimName returns the display name and whether it has not been delivered
// yet. The name is sent privately exactly once, on first join.
func (r *Registry) ClaimName(id domain.ConnID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return "", false
	}
	if r.named[id] {
		return p.DisplayName, false
	}
	r.named[id] = true
	return p.DisplayName, true
}

// DisplayNameOf falls back to "Anonymous" for unknown connections so chat
// relay never fails on a race with disconnect.
func (r *Registry) DisplayNameOf(id domain.ConnID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.participants[id]; ok {
		return p.DisplayName
	}
	return "Anonymous"
}

func (r *Registry) UpdateDisplayName(id domain.ConnID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok {
		return ErrUnknownConn
	}
	if err := p.SetDisplayName(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).
		Str("name", name).Msg("updated display name")
	return nil
}

func (r *Registry) BindSignal(id domain.ConnID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("bound signal")
}

func (r *Registry) GetSession(id domain.ConnID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind drops the connection and its participant entry.
func (r *Registry) Unbind(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	delete(r.participants, id)
	delete(r.named, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbind connection")
}

func (r *Registry) SessionOf(id domain.ConnID) (domain.SessionID, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.SessionID == "" {
		return "", nil, false
	}
	return e.SessionID, e.Session, true
}

func (r *Registry) UpdateSession(id domain.ConnID, sid domain.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return false
	}
	e.SessionID = sid
	log.Info().Str("module", "app.registry").Str("conn", string(id)).
		Str("session", string(sid)).Msg("updated session")
	return true
}

func (r *Registry) ClearSession(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.SessionID = ""
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("cleared session association")
}

type ConnSnap struct {
	ID      domain.ConnID
	Session core.MemberSession
}

// AllExcept snapshots every live connection but one. Used by the
// call-ended relay, which is a global broadcast rather than a room one.
func (r *Registry) AllExcept(id domain.ConnID) []ConnSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConnSnap, 0, len(r.conns))
	for cid, e := range r.conns {
		if cid == id {
			continue
		}
		out = append(out, ConnSnap{ID: cid, Session: e.Session})
	}
	return out
}

func (r *Registry) Cancel(id domain.ConnID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}
