package app

import (
	"sync"

	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

type SessionManagerImpl struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]core.SessionService
}

func NewSessionManager() core.SessionManager {
	return &SessionManagerImpl{sessions: make(map[domain.SessionID]core.SessionService)}
}

func (m *SessionManagerImpl) GetOrCreate(id domain.SessionID) core.SessionService {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok = m.sessions[id]; ok {
		return sess
	}
	sess = core.NewSessionService(&domain.Session{ID: id})
	m.sessions[id] = sess
	return sess
}

func (m *SessionManagerImpl) Get(id domain.SessionID) (core.SessionService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *SessionManagerImpl) List() []core.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.SessionInfo, 0, len(m.sessions))
	for id, s := range m.sessions {
		out = append(out, core.SessionInfo{ID: id, MemberCount: s.MemberCount()})
	}
	return out
}

func (m *SessionManagerImpl) Drop(id domain.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
