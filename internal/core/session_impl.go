package core

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coderush/relay/internal/domain"
)

var ErrNoSuchMember = errors.New("no such member")

// sessionImpl is a threadsafe in-memory session.
// It never closes adapter-owned resources.
type sessionImpl struct {
	session *domain.Session

	mu     sync.RWMutex
	byConn map[domain.ConnID]MemberSession
	order  []domain.ConnID // join order; index 0 is host-eligible first
	hostID domain.ConnID   // empty when the session has no host
}

func NewSessionService(session *domain.Session) SessionService {
	return &sessionImpl{
		session: session,
		byConn:  make(map[domain.ConnID]MemberSession),
	}
}

func (s *sessionImpl) Session() *domain.Session { return s.session }

func (s *sessionImpl) MemberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byConn)
}

func (s *sessionImpl) Members() []domain.ConnID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConnID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *sessionImpl) MembersSnapshot() []MemberDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MemberDTO, 0, len(s.order))
	for _, id := range s.order {
		ms, ok := s.byConn[id]
		if !ok {
			continue
		}
		out = append(out, MemberDTO{
			ID:          id,
			DisplayName: ms.Meta().DisplayName,
			IsHost:      id == s.hostID,
		})
	}
	return out
}

func (s *sessionImpl) Member(id domain.ConnID) (MemberSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.byConn[id]
	return ms, ok
}

func (s *sessionImpl) HostID() (domain.ConnID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostID, s.hostID != ""
}

func (s *sessionImpl) IsHost(id domain.ConnID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostID != "" && s.hostID == id
}

func (s *sessionImpl) AddMember(id domain.ConnID, ms MemberSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byConn[id]; !ok {
		s.order = append(s.order, id)
	}
	s.byConn[id] = ms
	if s.hostID == "" {
		s.hostID = id
	}
	isHost := s.hostID == id
	log.Info().Str("module", "core.session").Str("session", string(s.session.ID)).
		Str("conn", string(id)).Bool("host", isHost).Msg("member added")
	return isHost
}

func (s *sessionImpl) RemoveMember(id domain.ConnID) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byConn[id]; !ok {
		return false, len(s.byConn)
	}
	delete(s.byConn, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	wasHost := s.hostID == id
	if wasHost {
		s.hostID = ""
	}
	log.Info().Str("module", "core.session").Str("session", string(s.session.ID)).
		Str("conn", string(id)).Msg("member removed")
	return wasHost, len(s.byConn)
}

func (s *sessionImpl) PromoteNextHost() (domain.ConnID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return "", false
	}
	s.hostID = s.order[0]
	log.Info().Str("module", "core.session").Str("session", string(s.session.ID)).
		Str("conn", string(s.hostID)).Msg("host promoted")
	return s.hostID, true
}

func (s *sessionImpl) Broadcast(data Frame) PublishResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := PublishResult{}
	for id, ms := range s.byConn {
		if err := ms.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.session").Str("session", string(s.session.ID)).
		Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (s *sessionImpl) Unicast(to domain.ConnID, data Frame) error {
	s.mu.RLock()
	ms, ok := s.byConn[to]
	s.mu.RUnlock()
	if !ok {
		return ErrNoSuchMember
	}
	return ms.Signal().TrySend(data)
}
