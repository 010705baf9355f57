package core

import "github.com/coderush/relay/internal/domain"

// memberSession implements MemberSession by pairing meta + transport.
type memberSession struct {
	meta *domain.Participant
	sig  SignalConnection
}

func NewMemberSession(meta *domain.Participant) MemberSession {
	return &memberSession{meta: meta}
}

func (m *memberSession) Meta() *domain.Participant { return m.meta }
func (m *memberSession) Signal() SignalConnection  { return m.sig }

func (m *memberSession) UpdateSignal(sc SignalConnection) MemberSession {
	m.sig = sc
	return m
}
