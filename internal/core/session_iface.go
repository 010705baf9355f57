package core

import "github.com/coderush/relay/internal/domain"

// MemberSession binds domain.Participant and its transport endpoint.
// This is what a session stores and fans out to.
type MemberSession interface {
	Meta() *domain.Participant
	Signal() SignalConnection
	UpdateSignal(SignalConnection) MemberSession
}
