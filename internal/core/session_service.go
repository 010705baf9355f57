package core

import (
	"github.com/coderush/relay/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SentTo  int
	Dropped []domain.ConnID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID          domain.ConnID `json:"id"`
	DisplayName string        `json:"displayName"`
	IsHost      bool          `json:"isHost"`
}

// SessionService is the core-facing API of one collaborative session.
// It owns the membership set but never touches transport resources.
//
// Membership is ordered by join time; the first joiner becomes host. The
// host role is derived from HostID by identity comparison, never stored on
// the member itself, so failover only rewrites one field.
type SessionService interface {
	Session() *domain.Session
	MemberCount() int
	Members() []domain.ConnID
	MembersSnapshot() []MemberDTO
	Member(id domain.ConnID) (MemberSession, bool)

	HostID() (domain.ConnID, bool)
	IsHost(id domain.ConnID) bool

	// AddMember appends in join order and reports whether the joiner
	// became host (first join into an empty session).
	AddMember(id domain.ConnID, ms MemberSession) (isHost bool)
	// RemoveMember reports whether the departed member was host and how
	// many members remain.
	RemoveMember(id domain.ConnID) (wasHost bool, remaining int)
	// PromoteNextHost assigns the host role to the first remaining member
	// in join order. Returns false on an empty session.
	PromoteNextHost() (domain.ConnID, bool)

	// Broadcast fans out to every member, sender included.
	Broadcast(data Frame) PublishResult
	Unicast(to domain.ConnID, data Frame) error
}

type SessionInfo struct {
	ID          domain.SessionID `json:"id"`
	MemberCount int              `json:"memberCount"`
}

// SessionManager creates sessions on first join and discards them once
// the last member leaves.
type SessionManager interface {
	GetOrCreate(id domain.SessionID) SessionService
	Get(id domain.SessionID) (SessionService, bool)
	List() []SessionInfo
	Drop(id domain.SessionID)
}
