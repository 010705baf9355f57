// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxDisplayNameLen = 36
	namePrefixLen     = 4
)

var (
	ErrDisplayNameTooLong = errors.New("display name too long")
	ErrDisplayNameEmpty   = errors.New("display name empty")
)

// ConnID is the transport-assigned connection identifier.
// It lives only for the lifetime of one connection.
type ConnID string

type Participant struct {
	ID          ConnID `json:"id"`
	DisplayName string `json:"displayName"`
}

// NewParticipant derives the display name from the connection id so that
// reconnects with the same token keep the same name.
func NewParticipant(id ConnID) *Participant {
	return &Participant{ID: id, DisplayName: DisplayNameFor(id)}
}

// DisplayNameFor is deterministic and collision-tolerant, not unique.
func DisplayNameFor(id ConnID) string {
	s := string(id)
	if len(s) > namePrefixLen {
		s = s[:namePrefixLen]
	}
	return "User-" + s
}

func (p *Participant) SetDisplayName(name string) error {
	if len(name) == 0 {
		return ErrDisplayNameEmpty
	}
	if len(name) > MaxDisplayNameLen {
		return ErrDisplayNameTooLong
	}
	p.DisplayName = name
	return nil
}
