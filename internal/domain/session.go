package domain

// SessionID names one collaborative workspace. Opaque, chosen by clients.
type SessionID string

type Session struct {
	ID SessionID
}
