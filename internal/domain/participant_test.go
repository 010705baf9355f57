package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNameFor(t *testing.T) {
	tests := []struct {
		name string
		id   ConnID
		want string
	}{
		{"long id truncated", "abcdef123", "User-abcd"},
		{"short id kept", "ab", "User-ab"},
		{"deterministic", "abcdef123", "User-abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayNameFor(tt.id))
		})
	}
}

func TestSetDisplayName(t *testing.T) {
	p := NewParticipant("conn1")
	assert.Equal(t, "User-conn", p.DisplayName)

	assert.ErrorIs(t, p.SetDisplayName(""), ErrDisplayNameEmpty)
	assert.ErrorIs(t, p.SetDisplayName(strings.Repeat("x", MaxDisplayNameLen+1)), ErrDisplayNameTooLong)

	assert.NoError(t, p.SetDisplayName("alice"))
	assert.Equal(t, "alice", p.DisplayName)
}
