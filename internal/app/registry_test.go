package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func bind(r *Registry, id domain.ConnID) core.MemberSession {
	p, _ := r.GetOrCreateParticipant(id)
	ms := core.NewMemberSession(p).UpdateSignal(nopConn{})
	r.BindSignal(id, ms, nil)
	return ms
}

func TestClaimNameDeliveredOnce(t *testing.T) {
	r := NewRegistry()
	bind(r, "conn1")

	name, first := r.ClaimName("conn1")
	assert.True(t, first)
	assert.Equal(t, "User-conn", name)

	name, first = r.ClaimName("conn1")
	assert.False(t, first)
	assert.Equal(t, "User-conn", name)

	_, first = r.ClaimName("stranger")
	assert.False(t, first)
}

func TestDisplayNameOfFallsBack(t *testing.T) {
	r := NewRegistry()
	bind(r, "conn1")

	assert.Equal(t, "User-conn", r.DisplayNameOf("conn1"))
	assert.Equal(t, "Anonymous", r.DisplayNameOf("ghost"))
}

func TestSessionAssociation(t *testing.T) {
	r := NewRegistry()
	ms := bind(r, "conn1")

	_, _, ok := r.SessionOf("conn1")
	assert.False(t, ok, "no session until joined")

	require.True(t, r.UpdateSession("conn1", "abc123"))
	sid, got, ok := r.SessionOf("conn1")
	require.True(t, ok)
	assert.Equal(t, domain.SessionID("abc123"), sid)
	assert.Same(t, ms, got)

	r.ClearSession("conn1")
	_, _, ok = r.SessionOf("conn1")
	assert.False(t, ok)

	assert.False(t, r.UpdateSession("ghost", "abc123"))
}

func TestUpdateDisplayName(t *testing.T) {
	r := NewRegistry()
	bind(r, "conn1")

	require.NoError(t, r.UpdateDisplayName("conn1", "alice"))
	assert.Equal(t, "alice", r.DisplayNameOf("conn1"))

	assert.ErrorIs(t, r.UpdateDisplayName("conn1", ""), domain.ErrDisplayNameEmpty)
	assert.ErrorIs(t, r.UpdateDisplayName("ghost", "alice"), ErrUnknownConn)
}

func TestAllExcept(t *testing.T) {
	r := NewRegistry()
	bind(r, "a")
	bind(r, "b")
	bind(r, "c")

	snaps := r.AllExcept("b")
	ids := make([]domain.ConnID, 0, len(snaps))
	for _, s := range snaps {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []domain.ConnID{"a", "c"}, ids)
}

func TestUnbindDropsParticipant(t *testing.T) {
	r := NewRegistry()
	bind(r, "conn1")
	r.ClaimName("conn1")

	r.Unbind("conn1")
	_, ok := r.GetSession("conn1")
	assert.False(t, ok)
	assert.Equal(t, "Anonymous", r.DisplayNameOf("conn1"))

	// A reconnect with the same token starts with a fresh name claim.
	bind(r, "conn1")
	_, first := r.ClaimName("conn1")
	assert.True(t, first)
}
