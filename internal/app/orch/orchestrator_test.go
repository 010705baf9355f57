package orch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coderush/relay/internal/app"
	"github.com/coderush/relay/internal/core"
	"github.com/coderush/relay/internal/domain"
)

type memStore struct {
	mu    sync.Mutex
	trees map[domain.SessionID][]domain.TreeNode
	files map[string]domain.OpenFile
	err   error
}

func newMemStore() *memStore {
	return &memStore{
		trees: make(map[domain.SessionID][]domain.TreeNode),
		files: make(map[string]domain.OpenFile),
	}
}

func (s *memStore) PutTree(_ context.Context, sid domain.SessionID, nodes []domain.TreeNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.trees[sid] = nodes
	return nil
}

func (s *memStore) GetTree(_ context.Context, sid domain.SessionID) ([]domain.TreeNode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	nodes, ok := s.trees[sid]
	return nodes, ok, nil
}

func (s *memStore) PutOpenFile(_ context.Context, sid domain.SessionID, file domain.OpenFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.files[fmt.Sprintf("%s:activeFile:%s", sid, file.Path)] = file
	return nil
}

func (s *memStore) GetOpenFile(_ context.Context, sid domain.SessionID, path string) (domain.OpenFile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.OpenFile{}, false, s.err
	}
	f, ok := s.files[fmt.Sprintf("%s:activeFile:%s", sid, path)]
	return f, ok, nil
}

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backpressure")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newOrch() (*Orchestrator, *memStore) {
	store := newMemStore()
	return &Orchestrator{
		Registry: app.NewRegistry(),
		Sessions: app.NewSessionManager(),
		Policy:   app.SimplePolicy{},
		Store:    store,
	}, store
}

func connect(o *Orchestrator, id domain.ConnID) *fakeConn {
	fc := &fakeConn{}
	p, _ := o.Registry.GetOrCreateParticipant(id)
	o.Registry.BindSignal(id, core.NewMemberSession(p).UpdateSignal(fc), nil)
	return fc
}

func TestJoinAssignsRoles(t *testing.T) {
	o, _ := newOrch()
	connect(o, "conn1")
	connect(o, "conn2")

	res1, err := o.Join(context.Background(), "conn1", "abc123")
	require.NoError(t, err)
	assert.True(t, res1.IsHost)
	assert.Equal(t, "User-conn", res1.NewName)
	assert.Equal(t, []domain.ConnID{"conn1"}, res1.Members)

	res2, err := o.Join(context.Background(), "conn2", "abc123")
	require.NoError(t, err)
	assert.False(t, res2.IsHost)
	assert.Equal(t, []domain.ConnID{"conn1", "conn2"}, res2.Members)

	hostID, ok := o.HostOf("abc123")
	require.True(t, ok)
	assert.Equal(t, domain.ConnID("conn1"), hostID)
}

func TestJoinWithoutConnection(t *testing.T) {
	o, _ := newOrch()
	_, err := o.Join(context.Background(), "ghost", "abc123")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestJoinReplaysLatestTree(t *testing.T) {
	o, _ := newOrch()
	connect(o, "host")
	connect(o, "late")

	_, err := o.Join(context.Background(), "host", "abc123")
	require.NoError(t, err)

	tree := []domain.TreeNode{{
		Name: "proj", Path: "proj", Type: domain.NodeFolder,
		Children: []domain.TreeNode{{Name: "a.js", Path: "proj/a.js", Type: domain.NodeFile}},
	}}
	require.NoError(t, o.PersistTree(context.Background(), "abc123", tree))

	res, err := o.Join(context.Background(), "late", "abc123")
	require.NoError(t, err)
	require.True(t, res.HasTree)
	assert.Equal(t, tree, res.Tree)
}

func TestJoinSurvivesCacheOutage(t *testing.T) {
	o, store := newOrch()
	connect(o, "conn1")
	store.err = errors.New("cache down")

	res, err := o.Join(context.Background(), "conn1", "abc123")
	require.NoError(t, err, "join must not fail on a cache error")
	assert.False(t, res.HasTree)
	assert.True(t, res.IsHost)
}

func TestJoinMovesOutOfPreviousSession(t *testing.T) {
	o, _ := newOrch()
	connect(o, "a")
	connect(o, "b")

	_, err := o.Join(context.Background(), "a", "s1")
	require.NoError(t, err)
	_, err = o.Join(context.Background(), "b", "s1")
	require.NoError(t, err)

	res, err := o.Join(context.Background(), "b", "s2")
	require.NoError(t, err)
	require.NotNil(t, res.Left)
	assert.Equal(t, domain.SessionID("s1"), res.Left.SessionID)
	assert.Equal(t, []domain.ConnID{"a"}, res.Left.Members)
	assert.False(t, res.Left.Promoted, "a guest leaving does not move the host role")
	assert.True(t, res.IsHost, "first joiner of the new session becomes its host")
}

func TestDisconnectFailsOverHost(t *testing.T) {
	o, _ := newOrch()
	connect(o, "host")
	connect(o, "g1")
	connect(o, "g2")
	for _, id := range []domain.ConnID{"host", "g1", "g2"} {
		_, err := o.Join(context.Background(), id, "abc123")
		require.NoError(t, err)
	}

	dep := o.OnDisconnect("host")
	require.NotNil(t, dep)
	assert.Equal(t, domain.SessionID("abc123"), dep.SessionID)
	assert.True(t, dep.Promoted)
	assert.Equal(t, domain.ConnID("g1"), dep.NewHost, "first remaining member in join order")
	assert.Equal(t, []domain.ConnID{"g1", "g2"}, dep.Members)

	hostID, ok := o.HostOf("abc123")
	require.True(t, ok)
	assert.Equal(t, domain.ConnID("g1"), hostID)

	_, ok = o.Registry.GetSession("host")
	assert.False(t, ok, "dead connection must be unbound")
}

func TestGuestDisconnectKeepsHost(t *testing.T) {
	o, _ := newOrch()
	connect(o, "host")
	connect(o, "g1")
	_, _ = o.Join(context.Background(), "host", "s")
	_, _ = o.Join(context.Background(), "g1", "s")

	dep := o.OnDisconnect("g1")
	require.NotNil(t, dep)
	assert.False(t, dep.Promoted)
	assert.Equal(t, []domain.ConnID{"host"}, dep.Members)
}

func TestLastLeaveDropsSession(t *testing.T) {
	o, _ := newOrch()
	connect(o, "only")
	_, err := o.Join(context.Background(), "only", "abc123")
	require.NoError(t, err)

	dep := o.OnDisconnect("only")
	assert.Nil(t, dep, "nobody left to notify")
	_, ok := o.Sessions.Get("abc123")
	assert.False(t, ok, "empty session must be reclaimed")
}

func TestBroadcastKicksSlowMember(t *testing.T) {
	o, _ := newOrch()
	connect(o, "a")
	slow := connect(o, "b")
	slow.fail = true
	_, _ = o.Join(context.Background(), "a", "s")
	_, _ = o.Join(context.Background(), "b", "s")

	o.BroadcastToSession("s", core.Frame(`{}`))

	sess, ok := o.Sessions.Get("s")
	require.True(t, ok)
	assert.Equal(t, []domain.ConnID{"a"}, sess.Members())
	assert.True(t, slow.wasClosed(), "kicked member's transport must be torn down")
}

func TestKickedHostDepartureSurfaced(t *testing.T) {
	o, _ := newOrch()
	slow := connect(o, "host")
	connect(o, "g1")
	_, _ = o.Join(context.Background(), "host", "s")
	_, _ = o.Join(context.Background(), "g1", "s")

	var got *Departure
	o.OnDeparture = func(dep *Departure) { got = dep }
	slow.fail = true

	o.BroadcastToSession("s", core.Frame(`{}`))

	require.NotNil(t, got, "a kicked host must produce a departure for the adapter")
	assert.Equal(t, domain.SessionID("s"), got.SessionID)
	assert.True(t, got.Promoted)
	assert.Equal(t, domain.ConnID("g1"), got.NewHost)
	assert.Equal(t, []domain.ConnID{"g1"}, got.Members)

	hostID, ok := o.HostOf("s")
	require.True(t, ok)
	assert.Equal(t, domain.ConnID("g1"), hostID)
}

func TestSendToStaleTarget(t *testing.T) {
	o, _ := newOrch()
	assert.ErrorIs(t, o.SendTo("ghost", core.Frame(`{}`)), ErrNotConnected)
}

func TestPersistOpenFileLastWriteWins(t *testing.T) {
	o, store := newOrch()
	ctx := context.Background()

	f1 := domain.OpenFile{Name: "a.js", Path: "proj/a.js", Content: "console.log(1)"}
	f2 := domain.OpenFile{Name: "a.js", Path: "proj/a.js", Content: "console.log(2)"}
	require.NoError(t, o.PersistOpenFile(ctx, "s", f1))
	require.NoError(t, o.PersistOpenFile(ctx, "s", f2))

	got, ok, err := store.GetOpenFile(ctx, "s", "proj/a.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f2, got)
}
