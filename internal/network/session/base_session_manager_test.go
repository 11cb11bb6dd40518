package session

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/imkit-go/internal/network/codec"
)

type stubSession struct {
	id uint64
}

func (s *stubSession) ID() uint64                 { return s.id }
func (s *stubSession) Context() context.Context   { return context.Background() }
func (s *stubSession) RemoteAddr() net.Addr       { return nil }
func (s *stubSession) LocalAddr() net.Addr        { return nil }
func (s *stubSession) Send(*codec.Envelope) error { return nil }
func (s *stubSession) Store(any, any)             {}
func (s *stubSession) Load(any) (any, bool)       { return nil, false }
func (s *stubSession) Close() error               { return nil }
func (s *stubSession) OnConnected()               {}
func (s *stubSession) OnDisconnected(error)       {}

func TestBaseSessionManager(t *testing.T) {
	m := NewBaseSessionManager()

	require.Error(t, m.Register(nil))
	require.NoError(t, m.Register(&stubSession{id: 1}))
	require.NoError(t, m.Register(&stubSession{id: 2}))
	assert.Error(t, m.Register(&stubSession{id: 1}))
	assert.Equal(t, 2, m.Count())

	sess, ok := m.Get(2)
	require.True(t, ok)
	assert.Equal(t, uint64(2), sess.ID())

	visited := 0
	m.Range(func(Session) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)

	require.NoError(t, m.Unregister(1))
	assert.Error(t, m.Unregister(1))
	_, ok = m.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Count())
}
