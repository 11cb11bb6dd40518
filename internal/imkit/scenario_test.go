package imkit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/imkit-go/internal/imbackend"
	"github.com/lk2023060901/imkit-go/internal/imkit"
	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
	"github.com/lk2023060901/imkit-go/internal/imkit/transport/memory"
	"github.com/lk2023060901/imkit-go/pkg/util/merr"
)

const scenarioTimeout = 3 * time.Second

func newMemoryManager(t *testing.T, opts ...memory.Option) (*imkit.Manager, *imbackend.Directory) {
	t.Helper()
	dir := imbackend.NewDirectory(imbackend.WithApp(100, "s"))
	m := imkit.NewManager(memory.NewFactory(dir, memory.NewHub(), opts...),
		imkit.WithStorageRoot(t.TempDir()), imkit.WithMetrics(false))
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Init(100, "s"))
	return m, dir
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(scenarioTimeout):
		t.Fatal("callback not invoked")
		return nil
	}
}

func TestMemoryBackendScenario(t *testing.T) {
	dir := imbackend.NewDirectory(
		imbackend.WithApp(100, "s"),
		imbackend.WithGroupIDGenerator(imbackend.SequentialGroupIDs()),
		imbackend.WithUsers(transport.UserInfo{UserID: "u2", UserName: "Bob"}),
	)
	m := imkit.NewManager(memory.NewFactory(dir, memory.NewHub()),
		imkit.WithStorageRoot(t.TempDir()), imkit.WithMetrics(false))
	defer m.Close()

	require.NoError(t, m.Init(100, "s"))

	connected := make(chan error, 1)
	require.NoError(t, m.ConnectUser(context.Background(), imkit.UserInfo{UserID: "u1", UserName: "Alice"}, func(err error) {
		connected <- err
	}))
	require.NoError(t, <-connected)

	type created struct {
		group  *imkit.GroupInfo
		failed []string
		err    error
	}
	groups := make(chan created, 1)
	require.NoError(t, m.CreateGroup(context.Background(), "Team", []string{"u1", "u2", "u3"},
		func(group *imkit.GroupInfo, failed []string, err error) {
			groups <- created{group, failed, err}
		}))
	res := <-groups
	require.NoError(t, res.err)
	assert.Equal(t, &imkit.GroupInfo{GroupID: "g1", GroupName: "Team"}, res.group)
	assert.Equal(t, []string{"u3"}, res.failed)

	queried := make(chan []imkit.UserInfo, 1)
	require.NoError(t, m.QueryUsersInfo(context.Background(), []string{"u1", "u1", "u2"},
		func(users []imkit.UserInfo, failed []string, err error) {
			assert.NoError(t, err)
			assert.Empty(t, failed)
			queried <- users
		}))
	users := <-queried
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].UserName)
	assert.Equal(t, "Bob", users[1].UserName)

	require.NoError(t, m.DisconnectUser())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
}

func TestReconnectAfterAbortedConnect(t *testing.T) {
	m, dir := newMemoryManager(t, memory.WithLatency(20*time.Millisecond))

	for i := 0; i < 5; i++ {
		first := make(chan error, 1)
		require.NoError(t, m.ConnectUser(context.Background(), imkit.UserInfo{UserID: "u1"}, func(err error) {
			first <- err
		}))
		require.NoError(t, m.DisconnectUser())
		// 登录带有延迟，断开几乎总是先到达。
		if err := waitErr(t, first); err != nil {
			require.ErrorIs(t, err, merr.ErrConnectAborted)
		}

		second := make(chan error, 1)
		require.NoError(t, m.ConnectUser(context.Background(), imkit.UserInfo{UserID: "u1"}, func(err error) {
			second <- err
		}))
		require.NoError(t, waitErr(t, second))
		require.Equal(t, imkit.PhaseConnected, m.Phase())
		require.True(t, dir.IsOnline("u1"))

		require.NoError(t, m.DisconnectUser())
	}
}

func TestConnectRacingDisconnect(t *testing.T) {
	m, _ := newMemoryManager(t)

	for i := 0; i < 200; i++ {
		connected := make(chan error, 1)
		require.NoError(t, m.ConnectUser(context.Background(), imkit.UserInfo{UserID: "u1"}, func(err error) {
			connected <- err
		}))
		disconnected := make(chan error, 1)
		go func() {
			disconnected <- m.DisconnectUser()
		}()
		require.NoError(t, waitErr(t, disconnected))

		err := waitErr(t, connected)
		if err != nil {
			require.ErrorIs(t, err, merr.ErrConnectAborted)
		}
		// 断开总在连接发起之后，完成回调不得把会话改回 connected。
		require.Equal(t, imkit.PhaseDisconnected, m.Phase(), "iteration %d", i)
		_, ok := m.CurrentUser()
		require.False(t, ok, "iteration %d", i)
	}
}
