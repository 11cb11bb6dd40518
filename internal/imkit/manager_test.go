package imkit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
	"github.com/lk2023060901/imkit-go/mocks"
	"github.com/lk2023060901/imkit-go/pkg/util/merr"
)

const waitTimeout = 3 * time.Second

type ManagerSuite struct {
	suite.Suite

	ctrl    *gomock.Controller
	tp      *mocks.MockTransport
	handler transport.EventHandler
	m       *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.tp = mocks.NewMockTransport(s.ctrl)
	s.handler = nil
	s.m = NewManager(func(transport.AppConfig) (transport.Transport, error) {
		return s.tp, nil
	}, WithStorageRoot(s.T().TempDir()), WithMetrics(false))
}

func (s *ManagerSuite) TearDownTest() {
	s.tp.EXPECT().SetEventHandler(nil).AnyTimes()
	s.tp.EXPECT().Close().Return(nil).AnyTimes()
	s.NoError(s.m.Close())
}

func (s *ManagerSuite) init() {
	s.tp.EXPECT().SetEventHandler(gomock.Any()).Do(func(h transport.EventHandler) {
		s.handler = h
	})
	s.Require().NoError(s.m.Init(100, "s"))
	s.Require().NotNil(s.handler)
}

func (s *ManagerSuite) connect(userID string) {
	s.init()
	s.tp.EXPECT().Login(gomock.Any(), transport.UserInfo{UserID: userID, UserName: userID}).Return(nil)

	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: userID, UserName: userID}, func(err error) {
		done <- err
	}))
	s.Require().NoError(s.wait(done))
	s.Require().Equal(PhaseConnected, s.m.Phase())
}

func (s *ManagerSuite) expectLogout() <-chan struct{} {
	called := make(chan struct{})
	s.tp.EXPECT().Logout(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(called)
		return nil
	})
	return called
}

func (s *ManagerSuite) wait(ch <-chan error) error {
	select {
	case err := <-ch:
		return err
	case <-time.After(waitTimeout):
		s.FailNow("callback not invoked")
		return nil
	}
}

// flush 等待此前投递到串行队列的任务全部执行完毕。
func (s *ManagerSuite) flush() {
	done := make(chan struct{})
	s.Require().True(s.m.queue.Push(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(waitTimeout):
		s.FailNow("delivery queue stuck")
	}
}

func (s *ManagerSuite) TestInit() {
	s.ErrorIs(s.m.Init(0, "s"), merr.ErrParameterInvalid)
	s.ErrorIs(s.m.Init(100, ""), merr.ErrParameterInvalid)
	s.Equal(PhaseUninitialized, s.m.Phase())

	s.init()
	s.Equal(PhaseInitialized, s.m.Phase())
	s.ErrorIs(s.m.Init(100, "s"), merr.ErrAlreadyInitialized)
}

func (s *ManagerSuite) TestInitFactoryError() {
	m := NewManager(func(transport.AppConfig) (transport.Transport, error) {
		return nil, transport.NewError(transport.CodeAuthFailed, "bad sign")
	}, WithMetrics(false))
	defer m.Close()

	err := m.Init(100, "s")
	s.ErrorIs(err, merr.ErrTransport)
	var terr *transport.Error
	s.True(errors.As(err, &terr))
	s.Equal(transport.CodeAuthFailed, terr.Code)
	s.Equal(PhaseUninitialized, m.Phase())
}

func (s *ManagerSuite) TestOperationsBeforeInit() {
	cb := func(error) { s.Fail("callback must not fire") }
	s.ErrorIs(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, cb), merr.ErrNotInitialized)
	s.ErrorIs(s.m.DisconnectUser(), merr.ErrNotInitialized)
	s.ErrorIs(s.m.JoinGroup(context.Background(), "g1", nil), merr.ErrNotInitialized)
	_, ok := s.m.CurrentUser()
	s.False(ok)
}

func (s *ManagerSuite) TestConnectSuccess() {
	s.connect("u1")

	user, ok := s.m.CurrentUser()
	s.True(ok)
	s.Equal(UserInfo{UserID: "u1", UserName: "u1"}, user)
	s.ErrorIs(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u2"}, nil), merr.ErrAlreadyConnected)
}

func (s *ManagerSuite) TestConnectInvalidUser() {
	s.init()
	s.ErrorIs(s.m.ConnectUser(context.Background(), UserInfo{}, nil), merr.ErrParameterInvalid)
	s.ErrorIs(s.m.ConnectUser(context.Background(), UserInfo{UserID: "has space"}, nil), merr.ErrParameterInvalid)
	s.Equal(PhaseInitialized, s.m.Phase())
}

func (s *ManagerSuite) TestConnectFailure() {
	s.init()
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).Return(transport.NewError(transport.CodeAuthFailed, "token"))

	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, func(err error) {
		done <- err
	}))
	err := s.wait(done)
	s.ErrorIs(err, merr.ErrTransport)
	var terr *transport.Error
	s.True(errors.As(err, &terr))
	s.Equal(transport.CodeAuthFailed, terr.Code)

	s.Equal(PhaseDisconnected, s.m.Phase())
	_, ok := s.m.CurrentUser()
	s.False(ok)
}

func (s *ManagerSuite) TestConcurrentConnect() {
	s.init()
	release := make(chan struct{})
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, transport.UserInfo) error {
		<-release
		return nil
	}).Times(1)

	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, func(err error) {
		done <- err
	}))
	s.Equal(PhaseConnecting, s.m.Phase())
	user, ok := s.m.CurrentUser()
	s.True(ok)
	s.Equal("u1", user.UserID)

	s.ErrorIs(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u2"}, func(error) {
		s.Fail("rejected connect must not call back")
	}), merr.ErrAlreadyConnecting)

	close(release)
	s.NoError(s.wait(done))
	user, _ = s.m.CurrentUser()
	s.Equal("u1", user.UserID)
	s.Equal(PhaseConnected, s.m.Phase())
}

func (s *ManagerSuite) TestDisconnectDuringConnect() {
	s.init()
	release := make(chan struct{})
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, transport.UserInfo) error {
		<-release
		return nil
	})

	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, func(err error) {
		done <- err
	}))
	s.Require().NoError(s.m.DisconnectUser())
	s.Equal(PhaseDisconnected, s.m.Phase())

	// 登录在断开后才成功，完成时由管理器自行登出。
	logout := s.expectLogout()
	close(release)
	s.ErrorIs(s.wait(done), merr.ErrConnectAborted)
	<-logout
	s.Equal(PhaseDisconnected, s.m.Phase())
	_, ok := s.m.CurrentUser()
	s.False(ok)
}

func (s *ManagerSuite) TestDisconnectDuringFailedConnect() {
	s.init()
	release := make(chan struct{})
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, transport.UserInfo) error {
		<-release
		return transport.NewError(transport.CodeAuthFailed, "token")
	})

	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, func(err error) {
		done <- err
	}))
	s.Require().NoError(s.m.DisconnectUser())
	close(release)
	// 登录失败时无需登出，Logout 未被期望。
	s.ErrorIs(s.wait(done), merr.ErrConnectAborted)
	s.Equal(PhaseDisconnected, s.m.Phase())
}

func (s *ManagerSuite) TestLoginWaitsForLogout() {
	s.connect("u1")

	logoutStarted := make(chan struct{})
	releaseLogout := make(chan struct{})
	s.tp.EXPECT().Logout(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(logoutStarted)
		<-releaseLogout
		return nil
	})
	s.Require().NoError(s.m.DisconnectUser())
	<-logoutStarted

	loginCalled := make(chan struct{})
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, transport.UserInfo) error {
		close(loginCalled)
		return nil
	})
	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u2"}, func(err error) {
		done <- err
	}))

	select {
	case <-loginCalled:
		s.FailNow("login started before the previous logout finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(releaseLogout)
	s.NoError(s.wait(done))
	s.Equal(PhaseConnected, s.m.Phase())
}

func (s *ManagerSuite) TestPushFromPreviousSessionIgnored() {
	s.connect("u1")
	l := &recordingListener{m: s.m}
	SetListener(s.m, l)

	// 断开后的 Logout 期间，传输层推送的 Disconnected 属于旧会话。
	release := make(chan struct{})
	s.tp.EXPECT().Logout(gomock.Any()).DoAndReturn(func(context.Context) error {
		<-release
		s.handler.OnConnectionStateChanged(transport.ConnectionStateDisconnected, transport.ConnectionEventSuccess)
		return nil
	})
	s.Require().NoError(s.m.DisconnectUser())

	loginRelease := make(chan struct{})
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, transport.UserInfo) error {
		<-loginRelease
		return nil
	})
	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u2"}, func(err error) {
		done <- err
	}))
	close(release)
	close(loginRelease)

	s.NoError(s.wait(done))
	s.flush()
	s.Equal(PhaseConnected, s.m.Phase())
	user, ok := s.m.CurrentUser()
	s.True(ok)
	s.Equal("u2", user.UserID)
	l.mu.Lock()
	s.Empty(l.states)
	l.mu.Unlock()
}

func (s *ManagerSuite) TestSaturatedPoolDoesNotBlock() {
	m := NewManager(func(transport.AppConfig) (transport.Transport, error) {
		return s.tp, nil
	}, WithDispatchPoolSize(1), WithMetrics(false))
	s.tp.EXPECT().SetEventHandler(gomock.Any()).AnyTimes()
	s.tp.EXPECT().Close().Return(nil)
	s.Require().NoError(m.Init(100, "s"))
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil)
	connected := make(chan error, 1)
	s.Require().NoError(m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, func(err error) {
		connected <- err
	}))
	s.Require().NoError(s.wait(connected))

	release := make(chan struct{})
	s.tp.EXPECT().CreateGroup(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string, []string) (*transport.GroupFullInfo, []transport.ErrorUserInfo, error) {
			<-release
			return &transport.GroupFullInfo{BaseInfo: &transport.GroupInfo{GroupID: "g1"}}, nil, nil
		}).Times(3)

	done := make(chan error, 3)
	returned := make(chan struct{})
	go func() {
		defer close(returned)
		for i := 0; i < 3; i++ {
			s.NoError(m.CreateGroup(context.Background(), "Team", []string{"u2"}, func(_ *GroupInfo, _ []string, err error) {
				done <- err
			}))
		}
	}()
	select {
	case <-returned:
	case <-time.After(waitTimeout):
		s.FailNow("CreateGroup blocked on a saturated dispatch pool")
	}

	close(release)
	for i := 0; i < 3; i++ {
		s.NoError(s.wait(done))
	}
	s.NoError(m.Close())
}

func (s *ManagerSuite) TestDisconnectWithoutSession() {
	s.init()
	s.NoError(s.m.DisconnectUser())
	s.Equal(PhaseDisconnected, s.m.Phase())
	s.NoError(s.m.DisconnectUser())
}

func (s *ManagerSuite) TestReconnectAfterDisconnect() {
	s.connect("u1")
	logout := make(chan struct{})
	s.tp.EXPECT().Logout(gomock.Any()).DoAndReturn(func(context.Context) error {
		close(logout)
		return transport.NewError(transport.CodeNotLoggedIn, "already gone")
	})
	s.Require().NoError(s.m.DisconnectUser())
	<-logout

	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil)
	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u2"}, func(err error) {
		done <- err
	}))
	s.NoError(s.wait(done))
	user, _ := s.m.CurrentUser()
	s.Equal("u2", user.UserID)
}

func (s *ManagerSuite) TestOperationsWhileNotConnected() {
	s.init()
	ctx := context.Background()
	s.ErrorIs(s.m.CreateGroup(ctx, "Team", []string{"u2"}, nil), merr.ErrNotConnected)
	s.ErrorIs(s.m.JoinGroup(ctx, "g1", nil), merr.ErrNotConnected)
	s.ErrorIs(s.m.UpdateUserAvatarURL(ctx, "https://a/b.png", nil), merr.ErrNotConnected)
	s.ErrorIs(s.m.QueryUsersInfo(ctx, []string{"u1"}, nil), merr.ErrNotConnected)
}

func (s *ManagerSuite) TestCreateGroupScenario() {
	s.connect("u1")
	s.tp.EXPECT().CreateGroup(gomock.Any(), "Team", []string{"u2", "u3"}).Return(
		&transport.GroupFullInfo{BaseInfo: &transport.GroupInfo{GroupID: "g1", GroupName: "Team"}},
		[]transport.ErrorUserInfo{{UserID: "u3", Reason: uint32(transport.CodeUserNotExist)}},
		nil,
	)

	type result struct {
		group  *GroupInfo
		failed []string
		err    error
	}
	done := make(chan result, 1)
	s.Require().NoError(s.m.CreateGroup(context.Background(), "Team", []string{"u1", "u2", "u3", "u2", ""},
		func(group *GroupInfo, failed []string, err error) {
			done <- result{group, failed, err}
		}))

	select {
	case r := <-done:
		s.NoError(r.err)
		s.Equal(&GroupInfo{GroupID: "g1", GroupName: "Team"}, r.group)
		s.Equal([]string{"u3"}, r.failed)
	case <-time.After(waitTimeout):
		s.FailNow("callback not invoked")
	}
}

func (s *ManagerSuite) TestCreateGroupInvalidMembers() {
	s.connect("u1")
	s.ErrorIs(s.m.CreateGroup(context.Background(), "Team", []string{"u1", ""}, nil), merr.ErrParameterInvalid)
	s.ErrorIs(s.m.CreateGroup(context.Background(), "Team", nil, nil), merr.ErrParameterInvalid)
}

func (s *ManagerSuite) TestCreateGroupWithoutInfo() {
	s.connect("u1")
	s.tp.EXPECT().CreateGroup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil, nil)

	done := make(chan error, 1)
	s.Require().NoError(s.m.CreateGroup(context.Background(), "Team", []string{"u2"},
		func(group *GroupInfo, _ []string, err error) {
			s.Nil(group)
			done <- err
		}))
	s.ErrorIs(s.wait(done), merr.ErrTransport)
}

func (s *ManagerSuite) TestJoinGroup() {
	s.connect("u1")
	s.ErrorIs(s.m.JoinGroup(context.Background(), "", nil), merr.ErrParameterInvalid)
	s.ErrorIs(s.m.JoinGroup(context.Background(), "g 1", nil), merr.ErrParameterInvalid)

	s.tp.EXPECT().JoinGroup(gomock.Any(), "g1").Return(
		&transport.GroupFullInfo{BaseInfo: &transport.GroupInfo{GroupID: "g1", GroupName: "Team"}}, nil)
	done := make(chan error, 1)
	s.Require().NoError(s.m.JoinGroup(context.Background(), "g1", func(group *GroupInfo, err error) {
		s.Equal("Team", group.GroupName)
		done <- err
	}))
	s.NoError(s.wait(done))

	s.tp.EXPECT().JoinGroup(gomock.Any(), "g404").Return(nil, transport.NewError(transport.CodeGroupNotExist, "g404"))
	s.Require().NoError(s.m.JoinGroup(context.Background(), "g404", func(group *GroupInfo, err error) {
		s.Nil(group)
		done <- err
	}))
	s.ErrorIs(s.wait(done), merr.ErrTransport)
}

func (s *ManagerSuite) TestQueryUsersDedup() {
	s.connect("u1")
	s.ErrorIs(s.m.QueryUsersInfo(context.Background(), []string{"", ""}, nil), merr.ErrParameterInvalid)

	s.tp.EXPECT().QueryUsersInfo(gomock.Any(), []string{"u1", "u2"}).Return(
		[]transport.UserFullInfo{
			{BaseInfo: &transport.UserInfo{UserID: "u1", UserName: "Alice"}, UserAvatarURL: "https://a/1.png"},
		},
		[]transport.ErrorUserInfo{{UserID: "u2"}},
		nil,
	)

	done := make(chan error, 1)
	s.Require().NoError(s.m.QueryUsersInfo(context.Background(), []string{"u1", "u1", "", "u2"},
		func(users []UserInfo, failed []string, err error) {
			s.Equal([]UserInfo{{UserID: "u1", UserName: "Alice", AvatarURL: "https://a/1.png"}}, users)
			s.Equal([]string{"u2"}, failed)
			done <- err
		}))
	s.NoError(s.wait(done))

	// 查询结果不影响本地缓存的当前用户。
	user, _ := s.m.CurrentUser()
	s.Equal(UserInfo{UserID: "u1", UserName: "u1"}, user)
}

func (s *ManagerSuite) TestUpdateAvatar() {
	s.connect("u1")
	s.ErrorIs(s.m.UpdateUserAvatarURL(context.Background(), "not a url", nil), merr.ErrParameterInvalid)

	s.tp.EXPECT().UpdateUserAvatarURL(gomock.Any(), "https://a/1.png").Return("", nil)
	done := make(chan error, 1)
	s.Require().NoError(s.m.UpdateUserAvatarURL(context.Background(), "https://a/1.png", func(url string, err error) {
		s.Equal("https://a/1.png", url)
		done <- err
	}))
	s.NoError(s.wait(done))
	user, _ := s.m.CurrentUser()
	s.Equal("https://a/1.png", user.AvatarURL)

	s.tp.EXPECT().UpdateUserAvatarURL(gomock.Any(), gomock.Any()).Return("", transport.NewError(transport.CodeTimeout, "slow"))
	s.Require().NoError(s.m.UpdateUserAvatarURL(context.Background(), "https://a/2.png", func(_ string, err error) {
		done <- err
	}))
	s.ErrorIs(s.wait(done), merr.ErrTransport)
	user, _ = s.m.CurrentUser()
	s.Equal("https://a/1.png", user.AvatarURL)
}

func (s *ManagerSuite) TestUpdateAvatarAfterDisconnect() {
	s.connect("u1")
	release := make(chan struct{})
	s.tp.EXPECT().UpdateUserAvatarURL(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) (string, error) {
		<-release
		return "https://a/1.png", nil
	})
	logout := s.expectLogout()

	done := make(chan error, 1)
	s.Require().NoError(s.m.UpdateUserAvatarURL(context.Background(), "https://a/1.png", func(_ string, err error) {
		done <- err
	}))
	s.Require().NoError(s.m.DisconnectUser())
	<-logout
	close(release)
	s.NoError(s.wait(done))

	_, ok := s.m.CurrentUser()
	s.False(ok)
	s.Equal(PhaseDisconnected, s.m.Phase())
}

func (s *ManagerSuite) TestRequestTimeout() {
	m := NewManager(func(transport.AppConfig) (transport.Transport, error) {
		return s.tp, nil
	}, WithRequestTimeout(20*time.Millisecond), WithMetrics(false))
	defer m.Close()

	s.tp.EXPECT().SetEventHandler(gomock.Any()).AnyTimes()
	s.tp.EXPECT().Close().Return(nil)
	s.Require().NoError(m.Init(100, "s"))
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ transport.UserInfo) error {
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan error, 1)
	s.Require().NoError(m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, func(err error) {
		done <- err
	}))
	err := s.wait(done)
	s.ErrorIs(err, merr.ErrTransport)
	s.True(merr.IsCanceledOrTimeout(err))
	s.Equal(PhaseDisconnected, m.Phase())
}

func (s *ManagerSuite) TestCallerCancelIgnored() {
	s.init()
	ctx, cancel := context.WithCancel(context.Background())
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ transport.UserInfo) error {
		return ctx.Err()
	})
	cancel()

	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(ctx, UserInfo{UserID: "u1"}, func(err error) {
		done <- err
	}))
	s.NoError(s.wait(done))
}

func (s *ManagerSuite) TestTransportPanic() {
	s.connect("u1")
	s.tp.EXPECT().JoinGroup(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) (*transport.GroupFullInfo, error) {
		panic("boom")
	})

	done := make(chan error, 1)
	s.Require().NoError(s.m.JoinGroup(context.Background(), "g1", func(_ *GroupInfo, err error) {
		done <- err
	}))
	s.ErrorIs(s.wait(done), merr.ErrTransport)
	s.Equal(PhaseConnected, s.m.Phase())
}

type recordingListener struct {
	mu      sync.Mutex
	m       *Manager
	states  []ConnectionState
	events  []ConnectionEvent
	phases  []Phase
	unreads []uint32
}

func (l *recordingListener) OnConnectionStateChange(state ConnectionState, event ConnectionEvent) {
	phase := l.m.Phase()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, state)
	l.events = append(l.events, event)
	l.phases = append(l.phases, phase)
}

func (l *recordingListener) OnTotalUnreadMessageCountChange(total uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unreads = append(l.unreads, total)
}

func (s *ManagerSuite) TestPushedDisconnect() {
	s.connect("u1")
	l := &recordingListener{m: s.m}
	SetListener(s.m, l)

	s.handler.OnConnectionStateChanged(transport.ConnectionStateDisconnected, transport.ConnectionEventKickedOut)
	s.handler.OnConversationTotalUnreadMessageCountUpdated(7)
	s.flush()

	s.Equal([]ConnectionState{transport.ConnectionStateDisconnected}, l.states)
	s.Equal([]ConnectionEvent{transport.ConnectionEventKickedOut}, l.events)
	s.Equal([]Phase{PhaseDisconnected}, l.phases)
	s.Equal([]uint32{7}, l.unreads)
	_, ok := s.m.CurrentUser()
	s.False(ok)

	s.ErrorIs(s.m.JoinGroup(context.Background(), "g1", nil), merr.ErrNotConnected)
}

func (s *ManagerSuite) TestPushedConnectedWhileConnecting() {
	s.init()
	release := make(chan struct{})
	s.tp.EXPECT().Login(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, transport.UserInfo) error {
		<-release
		return nil
	})

	done := make(chan error, 1)
	s.Require().NoError(s.m.ConnectUser(context.Background(), UserInfo{UserID: "u1"}, func(err error) {
		done <- err
	}))
	s.handler.OnConnectionStateChanged(transport.ConnectionStateReconnecting, transport.ConnectionEventSuccess)
	s.flush()
	s.Equal(PhaseConnecting, s.m.Phase())

	s.handler.OnConnectionStateChanged(transport.ConnectionStateConnected, transport.ConnectionEventSuccess)
	s.flush()
	s.Equal(PhaseConnected, s.m.Phase())

	close(release)
	s.NoError(s.wait(done))
	s.Equal(PhaseConnected, s.m.Phase())
}

func (s *ManagerSuite) TestListenerReplaceAndClear() {
	s.init()
	first := &recordingListener{m: s.m}
	second := &recordingListener{m: s.m}

	SetListener(s.m, first)
	SetListener(s.m, second)
	s.handler.OnConversationTotalUnreadMessageCountUpdated(1)
	s.flush()
	s.Empty(first.unreads)
	s.Equal([]uint32{1}, second.unreads)

	s.m.ClearListener()
	s.handler.OnConversationTotalUnreadMessageCountUpdated(2)
	s.flush()
	s.Equal([]uint32{1}, second.unreads)

	SetListener[recordingListener](s.m, nil)
	s.Nil(s.m.relay.listener())
}

func (s *ManagerSuite) TestCloseRejectsOperations() {
	s.connect("u1")
	s.tp.EXPECT().SetEventHandler(nil)
	s.tp.EXPECT().Close().Return(nil)
	s.NoError(s.m.Close())

	s.ErrorIs(s.m.DisconnectUser(), merr.ErrNotInitialized)
	s.ErrorIs(s.m.JoinGroup(context.Background(), "g1", nil), merr.ErrNotInitialized)
	s.ErrorIs(s.m.Init(100, "s"), merr.ErrNotInitialized)
	s.NoError(s.m.Close())
}

func (s *ManagerSuite) TestMediaPaths() {
	root := s.m.MediaPaths().Root()
	s.NotEmpty(root)
	s.Equal(NewMediaPaths(root).ImagePath(), s.m.MediaPaths().ImagePath())
}

func TestManager(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}
