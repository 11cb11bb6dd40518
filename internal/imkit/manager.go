// Package imkit 实现即时通讯 SDK 的客户端会话管理器。
//
// Manager 持有唯一的传输层句柄、当前登录用户与连接状态机，所有异步操作的完成回调
// 以及传输层推送的事件都经过同一个串行队列投递，保证回调观察到一致的会话状态。
package imkit

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
	zlog "github.com/lk2023060901/imkit-go/pkg/log"
	"github.com/lk2023060901/imkit-go/pkg/metrics"
	"github.com/lk2023060901/imkit-go/pkg/util/conc"
	"github.com/lk2023060901/imkit-go/pkg/util/merr"
)

const (
	opInit                = "Init"
	opConnectUser         = "ConnectUser"
	opDisconnectUser      = "DisconnectUser"
	opCreateGroup         = "CreateGroup"
	opJoinGroup           = "JoinGroup"
	opUpdateUserAvatarURL = "UpdateUserAvatarURL"
	opQueryUsersInfo      = "QueryUsersInfo"

	eventKindConnectionState = "connection_state"
	eventKindUnreadTotal     = "unread_total"

	tracerName = "imkit"
)

type (
	// ConnectUserCallback 在 ConnectUser 完成时被调用一次，err 为 nil 表示已连接。
	ConnectUserCallback func(err error)
	// CreateGroupCallback 在 CreateGroup 完成时被调用一次。
	// failedMemberIDs 为未能加入群组的成员，部分成员失败不视为错误。
	CreateGroupCallback func(group *GroupInfo, failedMemberIDs []string, err error)
	// JoinGroupCallback 在 JoinGroup 完成时被调用一次。
	JoinGroupCallback func(group *GroupInfo, err error)
	// UpdateAvatarCallback 在 UpdateUserAvatarURL 完成时被调用一次，avatarURL 为后端确认的地址。
	UpdateAvatarCallback func(avatarURL string, err error)
	// QueryUsersCallback 在 QueryUsersInfo 完成时被调用一次。
	QueryUsersCallback func(users []UserInfo, failedUserIDs []string, err error)
)

// Manager 为客户端会话管理器。
//
// 同步返回的错误表示前置条件不满足，此时回调不会被调用；返回 nil 时回调恰好被调用一次，
// 且总在管理器的串行投递协程上执行。
type Manager struct {
	zlog.Binder

	cfg     Config
	factory transport.Factory
	paths   MediaPaths

	mu        sync.Mutex
	phase     Phase
	user      *UserInfo
	epoch     uint64
	transport transport.Transport
	closed    bool

	// bound 表示当前纪元的 Login 已在传输层生效。
	bound bool
	// Login/Logout 按发起顺序依次执行，sessionTail 在最近一次调用结束时关闭。
	sessionTail <-chan struct{}
	turnActive  bool
	turnEpoch   uint64

	pool  *conc.Pool[struct{}]
	queue *conc.SerialQueue
	relay eventRelay

	reqID atomic.Uint64
}

// NewManager 创建一个处于 uninitialized 阶段的管理器，传输层在 Init 时通过 factory 创建。
func NewManager(factory transport.Factory, opts ...Option) *Manager {
	var cfg Config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.fillDefaults()

	idle := make(chan struct{})
	close(idle)

	m := &Manager{
		cfg:     cfg,
		factory: factory,
		paths:   NewMediaPaths(cfg.StorageRoot),
		phase:   PhaseUninitialized,
		pool: conc.NewPool[struct{}](cfg.DispatchPoolSize,
			conc.WithName("imkit-dispatch"),
			conc.WithNonBlocking(true),
			conc.WithConcealPanic(true),
		),
		sessionTail: idle,
		queue:       conc.NewSerialQueue("imkit-delivery"),
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zlog.With(zlog.FieldModule("imkit"))
	}
	m.SetLogger(logger)
	m.reportPhase(PhaseUninitialized)
	return m
}

// Init 校验应用凭证并创建传输层，只能在 uninitialized 阶段调用一次。
func (m *Manager) Init(appID uint32, appSign string) error {
	if err := validateStruct("credentials", credentials{AppID: appID, AppSign: appSign}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return merr.WrapErrNotInitialized(opInit, "manager closed")
	}
	if m.phase != PhaseUninitialized {
		return merr.WrapErrAlreadyInitialized(appID)
	}
	if m.factory == nil {
		return merr.WrapErrParameterInvalidMsg("transport factory is nil")
	}

	tp, err := m.factory(transport.AppConfig{AppID: appID, AppSign: appSign})
	if err != nil {
		return merr.WrapErrTransport(opInit, err)
	}
	if tp == nil {
		return merr.WrapErrTransport(opInit, transport.NewError(transport.CodeUnknown, "factory returned nil transport"))
	}
	tp.SetEventHandler(&eventSink{m: m})

	m.transport = tp
	m.setPhaseLocked(PhaseInitialized)
	m.Logger().Info("imkit initialized", zap.Uint32("appID", appID), zap.String("storageRoot", m.paths.Root()))
	return nil
}

// ConnectUser 以 user 身份登录，只能在 initialized 或 disconnected 阶段调用。
//
// 发起后立即进入 connecting 阶段并持有 user 作为乐观身份。登录成功进入 connected；
// 失败回到 disconnected 并清除身份。若登录完成前会话已被断开，回调收到 ErrConnectAborted，
// 且不修改会话状态；此时已在传输层生效的登录会被立即登出。
func (m *Manager) ConnectUser(ctx context.Context, user UserInfo, cb ConnectUserCallback) error {
	if cb == nil {
		cb = func(error) {}
	}

	m.mu.Lock()
	if err := m.checkLifecycleLocked(opConnectUser); err != nil {
		m.mu.Unlock()
		return err
	}
	switch m.phase {
	case PhaseConnecting:
		current := m.user.UserID
		m.mu.Unlock()
		return merr.WrapErrAlreadyConnecting(current)
	case PhaseConnected:
		current := m.user.UserID
		m.mu.Unlock()
		return merr.WrapErrAlreadyConnected(current)
	}
	if err := validateStruct("user", user); err != nil {
		m.mu.Unlock()
		return err
	}

	identity := user
	m.user = &identity
	m.epoch++
	m.setPhaseLocked(PhaseConnecting)
	epoch, tp := m.epoch, m.transport
	turn := m.nextTurnLocked()
	m.mu.Unlock()

	req := m.newRequest(ctx, opConnectUser, epoch, zlog.FieldUserID(user.UserID))
	complete := func(err error) {
		m.mu.Lock()
		stale := m.epoch != epoch
		if !stale {
			if err != nil {
				m.detachLocked()
			} else {
				m.setPhaseLocked(PhaseConnected)
			}
		}
		m.mu.Unlock()

		if stale {
			req.finish(m, nil, true)
			cb(merr.WrapErrConnectAborted(user.UserID))
			return
		}
		err = merr.WrapErrTransport(opConnectUser, err)
		req.finish(m, err, false)
		cb(err)
	}
	m.submit(req, func(ctx context.Context) func() {
		err := m.runTurn(ctx, turn, func() error {
			if err := tp.Login(ctx, user.toWire()); err != nil {
				return err
			}
			m.mu.Lock()
			current := m.epoch == epoch
			if current {
				m.bound = true
			}
			m.mu.Unlock()
			if !current {
				m.rollbackLogin(ctx, tp)
			}
			return nil
		})
		return func() { complete(err) }
	}, complete)
	return nil
}

// rollbackLogin 登出一次完成时会话已被断开的登录，保证下一次 Login 不会与之冲突。
func (m *Manager) rollbackLogin(ctx context.Context, tp transport.Transport) {
	if err := tp.Logout(ctx); err != nil {
		zlog.Ctx(ctx).RatedWarn(1, "rollback of aborted login failed", zap.Error(err))
		return
	}
	zlog.Ctx(ctx).Debug("aborted login rolled back")
}

// DisconnectUser 同步清除当前身份并进入 disconnected 阶段。
//
// 若传输层登录已生效，会在后台尽力调用 Logout，其错误只记录日志；登录尚未完成时，
// 由该次登录在完成后自行登出。已发出请求的完成回调仍会被调用，但不再修改会话状态。
func (m *Manager) DisconnectUser() error {
	m.mu.Lock()
	if err := m.checkLifecycleLocked(opDisconnectUser); err != nil {
		m.mu.Unlock()
		return err
	}
	bound := m.bound
	var userID string
	if m.user != nil {
		userID = m.user.UserID
	}
	m.detachLocked()
	if !bound {
		m.mu.Unlock()
		return nil
	}
	epoch, tp := m.epoch, m.transport
	turn := m.nextTurnLocked()
	m.mu.Unlock()

	req := m.newRequest(context.Background(), opDisconnectUser, epoch, zlog.FieldUserID(userID))
	complete := func(err error) {
		err = merr.WrapErrTransport(opDisconnectUser, err)
		if err != nil {
			zlog.Ctx(req.ctx).RatedWarn(1, "logout failed", zap.Error(err))
		}
		req.finish(m, err, false)
	}
	m.submit(req, func(ctx context.Context) func() {
		err := m.runTurn(ctx, turn, func() error {
			return tp.Logout(ctx)
		})
		return func() { complete(err) }
	}, complete)
	return nil
}

// CreateGroup 创建群组，只能在 connected 阶段调用。
//
// memberIDs 会被去重，空 ID 与当前用户自身的 ID 会被移除，结果为空时返回 ErrParameterInvalid。
// 部分成员加入失败不视为错误，失败成员通过 failedMemberIDs 返回；全部成员失败时群组依然返回。
func (m *Manager) CreateGroup(ctx context.Context, name string, memberIDs []string, cb CreateGroupCallback) error {
	if cb == nil {
		cb = func(*GroupInfo, []string, error) {}
	}

	epoch, tp, self, err := m.requireConnected(opCreateGroup)
	if err != nil {
		return err
	}
	if err := validateVar("groupName", name, groupNameRule); err != nil {
		return err
	}
	members := normalizeIDs(memberIDs, self.UserID)
	if len(members) == 0 {
		return merr.WrapErrParameterInvalidMsg("member list %v has no member other than self", memberIDs)
	}

	req := m.newRequest(ctx, opCreateGroup, epoch, zap.String("groupName", name), zap.Int("members", len(members)))
	complete := func(info *transport.GroupFullInfo, errUsers []transport.ErrorUserInfo, err error) {
		if err == nil && (info == nil || info.BaseInfo == nil) {
			err = transport.NewError(transport.CodeUnknown, "group created without group info")
		}
		err = merr.WrapErrTransport(opCreateGroup, err)
		req.finish(m, err, m.isStale(epoch))
		if err != nil {
			cb(nil, nil, err)
			return
		}

		group := GroupInfoFromFullInfo(info)
		failed := failedUserIDs(errUsers)
		if len(failed) > 0 {
			zlog.Ctx(req.ctx).Info("some members failed to join group",
				zap.String("groupID", group.GroupID),
				zap.Any("errorUsers", errUsers))
		}
		cb(&group, failed, nil)
	}
	m.submit(req, func(ctx context.Context) func() {
		info, errUsers, err := tp.CreateGroup(ctx, name, members)
		return func() { complete(info, errUsers, err) }
	}, func(err error) { complete(nil, nil, err) })
	return nil
}

// JoinGroup 加入群组，只能在 connected 阶段调用。
func (m *Manager) JoinGroup(ctx context.Context, groupID string, cb JoinGroupCallback) error {
	if cb == nil {
		cb = func(*GroupInfo, error) {}
	}

	epoch, tp, _, err := m.requireConnected(opJoinGroup)
	if err != nil {
		return err
	}
	if err := validateVar("groupID", groupID, groupIDRule); err != nil {
		return err
	}

	req := m.newRequest(ctx, opJoinGroup, epoch, zap.String("groupID", groupID))
	complete := func(info *transport.GroupFullInfo, err error) {
		if err == nil && (info == nil || info.BaseInfo == nil) {
			err = transport.NewError(transport.CodeUnknown, "joined group without group info")
		}
		err = merr.WrapErrTransport(opJoinGroup, err)
		req.finish(m, err, m.isStale(epoch))
		if err != nil {
			cb(nil, err)
			return
		}
		group := GroupInfoFromFullInfo(info)
		cb(&group, nil)
	}
	m.submit(req, func(ctx context.Context) func() {
		info, err := tp.JoinGroup(ctx, groupID)
		return func() { complete(info, err) }
	}, func(err error) { complete(nil, err) })
	return nil
}

// UpdateUserAvatarURL 更新当前用户头像，只能在 connected 阶段调用。
//
// 成功时仅当会话纪元未变化才会修改本地缓存的头像；完成前发生的断开会使本次更新被丢弃。
func (m *Manager) UpdateUserAvatarURL(ctx context.Context, avatarURL string, cb UpdateAvatarCallback) error {
	if cb == nil {
		cb = func(string, error) {}
	}

	epoch, tp, _, err := m.requireConnected(opUpdateUserAvatarURL)
	if err != nil {
		return err
	}
	if err := validateVar("avatarURL", avatarURL, avatarURLRule); err != nil {
		return err
	}

	req := m.newRequest(ctx, opUpdateUserAvatarURL, epoch)
	complete := func(acked string, err error) {
		err = merr.WrapErrTransport(opUpdateUserAvatarURL, err)
		if err != nil {
			req.finish(m, err, m.isStale(epoch))
			cb("", err)
			return
		}
		if acked == "" {
			acked = avatarURL
		}

		m.mu.Lock()
		stale := m.epoch != epoch || m.user == nil
		if !stale {
			m.user.AvatarURL = acked
		}
		m.mu.Unlock()

		req.finish(m, nil, stale)
		cb(acked, nil)
	}
	m.submit(req, func(ctx context.Context) func() {
		acked, err := tp.UpdateUserAvatarURL(ctx, avatarURL)
		return func() { complete(acked, err) }
	}, func(err error) { complete("", err) })
	return nil
}

// QueryUsersInfo 查询用户信息，只能在 connected 阶段调用。
//
// userIDs 按首次出现的顺序去重并移除空 ID；查询结果不会修改本地缓存的用户资料。
func (m *Manager) QueryUsersInfo(ctx context.Context, userIDs []string, cb QueryUsersCallback) error {
	if cb == nil {
		cb = func([]UserInfo, []string, error) {}
	}

	epoch, tp, _, err := m.requireConnected(opQueryUsersInfo)
	if err != nil {
		return err
	}
	ids := normalizeIDs(userIDs, "")
	if len(ids) == 0 {
		return merr.WrapErrParameterInvalidMsg("user list %v has no valid user id", userIDs)
	}

	req := m.newRequest(ctx, opQueryUsersInfo, epoch, zap.Int("users", len(ids)))
	complete := func(infos []transport.UserFullInfo, errUsers []transport.ErrorUserInfo, err error) {
		err = merr.WrapErrTransport(opQueryUsersInfo, err)
		req.finish(m, err, m.isStale(epoch))
		if err != nil {
			cb(nil, nil, err)
			return
		}
		users := lo.Map(infos, func(info transport.UserFullInfo, _ int) UserInfo {
			return UserInfoFromFullInfo(&info)
		})
		cb(users, failedUserIDs(errUsers), nil)
	}
	m.submit(req, func(ctx context.Context) func() {
		infos, errUsers, err := tp.QueryUsersInfo(ctx, ids)
		return func() { complete(infos, errUsers, err) }
	}, func(err error) { complete(nil, nil, err) })
	return nil
}

// Phase 返回当前阶段。
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// CurrentUser 返回当前身份的副本，connecting 阶段返回乐观身份。
func (m *Manager) CurrentUser() (UserInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return UserInfo{}, false
	}
	return *m.user, true
}

// MediaPaths 返回媒体文件目录解析器。
func (m *Manager) MediaPaths() MediaPaths {
	return m.paths
}

// Close 停止投递队列与协程池并关闭传输层，之后所有操作返回 ErrNotInitialized。
// 已发出请求的回调仍会被调用一次。
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	tp := m.transport
	m.mu.Unlock()

	m.queue.Close()
	m.pool.Release()

	if tp == nil {
		return nil
	}
	tp.SetEventHandler(nil)
	return tp.Close()
}

func (m *Manager) checkLifecycleLocked(op string) error {
	if m.closed {
		return merr.WrapErrNotInitialized(op, "manager closed")
	}
	if m.phase == PhaseUninitialized {
		return merr.WrapErrNotInitialized(op)
	}
	return nil
}

// requireConnected 校验 connected 阶段，并返回发起请求所需的会话快照。
func (m *Manager) requireConnected(op string) (uint64, transport.Transport, UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLifecycleLocked(op); err != nil {
		return 0, nil, UserInfo{}, err
	}
	if m.phase != PhaseConnected || m.user == nil {
		return 0, nil, UserInfo{}, merr.WrapErrNotConnected(op, m.phase.String())
	}
	return m.epoch, m.transport, *m.user, nil
}

// detachLocked 清除身份、进入 disconnected 阶段并推进会话纪元。
func (m *Manager) detachLocked() {
	m.user = nil
	m.bound = false
	m.epoch++
	m.setPhaseLocked(PhaseDisconnected)
}

func (m *Manager) isStale(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch != epoch
}

// sessionTurn 为 Login/Logout 调用链上的一个位置。
type sessionTurn struct {
	prev  <-chan struct{}
	done  chan struct{}
	epoch uint64
}

// nextTurnLocked 在调用链末尾追加一个位置，调用方需持有 m.mu。
func (m *Manager) nextTurnLocked() *sessionTurn {
	turn := &sessionTurn{prev: m.sessionTail, done: make(chan struct{}), epoch: m.epoch}
	m.sessionTail = turn.done
	return turn
}

// runTurn 等待此前发起的 Login/Logout 全部结束后执行 fn。
// 等待超时时返回错误，但本位置仍在前序调用结束后才释放。
func (m *Manager) runTurn(ctx context.Context, turn *sessionTurn, fn func() error) error {
	select {
	case <-turn.prev:
	case <-ctx.Done():
		go func() {
			<-turn.prev
			close(turn.done)
		}()
		return transport.NewError(transport.CodeTimeout, "wait for previous session call: %v", ctx.Err())
	}

	m.mu.Lock()
	m.turnActive, m.turnEpoch = true, turn.epoch
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.turnActive = false
		m.mu.Unlock()
		close(turn.done)
	}()
	return fn()
}

// eventEpoch 返回传输层此刻推送的事件所属的会话纪元。
// Login/Logout 调用期间的推送属于发起该调用的会话。
func (m *Manager) eventEpoch() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turnActive {
		return m.turnEpoch
	}
	return m.epoch
}

func (m *Manager) setPhaseLocked(phase Phase) {
	if m.phase == phase {
		return
	}
	m.Logger().Debug("imkit phase changed",
		zap.Stringer("from", m.phase),
		zap.Stringer("to", phase),
		zlog.FieldEpoch(m.epoch))
	m.phase = phase
	m.reportPhase(phase)
}

func (m *Manager) reportPhase(phase Phase) {
	if !m.cfg.DisableMetrics {
		metrics.SessionPhase.Set(float64(phase))
	}
}

// applyConnectionEvent 在串行协程上先根据事件调整会话状态，再通知监听者。
// 属于已失效会话的事件被丢弃。
func (m *Manager) applyConnectionEvent(epoch uint64, state ConnectionState, event ConnectionEvent) {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		m.Logger().Debug("connection event from previous session ignored",
			zap.Stringer("state", state),
			zap.Stringer("event", event),
			zlog.FieldEpoch(epoch))
		if !m.cfg.DisableMetrics {
			metrics.SessionDroppedEvents.WithLabelValues(eventKindConnectionState).Inc()
		}
		return
	}
	next, detach := reconcile(m.phase, state)
	if detach {
		m.detachLocked()
	} else {
		m.setPhaseLocked(next)
	}
	m.mu.Unlock()

	m.Logger().Info("connection state changed",
		zap.Stringer("state", state),
		zap.Stringer("event", event),
		zlog.FieldPhase(next))

	l := m.relay.listener()
	if l == nil {
		m.reportDropped(eventKindConnectionState)
		return
	}
	l.OnConnectionStateChange(state, event)
}

func (m *Manager) relayUnreadTotal(total uint32) {
	l := m.relay.listener()
	if l == nil {
		m.reportDropped(eventKindUnreadTotal)
		return
	}
	l.OnTotalUnreadMessageCountChange(total)
}

// deliverEvent 将推送事件放入串行队列，管理器关闭后事件被丢弃。
func (m *Manager) deliverEvent(kind string, fn func()) {
	if !m.cfg.DisableMetrics {
		metrics.SessionEventTotal.WithLabelValues(kind).Inc()
	}
	if !m.queue.Push(fn) {
		m.reportDropped(kind)
	}
}

func (m *Manager) reportDropped(kind string) {
	m.Logger().RatedInfo(10, "no listener, event dropped", zap.String("kind", kind))
	if !m.cfg.DisableMetrics {
		metrics.SessionDroppedEvents.WithLabelValues(kind).Inc()
	}
}

// pendingRequest 关联一次已发出的传输层请求与其完成回调。
type pendingRequest struct {
	id    uint64
	op    string
	epoch uint64
	start time.Time

	ctx  context.Context
	span trace.Span

	done atomic.Bool
}

func (m *Manager) newRequest(ctx context.Context, op string, epoch uint64, fields ...zap.Field) *pendingRequest {
	if ctx == nil {
		ctx = context.Background()
	}
	// 请求一经发出便不可取消，仅保留调用方上下文中的值。
	ctx = context.WithoutCancel(ctx)
	ctx, span := zlog.NewIntentContext(ctx, tracerName, op)

	id := m.reqID.Inc()
	fields = append(fields, zap.Uint64("reqID", id), zlog.FieldOp(op), zlog.FieldEpoch(epoch))
	ctx = zlog.WithFields(ctx, fields...)

	return &pendingRequest{
		id:    id,
		op:    op,
		epoch: epoch,
		start: time.Now(),
		ctx:   ctx,
		span:  span,
	}
}

// finish 记录请求结果，对同一请求只生效一次。
func (r *pendingRequest) finish(m *Manager, err error, stale bool) {
	if !r.done.CompareAndSwap(false, true) {
		zlog.Ctx(r.ctx).Error("request completed more than once")
		return
	}

	result := metrics.SuccessLabel
	if err != nil {
		result = metrics.FailLabel
		r.span.RecordError(err)
		r.span.SetStatus(codes.Error, err.Error())
	}
	if stale {
		zlog.Ctx(r.ctx).Debug("stale completion, session state untouched")
	}
	r.span.End()

	if m.cfg.DisableMetrics {
		return
	}
	metrics.SessionRequestTotal.WithLabelValues(r.op, result).Inc()
	metrics.SessionRequestLatency.WithLabelValues(r.op).Observe(float64(time.Since(r.start).Milliseconds()))
	if stale {
		metrics.SessionStaleCompletions.WithLabelValues(r.op).Inc()
	}
}

func (r *pendingRequest) callContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(r.ctx, timeout)
	}
	return r.ctx, func() {}
}

// submit 在协程池中执行 call，并将其返回的完成函数投递到串行队列。
//
// call 发生 panic 或协程池已关闭时，以错误调用 fail，保证每个请求恰好完成一次。
func (m *Manager) submit(req *pendingRequest, call func(ctx context.Context) func(), fail func(err error)) {
	task := func() (struct{}, error) {
		m.deliver(m.invoke(req, call, fail))
		return struct{}{}, nil
	}

	// 协程池为非阻塞模式，已满或已关闭时 Submit 立即返回错误，任务改由独立协程执行。
	future := m.pool.Submit(task)
	select {
	case <-future.Inner():
		if err := future.Err(); err != nil {
			zlog.Ctx(req.ctx).RatedInfo(1, "dispatch pool unavailable, running on a new goroutine", zap.Error(err))
			go task()
		}
	default:
	}
}

func (m *Manager) invoke(req *pendingRequest, call func(ctx context.Context) func(), fail func(err error)) (complete func()) {
	ctx, cancel := req.callContext(m.cfg.RequestTimeout)
	defer cancel()
	defer func() {
		if x := recover(); x != nil {
			zlog.Ctx(req.ctx).Error("transport call panicked", zap.Any("panic", x))
			err := transport.NewError(transport.CodeUnknown, "transport panicked: %v", x)
			complete = func() { fail(err) }
		}
	}()
	return call(ctx)
}

// deliver 将完成函数放入串行队列；队列已关闭时直接在当前协程执行。
func (m *Manager) deliver(complete func()) {
	if !m.queue.Push(complete) {
		complete()
	}
}

// normalizeIDs 按首次出现顺序去重，并移除空 ID 与 exclude。
func normalizeIDs(ids []string, exclude string) []string {
	return lo.Uniq(lo.Filter(ids, func(id string, _ int) bool {
		return id != "" && id != exclude
	}))
}

func failedUserIDs(errUsers []transport.ErrorUserInfo) []string {
	return lo.Map(errUsers, func(u transport.ErrorUserInfo, _ int) string {
		return u.UserID
	})
}
