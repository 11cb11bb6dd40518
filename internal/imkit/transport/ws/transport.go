// Package ws 提供基于 websocket 的传输层实现。
//
// 每次 Login 拨号建立一条新连接，请求以 UUID 作为 ID 与响应关联；
// 服务端推送的连接状态与未读总数转交给 EventHandler。
package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/codec"
	"github.com/lk2023060901/imkit-go/internal/network/connector"
	"github.com/lk2023060901/imkit-go/pkg/log"
)

// Option 为 websocket 传输层的可选配置项。
type Option func(*Transport)

// WithConnector 指定拨号器，默认使用 connector.New 的默认配置。
func WithConnector(c *connector.Connector) Option {
	return func(t *Transport) {
		if c != nil {
			t.connector = c
		}
	}
}

// WithSDKVersion 覆盖登录时上报的 SDK 版本号。
func WithSDKVersion(v string) Option {
	return func(t *Transport) {
		t.sdkVersion = v
	}
}

// WithHeader 设置握手时附带的 HTTP 头。
func WithHeader(h http.Header) Option {
	return func(t *Transport) {
		t.header = h
	}
}

// NewFactory 返回连接到 url 的传输层工厂。应用凭证在登录时由服务端校验。
func NewFactory(url string, opts ...Option) transport.Factory {
	return func(cfg transport.AppConfig) (transport.Transport, error) {
		if url == "" {
			return nil, transport.NewError(transport.CodeInvalidParameter, "empty server url")
		}
		t := &Transport{
			url:        url,
			app:        cfg,
			sdkVersion: SDKVersion,
			codec:      codec.New(codec.Options{}),
			pending:    make(map[string]pendingCall),
			logger:     log.With(log.FieldComponent("ws-transport")),
		}
		for _, opt := range opts {
			opt(t)
		}
		if t.connector == nil {
			t.connector = connector.New(connector.Config{Codec: t.codec})
		}
		return t, nil
	}
}

type pendingCall struct {
	conn *connector.Conn
	ch   chan *codec.Envelope
}

// Transport 为 websocket 传输层实现。
type Transport struct {
	url        string
	app        transport.AppConfig
	sdkVersion string
	header     http.Header
	connector  *connector.Connector
	codec      codec.Codec
	logger     *log.MLogger

	mu      sync.Mutex
	conn    *connector.Conn
	userID  string
	handler transport.EventHandler
	pending map[string]pendingCall
	closed  bool
}

var _ transport.Transport = (*Transport)(nil)

func (t *Transport) Login(ctx context.Context, user transport.UserInfo) error {
	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return transport.NewError(transport.CodeClosed, "transport closed")
	case t.conn != nil:
		t.mu.Unlock()
		return transport.NewError(transport.CodeAlreadyLoggedIn, "connection already established")
	}
	t.mu.Unlock()

	t.emitState(transport.ConnectionStateConnecting, transport.ConnectionEventSuccess)

	conn, err := t.connector.Dial(ctx, t.url, connHandler{t}, t.header)
	if err != nil {
		if ctx.Err() != nil {
			return transport.NewError(transport.CodeTimeout, "dial %s: %v", t.url, ctx.Err())
		}
		return transport.NewError(transport.CodeUnknown, "dial %s: %v", t.url, err)
	}

	t.mu.Lock()
	if t.closed || t.conn != nil {
		t.mu.Unlock()
		_ = conn.Close()
		return transport.NewError(transport.CodeClosed, "transport closed during login")
	}
	t.conn = conn
	t.mu.Unlock()

	req := &LoginRequest{
		AppID:      t.app.AppID,
		AppSign:    t.app.AppSign,
		SDKVersion: t.sdkVersion,
		User:       user,
	}
	if err := t.call(ctx, conn, OpLogin, req, nil); err != nil {
		t.detach(conn)
		return err
	}

	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return transport.NewError(transport.CodeClosed, "connection lost during login")
	}
	t.userID = user.UserID
	t.mu.Unlock()

	t.emitState(transport.ConnectionStateConnected, transport.ConnectionEventSuccess)
	return nil
}

func (t *Transport) Logout(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}

	if err := t.call(ctx, conn, OpLogout, nil, nil); err != nil {
		t.logger.RatedWarn(1, "logout request failed", zap.Error(err))
	}
	if t.detach(conn) {
		t.emitState(transport.ConnectionStateDisconnected, transport.ConnectionEventSuccess)
	}
	return nil
}

func (t *Transport) CreateGroup(ctx context.Context, name string, memberIDs []string) (*transport.GroupFullInfo, []transport.ErrorUserInfo, error) {
	conn, err := t.activeConn()
	if err != nil {
		return nil, nil, err
	}
	var resp CreateGroupResponse
	if err := t.call(ctx, conn, OpCreateGroup, &CreateGroupRequest{Name: name, MemberIDs: memberIDs}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Group, resp.ErrorUsers, nil
}

func (t *Transport) JoinGroup(ctx context.Context, groupID string) (*transport.GroupFullInfo, error) {
	conn, err := t.activeConn()
	if err != nil {
		return nil, err
	}
	var resp JoinGroupResponse
	if err := t.call(ctx, conn, OpJoinGroup, &JoinGroupRequest{GroupID: groupID}, &resp); err != nil {
		return nil, err
	}
	return resp.Group, nil
}

func (t *Transport) UpdateUserAvatarURL(ctx context.Context, avatarURL string) (string, error) {
	conn, err := t.activeConn()
	if err != nil {
		return "", err
	}
	var resp UpdateAvatarResponse
	if err := t.call(ctx, conn, OpUpdateAvatar, &UpdateAvatarRequest{AvatarURL: avatarURL}, &resp); err != nil {
		return "", err
	}
	return resp.AvatarURL, nil
}

func (t *Transport) QueryUsersInfo(ctx context.Context, userIDs []string) ([]transport.UserFullInfo, []transport.ErrorUserInfo, error) {
	conn, err := t.activeConn()
	if err != nil {
		return nil, nil, err
	}
	var resp QueryUsersResponse
	if err := t.call(ctx, conn, OpQueryUsers, &QueryUsersRequest{UserIDs: userIDs}, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Users, resp.ErrorUsers, nil
}

func (t *Transport) SetEventHandler(h transport.EventHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

// Close 关闭当前连接并等待读协程退出。
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.conn = nil
	t.userID = ""
	t.handler = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	<-conn.Done()
	return err
}

func (t *Transport) activeConn() (*connector.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, transport.NewError(transport.CodeClosed, "transport closed")
	}
	if t.conn == nil || t.userID == "" {
		return nil, transport.NewError(transport.CodeNotLoggedIn, "not logged in")
	}
	return t.conn, nil
}

// call 发送一条请求并等待同 ID 的响应，resp 为 nil 时忽略响应负载。
func (t *Transport) call(ctx context.Context, conn *connector.Conn, op string, req, resp any) error {
	id := uuid.NewString()
	env, err := t.codec.Pack(id, op, req)
	if err != nil {
		return transport.NewError(transport.CodeInvalidParameter, "%s: %v", op, err)
	}

	ch := make(chan *codec.Envelope, 1)
	t.mu.Lock()
	t.pending[id] = pendingCall{conn: conn, ch: ch}
	t.mu.Unlock()
	defer t.forget(id)

	if err := conn.Send(env); err != nil {
		return transport.NewError(transport.CodeClosed, "%s: %v", op, err)
	}

	select {
	case <-ctx.Done():
		return transport.NewError(transport.CodeTimeout, "%s: %v", op, ctx.Err())
	case reply, ok := <-ch:
		if !ok {
			return transport.NewError(transport.CodeClosed, "%s: connection closed", op)
		}
		if reply.Code != 0 {
			return &transport.Error{Code: reply.Code, Message: reply.Message}
		}
		if resp == nil {
			return nil
		}
		if err := t.codec.Unpack(reply, resp); err != nil {
			return transport.NewError(transport.CodeUnknown, "%s: %v", op, err)
		}
		return nil
	}
}

func (t *Transport) forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

// resolve 将响应交给等待中的请求，找不到请求时返回 false。
func (t *Transport) resolve(env *codec.Envelope) bool {
	t.mu.Lock()
	call, ok := t.pending[env.ID]
	delete(t.pending, env.ID)
	t.mu.Unlock()
	if !ok {
		return false
	}
	call.ch <- env
	return true
}

// failPending 结束 conn 上所有等待中的请求。
func (t *Transport) failPending(conn *connector.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, call := range t.pending {
		if call.conn == conn {
			delete(t.pending, id)
			close(call.ch)
		}
	}
}

// detach 解除 conn 与当前传输层的绑定并关闭连接，返回解除前是否处于登录状态。
func (t *Transport) detach(conn *connector.Conn) bool {
	t.mu.Lock()
	var loggedIn bool
	if t.conn == conn {
		loggedIn = t.userID != ""
		t.conn = nil
		t.userID = ""
	}
	t.mu.Unlock()

	_ = conn.Close()
	return loggedIn
}

func (t *Transport) eventHandler() transport.EventHandler {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handler
}

func (t *Transport) emitState(state transport.ConnectionState, event transport.ConnectionEvent) {
	if h := t.eventHandler(); h != nil {
		h.OnConnectionStateChanged(state, event)
	}
}

func (t *Transport) emitUnread(total uint32) {
	if h := t.eventHandler(); h != nil {
		h.OnConversationTotalUnreadMessageCountUpdated(total)
	}
}

// connHandler 将连接回调转交给 Transport。
type connHandler struct {
	t *Transport
}

var _ connector.Handler = connHandler{}

func (h connHandler) OnConnected(conn *connector.Conn) {
	h.t.logger.Debug("connection established", zap.Stringer("remote", conn.RemoteAddr()))
}

func (h connHandler) OnMessage(conn *connector.Conn, env *codec.Envelope) {
	if !env.IsPush() {
		if !h.t.resolve(env) {
			h.t.logger.RatedInfo(1, "response without pending request", log.FieldOp(env.Op), zap.String("id", env.ID))
		}
		return
	}

	switch env.Op {
	case OpConnectionState:
		var ev ConnectionStateEvent
		if err := h.t.codec.Unpack(env, &ev); err != nil {
			h.t.logger.RatedWarn(1, "bad connection state push", zap.Error(err))
			return
		}
		// 服务端推送断开时本端主动关闭连接，之后的连接关闭回调不再重复上报。
		if ev.State == transport.ConnectionStateDisconnected && !h.t.detach(conn) {
			return
		}
		h.t.emitState(ev.State, ev.Event)
	case OpUnreadTotal:
		var ev UnreadTotalEvent
		if err := h.t.codec.Unpack(env, &ev); err != nil {
			h.t.logger.RatedWarn(1, "bad unread total push", zap.Error(err))
			return
		}
		h.t.emitUnread(ev.Total)
	default:
		h.t.logger.RatedInfo(1, "unknown push", log.FieldOp(env.Op))
	}
}

func (h connHandler) OnClosed(conn *connector.Conn, err error) {
	h.t.failPending(conn)
	if h.t.detach(conn) {
		h.t.emitState(transport.ConnectionStateDisconnected, transport.ConnectionEventLoginInterrupted)
	}
	if err != nil {
		h.t.logger.Info("connection closed", zap.Error(err))
	}
}

func (h connHandler) OnError(_ *connector.Conn, stage network.Stage, err error) {
	h.t.logger.RatedWarn(1, "connection error", zap.String("stage", string(stage)), zap.Error(err))
}
