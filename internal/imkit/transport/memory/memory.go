// Package memory 提供基于进程内 imbackend.Directory 的传输层实现，用于测试与示例。
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lk2023060901/imkit-go/internal/imbackend"
	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
)

// Option 为内存传输层的可选配置项。
type Option func(*Transport)

// WithLatency 为每次请求增加固定延迟，用于模拟网络耗时。
func WithLatency(d time.Duration) Option {
	return func(t *Transport) {
		t.latency = d
	}
}

// NewFactory 返回绑定到 dir 的传输层工厂，每次调用创建一个新的连接。
// 创建的传输层会被登记，可以通过 Hub 找到并模拟服务端推送。
func NewFactory(dir *imbackend.Directory, hub *Hub, opts ...Option) transport.Factory {
	return func(cfg transport.AppConfig) (transport.Transport, error) {
		if err := dir.Authenticate(cfg.AppID, cfg.AppSign); err != nil {
			return nil, err
		}
		t := &Transport{dir: dir, hub: hub, app: cfg}
		for _, opt := range opts {
			opt(t)
		}
		return t, nil
	}
}

// Hub 按用户记录在线的内存连接，用于模拟服务端推送。
type Hub struct {
	mu    sync.Mutex
	conns map[string]*Transport
}

// NewHub 创建一个空 Hub。
func NewHub() *Hub {
	return &Hub{conns: make(map[string]*Transport)}
}

func (h *Hub) bind(userID string, t *Transport) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[userID] = t
}

func (h *Hub) unbind(userID string, t *Transport) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == t {
		delete(h.conns, userID)
	}
}

func (h *Hub) lookup(userID string) *Transport {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conns[userID]
}

// Kick 强制 userID 下线并推送 KickedOut 事件，用户不在线时返回 false。
func (h *Hub) Kick(userID string) bool {
	t := h.lookup(userID)
	if t == nil {
		return false
	}
	t.drop(transport.ConnectionEventKickedOut)
	return true
}

// PushUnreadTotal 向 userID 推送未读总数，用户不在线时返回 false。
func (h *Hub) PushUnreadTotal(userID string, total uint32) bool {
	t := h.lookup(userID)
	if t == nil {
		return false
	}
	t.emitUnread(total)
	return true
}

// Transport 为内存传输层实现。
type Transport struct {
	dir     *imbackend.Directory
	hub     *Hub
	app     transport.AppConfig
	latency time.Duration

	mu      sync.Mutex
	handler transport.EventHandler
	userID  string
	closed  bool
}

var _ transport.Transport = (*Transport)(nil)

func (t *Transport) Login(ctx context.Context, user transport.UserInfo) error {
	if err := t.begin(ctx); err != nil {
		return err
	}

	t.mu.Lock()
	if t.userID != "" {
		t.mu.Unlock()
		return transport.NewError(transport.CodeAlreadyLoggedIn, "connection already bound to %s", t.userID)
	}
	t.mu.Unlock()

	t.emitState(transport.ConnectionStateConnecting, transport.ConnectionEventSuccess)
	if err := t.dir.Login(user); err != nil {
		return err
	}

	t.mu.Lock()
	t.userID = user.UserID
	t.mu.Unlock()
	t.hub.bind(user.UserID, t)

	t.emitState(transport.ConnectionStateConnected, transport.ConnectionEventSuccess)
	return nil
}

func (t *Transport) Logout(ctx context.Context) error {
	if err := t.begin(ctx); err != nil {
		return err
	}
	t.drop(transport.ConnectionEventSuccess)
	return nil
}

func (t *Transport) CreateGroup(ctx context.Context, name string, memberIDs []string) (*transport.GroupFullInfo, []transport.ErrorUserInfo, error) {
	if err := t.begin(ctx); err != nil {
		return nil, nil, err
	}
	return t.dir.CreateGroup(t.currentUser(), name, memberIDs)
}

func (t *Transport) JoinGroup(ctx context.Context, groupID string) (*transport.GroupFullInfo, error) {
	if err := t.begin(ctx); err != nil {
		return nil, err
	}
	return t.dir.JoinGroup(t.currentUser(), groupID)
}

func (t *Transport) UpdateUserAvatarURL(ctx context.Context, avatarURL string) (string, error) {
	if err := t.begin(ctx); err != nil {
		return "", err
	}
	return t.dir.UpdateAvatar(t.currentUser(), avatarURL)
}

func (t *Transport) QueryUsersInfo(ctx context.Context, userIDs []string) ([]transport.UserFullInfo, []transport.ErrorUserInfo, error) {
	if err := t.begin(ctx); err != nil {
		return nil, nil, err
	}
	return t.dir.QueryUsers(t.currentUser(), userIDs)
}

func (t *Transport) SetEventHandler(h transport.EventHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = h
}

func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	userID := t.userID
	t.userID = ""
	t.handler = nil
	t.mu.Unlock()

	if userID != "" {
		t.dir.Logout(userID)
		t.hub.unbind(userID, t)
	}
	return nil
}

// begin 模拟网络延迟并检查连接是否已关闭。
func (t *Transport) begin(ctx context.Context) error {
	if t.latency > 0 {
		timer := time.NewTimer(t.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return transport.NewError(transport.CodeTimeout, "%v", ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return transport.NewError(transport.CodeTimeout, "%v", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return transport.NewError(transport.CodeClosed, "transport closed")
	}
	return nil
}

func (t *Transport) currentUser() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.userID
}

// drop 解除用户绑定并推送 Disconnected 事件。
func (t *Transport) drop(event transport.ConnectionEvent) {
	t.mu.Lock()
	userID := t.userID
	t.userID = ""
	t.mu.Unlock()

	if userID == "" {
		return
	}
	t.dir.Logout(userID)
	t.hub.unbind(userID, t)
	t.emitState(transport.ConnectionStateDisconnected, event)
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
