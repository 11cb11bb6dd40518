package imbackend

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/blang/semver/v4"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
	"github.com/lk2023060901/imkit-go/internal/imkit/transport/ws"
	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/acceptor"
	"github.com/lk2023060901/imkit-go/internal/network/codec"
	"github.com/lk2023060901/imkit-go/internal/network/router"
	"github.com/lk2023060901/imkit-go/internal/network/session"
	"github.com/lk2023060901/imkit-go/pkg/log"
)

// DefaultSDKRange 为服务端默认接受的 SDK 版本范围。
const DefaultSDKRange = ">=1.0.0 <2.0.0"

type sessionKey struct{}

var userKey = sessionKey{}

// ServerOption 为 Server 的可选配置项。
type ServerOption func(*serverOptions)

type serverOptions struct {
	sdkRange string
	acceptor acceptor.Config
}

// WithSDKRange 指定接受的 SDK 版本范围，语法同 semver.ParseRange。
func WithSDKRange(r string) ServerOption {
	return func(o *serverOptions) {
		o.sdkRange = r
	}
}

// WithAcceptorConfig 覆盖 websocket 接入层配置。
func WithAcceptorConfig(cfg acceptor.Config) ServerOption {
	return func(o *serverOptions) {
		o.acceptor = cfg
	}
}

// Server 是基于 websocket 的参考后端，把 ws 协议请求转交给 Directory。
//
// 同一用户再次登录时，旧会话收到 KickedOut 推送并被解除绑定。
type Server struct {
	dir      *Directory
	codec    codec.Codec
	router   router.Router
	acceptor *acceptor.Acceptor
	sdkRange semver.Range
	logger   *log.MLogger

	mu     sync.Mutex
	online map[string]session.Session
}

// NewServer 创建一个服务于 dir 的 Server。
func NewServer(dir *Directory, opts ...ServerOption) (*Server, error) {
	if dir == nil {
		return nil, errors.New("imbackend: directory is nil")
	}
	o := serverOptions{
		sdkRange: DefaultSDKRange,
		acceptor: acceptor.Config{Session: acceptor.DefaultSessionConfig()},
	}
	for _, opt := range opts {
		opt(&o)
	}

	sdkRange, err := semver.ParseRange(o.sdkRange)
	if err != nil {
		return nil, errors.Wrapf(err, "imbackend: invalid sdk range %q", o.sdkRange)
	}
	if o.acceptor.Codec == nil {
		o.acceptor.Codec = codec.New(codec.Options{})
	}

	s := &Server{
		dir:      dir,
		codec:    o.acceptor.Codec,
		sdkRange: sdkRange,
		online:   make(map[string]session.Session),
		logger:   log.With(log.FieldModule("imbackend")),
	}
	s.router = router.New(s.codec, router.WithErrorCodes(transport.CodeUnknown, transport.CodeInvalidParameter))
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}

	s.acceptor, err = acceptor.New(o.acceptor, sessionHandler{s}, nil)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Directory 返回服务端使用的目录。
func (s *Server) Directory() *Directory {
	return s.dir
}

// Handler 返回处理 websocket 升级的 http.Handler，可挂载到任意路径。
func (s *Server) Handler() http.Handler {
	return s.acceptor
}

// Serve 在 ln 上提供服务，阻塞直至 ctx 取消或 Close 被调用。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("imbackend serving", zap.Stringer("addr", ln.Addr()))
	return s.acceptor.Serve(ctx, ln)
}

// Close 关闭所有会话并停止服务。
func (s *Server) Close() error {
	return s.acceptor.Close()
}

// Kick 强制 userID 下线并推送 KickedOut，用户不在线时返回 false。
func (s *Server) Kick(userID string) bool {
	s.mu.Lock()
	sess, ok := s.online[userID]
	if ok {
		s.unbindLocked(userID, sess)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.push(sess, ws.OpConnectionState, &ws.ConnectionStateEvent{
		State: transport.ConnectionStateDisconnected,
		Event: transport.ConnectionEventKickedOut,
	})
	return true
}

// PushUnreadTotal 向 userID 推送未读总数，用户不在线时返回 false。
func (s *Server) PushUnreadTotal(userID string, total uint32) bool {
	s.mu.Lock()
	sess, ok := s.online[userID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	return s.push(sess, ws.OpUnreadTotal, &ws.UnreadTotalEvent{Total: total})
}

func (s *Server) push(sess session.Session, op string, msg any) bool {
	env, err := s.codec.Pack("", op, msg)
	if err == nil {
		err = sess.Send(env)
	}
	if err != nil {
		s.logger.RatedWarn(1, "push failed", log.FieldOp(op), zap.Uint64("session", sess.ID()), zap.Error(err))
		return false
	}
	return true
}

func (s *Server) registerRoutes() error {
	routes := map[string]router.Route{
		ws.OpLogin: {
			NewRequest: func() any { return &ws.LoginRequest{} },
			Handler:    s.handleLogin,
		},
		ws.OpLogout: {
			Handler: s.handleLogout,
		},
		ws.OpCreateGroup: {
			NewRequest: func() any { return &ws.CreateGroupRequest{} },
			Handler: func(sess session.Session, req any) (any, error) {
				r := req.(*ws.CreateGroupRequest)
				group, errUsers, err := s.dir.CreateGroup(userOf(sess), r.Name, r.MemberIDs)
				if err != nil {
					return nil, err
				}
				return &ws.CreateGroupResponse{Group: group, ErrorUsers: errUsers}, nil
			},
		},
		ws.OpJoinGroup: {
			NewRequest: func() any { return &ws.JoinGroupRequest{} },
			Handler: func(sess session.Session, req any) (any, error) {
				group, err := s.dir.JoinGroup(userOf(sess), req.(*ws.JoinGroupRequest).GroupID)
				if err != nil {
					return nil, err
				}
				return &ws.JoinGroupResponse{Group: group}, nil
			},
		},
		ws.OpUpdateAvatar: {
			NewRequest: func() any { return &ws.UpdateAvatarRequest{} },
			Handler: func(sess session.Session, req any) (any, error) {
				url, err := s.dir.UpdateAvatar(userOf(sess), req.(*ws.UpdateAvatarRequest).AvatarURL)
				if err != nil {
					return nil, err
				}
				return &ws.UpdateAvatarResponse{AvatarURL: url}, nil
			},
		},
		ws.OpQueryUsers: {
			NewRequest: func() any { return &ws.QueryUsersRequest{} },
			Handler: func(sess session.Session, req any) (any, error) {
				users, errUsers, err := s.dir.QueryUsers(userOf(sess), req.(*ws.QueryUsersRequest).UserIDs)
				if err != nil {
					return nil, err
				}
				return &ws.QueryUsersResponse{Users: users, ErrorUsers: errUsers}, nil
			},
		},
	}
	for op, route := range routes {
		if err := s.router.Register(op, route); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleLogin(sess session.Session, req any) (any, error) {
	r := req.(*ws.LoginRequest)

	v, err := semver.ParseTolerant(r.SDKVersion)
	if err != nil || !s.sdkRange(v) {
		return nil, transport.NewError(transport.CodeUnsupportedSDK, "sdk version %q not supported", r.SDKVersion)
	}
	if err := s.dir.Authenticate(r.AppID, r.AppSign); err != nil {
		return nil, err
	}
	if userOf(sess) != "" {
		return nil, transport.NewError(transport.CodeAlreadyLoggedIn, "session already bound to %s", userOf(sess))
	}

	s.mu.Lock()
	old, kicked := s.online[r.User.UserID]
	if kicked {
		s.unbindLocked(r.User.UserID, old)
	}
	if err := s.dir.Login(r.User); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sess.Store(userKey, r.User.UserID)
	s.online[r.User.UserID] = sess
	s.mu.Unlock()

	if kicked {
		s.push(old, ws.OpConnectionState, &ws.ConnectionStateEvent{
			State: transport.ConnectionStateDisconnected,
			Event: transport.ConnectionEventKickedOut,
		})
	}
	s.logger.Info("user logged in", log.FieldUserID(r.User.UserID), zap.Uint64("session", sess.ID()), zap.Bool("kicked", kicked))
	return nil, nil
}

func (s *Server) handleLogout(sess session.Session, _ any) (any, error) {
	userID := userOf(sess)
	if userID == "" {
		return nil, nil
	}
	s.mu.Lock()
	if s.online[userID] == sess {
		s.unbindLocked(userID, sess)
	}
	s.mu.Unlock()
	s.logger.Info("user logged out", log.FieldUserID(userID))
	return nil, nil
}

// unbindLocked 解除用户与会话的绑定并标记离线，调用方需持有 s.mu。
func (s *Server) unbindLocked(userID string, sess session.Session) {
	delete(s.online, userID)
	sess.Store(userKey, "")
	s.dir.Logout(userID)
}

func userOf(sess session.Session) string {
	v, ok := sess.Load(userKey)
	if !ok {
		return ""
	}
	userID, _ := v.(string)
	return userID
}

// sessionHandler 将接入层回调转交给 Server。
type sessionHandler struct {
	s *Server
}

var _ acceptor.Handler = sessionHandler{}

func (h sessionHandler) OnConnected(sess session.Session) {
	h.s.logger.Debug("session opened", zap.Uint64("session", sess.ID()), zap.Stringer("remote", sess.RemoteAddr()))
}

func (h sessionHandler) OnMessage(sess session.Session, env *codec.Envelope) {
	if err := h.s.router.Handle(sess, env); err != nil {
		h.s.logger.RatedInfo(1, "request failed", log.FieldOp(env.Op), zap.Uint64("session", sess.ID()), zap.Error(err))
	}
}

func (h sessionHandler) OnClosed(sess session.Session, err error) {
	userID := userOf(sess)
	if userID != "" {
		h.s.mu.Lock()
		if h.s.online[userID] == sess {
			h.s.unbindLocked(userID, sess)
		}
		h.s.mu.Unlock()
	}
	h.s.logger.Debug("session closed", zap.Uint64("session", sess.ID()), log.FieldUserID(userID), zap.Error(err))
}

func (h sessionHandler) OnError(sess session.Session, stage network.Stage, err error) {
	fields := []zap.Field{zap.String("stage", string(stage)), zap.Error(err)}
	if sess != nil {
		fields = append(fields, zap.Uint64("session", sess.ID()))
	}
	h.s.logger.RatedWarn(1, "session error", fields...)
}
