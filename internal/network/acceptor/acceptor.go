package acceptor

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/codec"
	"github.com/lk2023060901/imkit-go/internal/network/session"
	"github.com/lk2023060901/imkit-go/pkg/metrics"
)

// Config 描述 Acceptor 在会话层面的配置。
//
// 说明：
//   - Session 控制每个连接的发送队列、读写超时与心跳；
//   - Path 为 websocket 的升级路径（如 "/ws"）；
//   - Upgrader 为空时使用默认配置，允许任意 Origin。
type Config struct {
	Path     string
	Session  session.Config
	Upgrader *websocket.Upgrader

	// Codec 为空时使用默认 JSON Codec。
	Codec codec.Codec
}

func defaultConfig() Config {
	return Config{
		Path: "/ws",
		Session: session.Config{
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
			PingInterval: 30 * time.Second,
		},
	}
}

// Handler 由框架使用者实现，用于在服务器侧的各个阶段插入自定义逻辑。
//
// 同一会话上的 OnMessage 在该会话的读协程中串行调用，应避免耗时操作阻塞读取。
type Handler interface {
	// OnConnected 在握手成功并创建好会话后被调用。
	OnConnected(sess session.Session)

	// OnMessage 在成功解码出一条信封后被调用。
	OnMessage(sess session.Session, env *codec.Envelope)

	// OnClosed 在会话生命周期结束时被调用，err 为关闭原因，正常关闭时为 nil。
	OnClosed(sess session.Session, err error)

	// OnError 在会话处理的各个阶段发生错误时被调用，握手失败时 sess 为 nil。
	OnError(sess session.Session, stage network.Stage, err error)
}

// Acceptor 为服务器侧的 websocket 接入层，本身是一个 http.Handler。
//
// 职责：
//   - 处理 websocket 升级并为每个连接创建 BaseSession；
//   - 驱动读循环并回调 Handler 的各阶段；
//   - 通过 SessionManager 维护当前活跃会话。
type Acceptor struct {
	cfg      Config
	upgrader *websocket.Upgrader
	handler  Handler
	sessions session.SessionManager

	nextID atomic.Uint64
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	server *http.Server
}

var _ http.Handler = (*Acceptor)(nil)

// New 创建一个 Acceptor。sm 为 nil 时使用 BaseSessionManager。
func New(cfg Config, h Handler, sm session.SessionManager) (*Acceptor, error) {
	if h == nil {
		return nil, errors.New("acceptor: handler is nil")
	}
	def := defaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.New(codec.Options{})
	}
	if sm == nil {
		sm = session.NewBaseSessionManager()
	}

	upgrader := cfg.Upgrader
	if upgrader == nil {
		upgrader = &websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		}
	}

	return &Acceptor{
		cfg:      cfg,
		upgrader: upgrader,
		handler:  h,
		sessions: sm,
	}, nil
}

// DefaultSessionConfig 返回带有心跳与读写超时的会话配置。
func DefaultSessionConfig() session.Config {
	return defaultConfig().Session
}

// Sessions 返回会话索引。
func (a *Acceptor) Sessions() session.SessionManager {
	return a.sessions
}

// Serve 在 ln 上启动 HTTP 服务并在 Path 上接受 websocket 连接，阻塞直至 ctx 取消或服务出错。
func (a *Acceptor) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Path, a)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return http.ErrServerClosed
	}
	a.server = srv
	a.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = a.Close() })
	defer stop()

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return ctx.Err()
	}
	return err
}

// Close 停止接受新连接，关闭所有会话并等待读循环退出。
func (a *Acceptor) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	srv := a.server
	a.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Close()
	}
	a.sessions.Range(func(sess session.Session) bool {
		_ = sess.Close()
		return true
	})
	a.wg.Wait()
	return err
}

func (a *Acceptor) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// ServeHTTP 实现 http.Handler，完成升级后在当前协程中运行读循环。
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		http.Error(w, "acceptor closed", http.StatusServiceUnavailable)
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.handler.OnError(nil, network.StageHandshake, errors.Wrapf(network.ErrHandshakeFailed, "%v", err))
		return
	}

	a.serveConn(r.Context(), conn)
}

// serveConn 处理单个连接的生命周期。
//
// 流程：
//  1. 创建 BaseSession 并注册到 SessionManager；
//  2. 调用 sess.OnConnected 与 Handler.OnConnected；
//  3. 循环读取信封并回调 Handler.OnMessage，解码失败只跳过当前帧；
//  4. 读失败或会话关闭后，依次调用 sess.OnDisconnected 与 Handler.OnClosed。
func (a *Acceptor) serveConn(parent context.Context, conn *websocket.Conn) {
	cfg := a.cfg.Session
	var sess *session.BaseSession
	userOnError := cfg.OnError
	cfg.OnError = func(stage network.Stage, err error) {
		a.handler.OnError(sess, stage, err)
		if userOnError != nil {
			userOnError(stage, err)
		}
	}
	sess = session.NewBaseSession(context.WithoutCancel(parent), a.nextID.Inc(), conn, a.cfg.Codec, cfg)

	if err := a.sessions.Register(sess); err != nil {
		a.handler.OnError(sess, network.StageHandshake, err)
		_ = sess.Close()
		return
	}
	metrics.TransportConnections.Inc()
	if a.isClosed() {
		_ = sess.Close()
	}

	var cause error
	defer func() {
		_ = sess.Close()
		_ = a.sessions.Unregister(sess.ID())
		metrics.TransportConnections.Dec()
		sess.OnDisconnected(cause)
		a.handler.OnClosed(sess, cause)
	}()

	sess.OnConnected()
	a.handler.OnConnected(sess)

	for {
		env, err := sess.ReadEnvelope()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if errors.Is(err, network.ErrDecodeFailed) || errors.Is(err, network.ErrFrameTooLarge) {
				a.handler.OnError(sess, network.StageDecode, err)
				continue
			}
			a.handler.OnError(sess, network.StageRecvRaw, err)
			cause = err
			return
		}
		a.handler.OnMessage(sess, env)
	}
}
