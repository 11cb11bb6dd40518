package connector

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/codec"
	"github.com/lk2023060901/imkit-go/internal/network/session"
	"github.com/lk2023060901/imkit-go/pkg/log"
	"github.com/lk2023060901/imkit-go/pkg/metrics"
)

// Config 描述客户端连接的基础配置。
//
// 拨号失败时按指数退避重试，MaxRetries 为 0 表示只拨号一次。
// 重试只发生在建立连接阶段，连接建立后的断开不会自动重连。
type Config struct {
	Session session.Config

	HandshakeTimeout time.Duration
	MaxRetries       uint64
	InitialInterval  time.Duration
	MaxInterval      time.Duration

	// Codec 为空时使用默认 JSON Codec。
	Codec codec.Codec
}

func defaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		MaxRetries:       3,
		InitialInterval:  200 * time.Millisecond,
		MaxInterval:      2 * time.Second,
	}
}

// Handler 描述客户端在各阶段的回调能力。
//
// OnMessage 在连接的读协程中串行调用。
type Handler interface {
	OnConnected(conn *Conn)
	OnMessage(conn *Conn, env *codec.Envelope)
	OnClosed(conn *Conn, err error)
	OnError(conn *Conn, stage network.Stage, err error)
}

// Connector 为基于 gorilla/websocket 的拨号器。
type Connector struct {
	cfg    Config
	dialer *websocket.Dialer
}

// New 创建一个 Connector，未设置的字段使用默认值。
func New(cfg Config) *Connector {
	def := defaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.New(codec.Options{})
	}
	return &Connector{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Conn 为客户端侧的一条 websocket 连接。
type Conn struct {
	*session.BaseSession

	done chan struct{}
	err  error
}

// Done 在连接的读循环退出且 OnClosed 已调用后关闭。
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err 返回连接关闭的原因，需在 Done 关闭后调用。
func (c *Conn) Err() error {
	return c.err
}

// Dial 拨号并建立连接，ctx 只约束拨号过程，不影响连接的生命周期。
func (c *Connector) Dial(ctx context.Context, url string, h Handler, header http.Header) (*Conn, error) {
	if h == nil {
		return nil, errors.New("connector: handler is nil")
	}

	wsConn, err := c.dial(ctx, url, header)
	if err != nil {
		return nil, err
	}

	conn := &Conn{done: make(chan struct{})}
	cfg := c.cfg.Session
	userOnError := cfg.OnError
	cfg.OnError = func(stage network.Stage, err error) {
		h.OnError(conn, stage, err)
		if userOnError != nil {
			userOnError(stage, err)
		}
	}
	conn.BaseSession = session.NewBaseSession(context.WithoutCancel(ctx), 0, wsConn, c.cfg.Codec, cfg)
	metrics.TransportConnections.Inc()

	h.OnConnected(conn)
	conn.OnConnected()
	c.run(conn, h)
	return conn, nil
}

func (c *Connector) dial(ctx context.Context, url string, header http.Header) (*websocket.Conn, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialInterval
	policy.MaxInterval = c.cfg.MaxInterval
	policy.MaxElapsedTime = 0

	var wsConn *websocket.Conn
	op := func() error {
		conn, resp, err := c.dialer.DialContext(ctx, url, header)
		if err != nil {
			metrics.TransportDialTotal.WithLabelValues(metrics.FailLabel).Inc()
			err = errors.Wrapf(network.ErrHandshakeFailed, "dial %s: %v", url, err)
			// 服务端明确拒绝升级时不再重试。
			if resp != nil && resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}
		metrics.TransportDialTotal.WithLabelValues(metrics.SuccessLabel).Inc()
		wsConn = conn
		return nil
	}
	notify := func(err error, next time.Duration) {
		log.Ctx(ctx).Warn("dial failed, retrying", zap.String("url", url), zap.Duration("next", next), zap.Error(err))
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, c.cfg.MaxRetries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return wsConn, nil
}

// run 启动读循环，并在读循环结束或会话关闭时统一收尾。
func (c *Connector) run(conn *Conn, h Handler) {
	g, gctx := errgroup.WithContext(conn.Context())
	g.Go(func() error {
		for {
			env, err := conn.ReadEnvelope()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				if errors.Is(err, network.ErrDecodeFailed) || errors.Is(err, network.ErrFrameTooLarge) {
					h.OnError(conn, network.StageDecode, err)
					continue
				}
				h.OnError(conn, network.StageRecvRaw, err)
				return err
			}
			h.OnMessage(conn, env)
		}
	})
	g.Go(func() error {
		// 读循环退出或会话被关闭时，确保底层连接关闭以解除另一侧的阻塞。
		<-gctx.Done()
		return conn.Close()
	})

	go func() {
		err := g.Wait()
		metrics.TransportConnections.Dec()
		conn.err = err
		conn.OnDisconnected(err)
		h.OnClosed(conn, err)
		close(conn.done)
	}()
}
