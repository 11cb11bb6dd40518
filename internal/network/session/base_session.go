package session

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"

	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/codec"
	"github.com/lk2023060901/imkit-go/pkg/metrics"
)

const (
	// defaultSendQueueSize 为每个会话的发送队列容量。
	defaultSendQueueSize = 256
	closeWriteTimeout    = time.Second

	frameKindSend = "send"
	frameKindRecv = "recv"
)

// Config 描述单个会话的收发配置。
//
// ReadTimeout/WriteTimeout 为 0 表示不设置 deadline；PingInterval 为 0 表示不发送心跳。
// 开启心跳时 ReadTimeout 应大于 PingInterval，收到 pong 会顺延读超时。
type Config struct {
	SendQueueSize int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PingInterval  time.Duration

	// OnError 在发送协程遇到错误时被调用，可为 nil。
	OnError func(stage network.Stage, err error)
}

// BaseSession 提供了基于 gorilla/websocket 的 Session 基础实现。
//
// 发送统一经过 sendQueue 由单个协程写出，避免多协程并发写 conn；
// 读取由持有会话的接入层或拨号器通过 ReadEnvelope 在单个协程中完成。
// OnConnected/OnDisconnected 默认为空，方便在自定义 Session 中嵌入并覆写。
type BaseSession struct {
	id uint64

	ctx    context.Context
	cancel context.CancelFunc

	conn  *websocket.Conn
	codec codec.Codec
	cfg   Config

	remoteAddr net.Addr
	localAddr  net.Addr

	sendQueue chan *codec.Envelope
	values    sync.Map

	closeOnce sync.Once
	closeErr  error
}

var _ Session = (*BaseSession)(nil)

// NewBaseSession 创建一个会话并启动发送协程。
//
// parent 为 nil 时使用 context.Background()。
func NewBaseSession(parent context.Context, id uint64, conn *websocket.Conn, c codec.Codec, cfg Config) *BaseSession {
	if parent == nil {
		parent = context.Background()
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}
	ctx, cancel := context.WithCancel(parent)

	s := &BaseSession{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		conn:       conn,
		codec:      c,
		cfg:        cfg,
		remoteAddr: conn.RemoteAddr(),
		localAddr:  conn.LocalAddr(),
		sendQueue:  make(chan *codec.Envelope, cfg.SendQueueSize),
	}
	if cfg.ReadTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		})
	}
	go s.sendLoop()
	return s
}

func (s *BaseSession) ID() uint64 {
	return s.id
}

func (s *BaseSession) Context() context.Context {
	return s.ctx
}

func (s *BaseSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

func (s *BaseSession) LocalAddr() net.Addr {
	return s.localAddr
}

func (s *BaseSession) Codec() codec.Codec {
	return s.codec
}

// Send 实现 Session.Send。
func (s *BaseSession) Send(env *codec.Envelope) error {
	if env == nil {
		return errors.Wrap(network.ErrEncodeFailed, "session: envelope is nil")
	}
	select {
	case <-s.ctx.Done():
		return network.ErrSessionClosed
	default:
	}
	select {
	case <-s.ctx.Done():
		return network.ErrSessionClosed
	case s.sendQueue <- env:
		return nil
	}
}

func (s *BaseSession) Store(key, value any) {
	s.values.Store(key, value)
}

func (s *BaseSession) Load(key any) (any, bool) {
	return s.values.Load(key)
}

// ReadEnvelope 阻塞读取下一条信封，非文本帧会被跳过。
//
// 对端正常关闭或本端已关闭时返回 io.EOF；解码失败返回 network.ErrDecodeFailed，
// 此时连接仍可继续读取。
func (s *BaseSession) ReadEnvelope() (*codec.Envelope, error) {
	for {
		if s.cfg.ReadTimeout > 0 {
			if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
				return nil, errors.Wrapf(network.ErrRecvFailed, "%v", err)
			}
		}

		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil ||
				errors.Is(err, net.ErrClosed) ||
				websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, errors.Wrapf(network.ErrRecvFailed, "%v", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		metrics.TransportFrameTotal.WithLabelValues(frameKindRecv).Inc()
		return s.codec.Decode(data)
	}
}

// Close 实现 Session.Close。
func (s *BaseSession) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		deadline := time.Now().Add(closeWriteTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

func (s *BaseSession) OnConnected() {}

func (s *BaseSession) OnDisconnected(error) {}

// sendLoop 为每个会话启动的专职发送协程。
//
// 编码失败只丢弃当前信封；写出失败视为会话异常并关闭会话。
func (s *BaseSession) sendLoop() {
	var ping <-chan time.Time
	if s.cfg.PingInterval > 0 {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ping:
			deadline := time.Now().Add(closeWriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.reportError(network.StageSend, errors.Wrapf(network.ErrSendFailed, "ping: %v", err))
				_ = s.Close()
				return
			}
		case env := <-s.sendQueue:
			data, err := s.codec.Encode(env)
			if err != nil {
				s.reportError(network.StageEncode, err)
				continue
			}
			if err := s.write(data); err != nil {
				s.reportError(network.StageSend, err)
				_ = s.Close()
				return
			}
			metrics.TransportFrameTotal.WithLabelValues(frameKindSend).Inc()
		}
	}
}

func (s *BaseSession) write(data []byte) error {
	if s.cfg.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return errors.Wrapf(network.ErrSendFailed, "%v", err)
		}
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrapf(network.ErrSendFailed, "%v", err)
	}
	return nil
}

func (s *BaseSession) reportError(stage network.Stage, err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(stage, err)
	}
}
