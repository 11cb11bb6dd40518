package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/acceptor"
	"github.com/lk2023060901/imkit-go/internal/network/codec"
	"github.com/lk2023060901/imkit-go/internal/network/session"
)

const waitTimeout = 3 * time.Second

// echoServer 原样回复每个请求，收到 "bye" 时主动关闭会话。
type echoServer struct {
	mu     sync.Mutex
	closed []uint64
}

func (e *echoServer) OnConnected(session.Session) {}

func (e *echoServer) OnMessage(sess session.Session, env *codec.Envelope) {
	if env.Op == "bye" {
		_ = sess.Close()
		return
	}
	_ = sess.Send(&codec.Envelope{ID: env.ID, Op: env.Op, Payload: env.Payload})
}

func (e *echoServer) OnClosed(sess session.Session, _ error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = append(e.closed, sess.ID())
}

func (e *echoServer) OnError(session.Session, network.Stage, error) {}

type recorder struct {
	connected chan struct{}
	messages  chan *codec.Envelope
	closed    chan error
}

func newRecorder() *recorder {
	return &recorder{
		connected: make(chan struct{}, 1),
		messages:  make(chan *codec.Envelope, 16),
		closed:    make(chan error, 1),
	}
}

func (r *recorder) OnConnected(*Conn)                      { r.connected <- struct{}{} }
func (r *recorder) OnMessage(_ *Conn, env *codec.Envelope) { r.messages <- env }
func (r *recorder) OnClosed(_ *Conn, err error)            { r.closed <- err }
func (r *recorder) OnError(*Conn, network.Stage, error)    {}

func startEcho(t *testing.T) (*acceptor.Acceptor, *echoServer, string) {
	srv := &echoServer{}
	a, err := acceptor.New(acceptor.Config{}, srv, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(a)
	t.Cleanup(func() {
		_ = a.Close()
		ts.Close()
	})
	return a, srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestDialRoundTrip(t *testing.T) {
	a, _, url := startEcho(t)
	rec := newRecorder()

	conn, err := New(Config{}).Dial(context.Background(), url, rec, nil)
	require.NoError(t, err)
	<-rec.connected

	require.NoError(t, conn.Send(&codec.Envelope{ID: "r1", Op: "ping", Payload: []byte(`{"n":1}`)}))
	select {
	case env := <-rec.messages:
		assert.Equal(t, "r1", env.ID)
		assert.Equal(t, "ping", env.Op)
		assert.JSONEq(t, `{"n":1}`, string(env.Payload))
	case <-time.After(waitTimeout):
		t.Fatal("no echo received")
	}
	assert.Eventually(t, func() bool { return a.Sessions().Count() == 1 }, waitTimeout, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	select {
	case <-conn.Done():
	case <-time.After(waitTimeout):
		t.Fatal("connection not finished")
	}
	assert.NoError(t, conn.Err())
	assert.Eventually(t, func() bool { return a.Sessions().Count() == 0 }, waitTimeout, 10*time.Millisecond)
	assert.ErrorIs(t, conn.Send(&codec.Envelope{Op: "ping"}), network.ErrSessionClosed)
}

func TestServerClose(t *testing.T) {
	_, srv, url := startEcho(t)
	rec := newRecorder()

	conn, err := New(Config{}).Dial(context.Background(), url, rec, nil)
	require.NoError(t, err)
	require.NoError(t, conn.Send(&codec.Envelope{Op: "bye"}))

	select {
	case err := <-rec.closed:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("close not observed")
	}
	<-conn.Done()

	assert.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.closed) == 1
	}, waitTimeout, 10*time.Millisecond)
}

func TestDialRetriesExhausted(t *testing.T) {
	c := New(Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond})

	_, err := c.Dial(context.Background(), "ws://127.0.0.1:1/ws", newRecorder(), nil)
	assert.ErrorIs(t, err, network.ErrHandshakeFailed)
}

func TestDialRejected(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()
	c := New(Config{MaxRetries: 5, InitialInterval: time.Second})

	start := time.Now()
	_, err := c.Dial(context.Background(), "ws"+strings.TrimPrefix(ts.URL, "http"), newRecorder(), nil)
	assert.ErrorIs(t, err, network.ErrHandshakeFailed)
	assert.Less(t, time.Since(start), time.Second)
}
