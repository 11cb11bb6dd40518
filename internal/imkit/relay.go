package imkit

import (
	"weak"

	"go.uber.org/atomic"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
)

// Listener 接收会话管理器转发的推送事件。
//
// 回调在管理器的串行投递协程上执行，此时会话状态已经根据事件完成调整，
// 回调内部可以直接调用管理器的方法。
type Listener interface {
	OnConnectionStateChange(state ConnectionState, event ConnectionEvent)
	OnTotalUnreadMessageCountChange(total uint32)
}

// eventRelay 为单槽位的监听者注册表，监听者以弱引用持有。
type eventRelay struct {
	slot atomic.Pointer[func() Listener]
}

func (r *eventRelay) set(get func() Listener) {
	r.slot.Store(&get)
}

func (r *eventRelay) clear() {
	r.slot.Store(nil)
}

// listener 返回当前监听者，未注册或已被回收时返回 nil。
func (r *eventRelay) listener() Listener {
	get := r.slot.Load()
	if get == nil {
		return nil
	}
	return (*get)()
}

// SetListener 注册 m 的监听者，替换之前注册的监听者。
//
// 管理器只持有 l 的弱引用，调用方需要自行保持 l 存活；l 被回收后事件会被丢弃。
// 传入 nil 等价于 ClearListener。
func SetListener[T any, P interface {
	*T
	Listener
}](m *Manager, l P) {
	if l == nil {
		m.ClearListener()
		return
	}
	wp := weak.Make((*T)(l))
	m.relay.set(func() Listener {
		if p := wp.Value(); p != nil {
			return P(p)
		}
		return nil
	})
}

// ClearListener 取消当前监听者。
func (m *Manager) ClearListener() {
	m.relay.clear()
}

// eventSink 将传输层事件投递到管理器的串行队列。
type eventSink struct {
	m *Manager
}

var _ transport.EventHandler = (*eventSink)(nil)

func (s *eventSink) OnConnectionStateChanged(state transport.ConnectionState, event transport.ConnectionEvent) {
	epoch := s.m.eventEpoch()
	s.m.deliverEvent(eventKindConnectionState, func() {
		s.m.applyConnectionEvent(epoch, state, event)
	})
}

func (s *eventSink) OnConversationTotalUnreadMessageCountUpdated(total uint32) {
	s.m.deliverEvent(eventKindUnreadTotal, func() {
		s.m.relayUnreadTotal(total)
	})
}
