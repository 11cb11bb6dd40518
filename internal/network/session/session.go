package session

import (
	"context"
	"net"

	"github.com/lk2023060901/imkit-go/internal/network/codec"
)

// Session 抽象了一条 websocket 会话。
//
// 约定：
//   - 每个 Session 对应一条底层 websocket 连接；
//   - Session ID 使用 64 位无符号整型，由接入层分配，在进程内唯一；
//   - 框架层只关心会话本身，用户等业务概念通过 Store/Load 附加在会话上。
type Session interface {
	// ID 返回该会话在进程内的唯一标识。
	ID() uint64

	// Context 返回与该会话关联的上下文，会话关闭时触发 Done。
	Context() context.Context

	// RemoteAddr 返回远端地址。
	RemoteAddr() net.Addr

	// LocalAddr 返回本端地址。
	LocalAddr() net.Addr

	// Send 将信封投递到会话的发送队列，由发送协程按顺序写出。
	//
	// 会话已关闭时返回 network.ErrSessionClosed。
	Send(env *codec.Envelope) error

	// Store 在会话上附加一个键值。
	Store(key, value any)

	// Load 读取会话上附加的键值。
	Load(key any) (value any, ok bool)

	// Close 主动关闭该会话，多次调用是幂等的。
	Close() error

	// OnConnected 在会话建立后由接入层调用一次。
	OnConnected()

	// OnDisconnected 在会话结束时由接入层调用一次，err 为断开原因，正常关闭时为 nil。
	OnDisconnected(err error)
}
