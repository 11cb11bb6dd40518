package imkit

import (
	"fmt"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
)

// Phase 为会话管理器的状态机阶段。
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseInitialized
	PhaseConnecting
	PhaseConnected
	PhaseDisconnected
)

var phaseNames = map[Phase]string{
	PhaseUninitialized: "uninitialized",
	PhaseInitialized:   "initialized",
	PhaseConnecting:    "connecting",
	PhaseConnected:     "connected",
	PhaseDisconnected:  "disconnected",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// hasIdentity 表示该阶段下会话持有用户身份。
func (p Phase) hasIdentity() bool {
	return p == PhaseConnecting || p == PhaseConnected
}

type (
	ConnectionState = transport.ConnectionState
	ConnectionEvent = transport.ConnectionEvent
)

// reconcile 根据传输层推送的连接状态计算新的阶段。
// detach 为 true 表示需要清除身份并推进会话纪元。
func reconcile(current Phase, state ConnectionState) (next Phase, detach bool) {
	switch state {
	case transport.ConnectionStateConnected:
		if current == PhaseConnecting {
			return PhaseConnected, false
		}
	case transport.ConnectionStateDisconnected:
		if current.hasIdentity() {
			return PhaseDisconnected, true
		}
	}
	return current, false
}
