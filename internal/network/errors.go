// Package network 提供基于 websocket 文本帧与 JSON 信封的会话、路由、接入与拨号能力。
package network

import "github.com/cockroachdb/errors"

// Stage 表示网络收发链路中的处理阶段。
//
// 主要用于在回调中标记错误发生的位置，便于监控与排查。
type Stage string

const (
	StageHandshake Stage = "handshake"
	StageRecvRaw   Stage = "recv_raw" // 读取 websocket 帧
	StageDecode    Stage = "decode"   // 帧 -> Envelope
	StageDispatch  Stage = "dispatch" // Envelope -> 业务处理
	StageEncode    Stage = "encode"   // Envelope -> 帧
	StageSend      Stage = "send"     // 写出 websocket 帧
)

// 统一的错误码常量，用于日志与监控。
const (
	ErrCodeHandshakeFailed = "network:handshake_failed"
	ErrCodeRecvFailed      = "network:recv_failed"
	ErrCodeDecodeFailed    = "network:decode_failed"
	ErrCodeDispatchFailed  = "network:dispatch_failed"
	ErrCodeEncodeFailed    = "network:encode_failed"
	ErrCodeSendFailed      = "network:send_failed"
	ErrCodeFrameTooLarge   = "network:frame_too_large"
	ErrCodeSessionClosed   = "network:session_closed"
)

var (
	// ErrHandshakeFailed 表示 websocket 升级或拨号失败。
	ErrHandshakeFailed = errors.New(ErrCodeHandshakeFailed)

	// ErrRecvFailed 表示读取底层连接时发生错误。
	ErrRecvFailed = errors.New(ErrCodeRecvFailed)

	// ErrDecodeFailed 表示帧无法解码为 Envelope。
	ErrDecodeFailed = errors.New(ErrCodeDecodeFailed)

	// ErrDispatchFailed 表示 Envelope 无法分发给业务处理。
	ErrDispatchFailed = errors.New(ErrCodeDispatchFailed)

	// ErrEncodeFailed 表示 Envelope 编码失败。
	ErrEncodeFailed = errors.New(ErrCodeEncodeFailed)

	// ErrSendFailed 表示写出帧失败。
	ErrSendFailed = errors.New(ErrCodeSendFailed)

	// ErrFrameTooLarge 表示帧超过了配置的最大长度。
	ErrFrameTooLarge = errors.New(ErrCodeFrameTooLarge)

	// ErrSessionClosed 表示会话已关闭。
	ErrSessionClosed = errors.New(ErrCodeSessionClosed)
)
