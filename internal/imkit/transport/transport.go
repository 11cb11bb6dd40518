// Package transport 定义会话管理器依赖的消息传输能力。
//
// Transport 由具体实现（内存、websocket 等）提供，管理器只通过该接口与后端交互，
// 不关心底层协议。所有方法都可能被并发调用。
package transport

//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=../../../mocks/mock_transport.go -package=mocks

import (
	"context"
)

// AppConfig 为创建传输层实例所需的应用凭证。
type AppConfig struct {
	AppID   uint32
	AppSign string
}

// Factory 根据应用凭证创建传输层实例。
type Factory func(cfg AppConfig) (Transport, error)

// EventHandler 接收传输层主动推送的事件。
// 回调可能来自传输层内部的任意协程，实现方不应长时间阻塞。
type EventHandler interface {
	OnConnectionStateChanged(state ConnectionState, event ConnectionEvent)
	OnConversationTotalUnreadMessageCountUpdated(total uint32)
}

// Transport 抽象了与消息后端之间的请求/响应及事件推送能力。
//
// 失败时返回的错误建议使用 *Error 携带后端错误码。
type Transport interface {
	// Login 以 user 的身份建立连接，返回 nil 表示登录成功。
	Login(ctx context.Context, user UserInfo) error
	// Logout 断开当前连接。
	Logout(ctx context.Context) error

	// CreateGroup 创建群组并邀请 memberIDs，返回群信息及邀请失败的成员。
	CreateGroup(ctx context.Context, name string, memberIDs []string) (*GroupFullInfo, []ErrorUserInfo, error)
	// JoinGroup 加入已存在的群组。
	JoinGroup(ctx context.Context, groupID string) (*GroupFullInfo, error)

	// UpdateUserAvatarURL 更新当前用户头像，返回后端确认的头像地址。
	UpdateUserAvatarURL(ctx context.Context, avatarURL string) (string, error)
	// QueryUsersInfo 查询用户信息，返回查询成功的用户及失败的用户。
	QueryUsersInfo(ctx context.Context, userIDs []string) ([]UserFullInfo, []ErrorUserInfo, error)

	// SetEventHandler 注册事件回调，传入 nil 表示取消注册。
	SetEventHandler(h EventHandler)
	// Close 释放传输层资源，之后的调用均返回错误。
	Close() error
}
