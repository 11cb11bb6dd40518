package ws

import (
	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
)

// SDKVersion 为登录请求携带的 SDK 版本号，服务端据此判断是否支持该客户端。
const SDKVersion = "1.2.0"

// 请求与推送使用的协议名。
const (
	OpLogin        = "login"
	OpLogout       = "logout"
	OpCreateGroup  = "group.create"
	OpJoinGroup    = "group.join"
	OpUpdateAvatar = "user.avatar.update"
	OpQueryUsers   = "user.query"

	OpConnectionState = "event.connection_state"
	OpUnreadTotal     = "event.unread_total"
)

type LoginRequest struct {
	AppID      uint32             `json:"app_id"`
	AppSign    string             `json:"app_sign"`
	SDKVersion string             `json:"sdk_version"`
	User       transport.UserInfo `json:"user"`
}

type CreateGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

type CreateGroupResponse struct {
	Group      *transport.GroupFullInfo  `json:"group,omitempty"`
	ErrorUsers []transport.ErrorUserInfo `json:"error_users,omitempty"`
}

type JoinGroupRequest struct {
	GroupID string `json:"group_id"`
}

type JoinGroupResponse struct {
	Group *transport.GroupFullInfo `json:"group,omitempty"`
}

type UpdateAvatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

type UpdateAvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
}

type QueryUsersRequest struct {
	UserIDs []string `json:"user_ids"`
}

type QueryUsersResponse struct {
	Users      []transport.UserFullInfo  `json:"users,omitempty"`
	ErrorUsers []transport.ErrorUserInfo `json:"error_users,omitempty"`
}

// ConnectionStateEvent 为服务端推送的连接状态变化。
type ConnectionStateEvent struct {
	State transport.ConnectionState `json:"state"`
	Event transport.ConnectionEvent `json:"event"`
}

// UnreadTotalEvent 为服务端推送的会话未读总数。
type UnreadTotalEvent struct {
	Total uint32 `json:"total"`
}
