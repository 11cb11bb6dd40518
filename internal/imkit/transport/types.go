package transport

import (
	"fmt"
)

// ConnectionState 为传输层连接状态。
type ConnectionState int32

const (
	ConnectionStateDisconnected ConnectionState = iota
	ConnectionStateConnecting
	ConnectionStateConnected
	ConnectionStateReconnecting
)

var connectionStateNames = map[ConnectionState]string{
	ConnectionStateDisconnected: "disconnected",
	ConnectionStateConnecting:   "connecting",
	ConnectionStateConnected:    "connected",
	ConnectionStateReconnecting: "reconnecting",
}

func (s ConnectionState) String() string {
	if name, ok := connectionStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("ConnectionState(%d)", int32(s))
}

// ConnectionEvent 为导致连接状态变化的原因。
type ConnectionEvent int32

const (
	ConnectionEventSuccess ConnectionEvent = iota
	ConnectionEventActiveLogin
	ConnectionEventLoginTimeout
	ConnectionEventLoginInterrupted
	ConnectionEventKickedOut
	ConnectionEventTokenExpired
	ConnectionEventUnregistered
)

var connectionEventNames = map[ConnectionEvent]string{
	ConnectionEventSuccess:          "success",
	ConnectionEventActiveLogin:      "active_login",
	ConnectionEventLoginTimeout:     "login_timeout",
	ConnectionEventLoginInterrupted: "login_interrupted",
	ConnectionEventKickedOut:        "kicked_out",
	ConnectionEventTokenExpired:     "token_expired",
	ConnectionEventUnregistered:     "unregistered",
}

func (e ConnectionEvent) String() string {
	if name, ok := connectionEventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("ConnectionEvent(%d)", int32(e))
}

// UserInfo 为用户基础信息。
type UserInfo struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name,omitempty"`
}

// UserFullInfo 为用户完整信息。
type UserFullInfo struct {
	BaseInfo      *UserInfo `json:"base_info,omitempty"`
	UserAvatarURL string    `json:"user_avatar_url,omitempty"`
	ExtendedData  string    `json:"extended_data,omitempty"`
}

// GroupInfo 为群组基础信息。
type GroupInfo struct {
	GroupID        string `json:"group_id"`
	GroupName      string `json:"group_name,omitempty"`
	GroupAvatarURL string `json:"group_avatar_url,omitempty"`
}

// GroupFullInfo 为群组完整信息。
type GroupFullInfo struct {
	BaseInfo    *GroupInfo `json:"base_info,omitempty"`
	GroupNotice string     `json:"group_notice,omitempty"`
}

// ErrorUserInfo 描述单个用户操作失败的原因。
type ErrorUserInfo struct {
	UserID string `json:"user_id"`
	Reason uint32 `json:"reason"`
}

// 后端错误码。
const (
	CodeUnknown          int32 = 6000000
	CodeInvalidParameter int32 = 6000001
	CodeUserNotExist     int32 = 6000002
	CodeGroupNotExist    int32 = 6000003
	CodeNotLoggedIn      int32 = 6000004
	CodeAlreadyLoggedIn  int32 = 6000005
	CodeClosed           int32 = 6000006
	CodeTimeout          int32 = 6000007
	CodeUnsupportedSDK   int32 = 6000008
	CodeAuthFailed       int32 = 6000009
)

// Error 为传输层返回的错误，携带后端错误码。
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// NewError 创建一个传输层错误。
func NewError(code int32, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport error %d: %s", e.Code, e.Message)
}

// ErrorCode 返回后端错误码。
func (e *Error) ErrorCode() int32 {
	return e.Code
}

// ErrorMessage 返回不带错误码前缀的错误描述。
func (e *Error) ErrorMessage() string {
	return e.Message
}
