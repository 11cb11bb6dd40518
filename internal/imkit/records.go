package imkit

import (
	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
)

// UserInfo 为本地缓存的用户资料。
//
// UserID 创建后不可变；AvatarURL 只有在后端确认更新后才会被修改。
type UserInfo struct {
	UserID    string `validate:"required,max=32,printascii,excludesall=0x20"`
	UserName  string `validate:"max=256"`
	AvatarURL string `validate:"max=2048"`
}

// GroupInfo 为群组信息快照，管理器不维护群组缓存。
type GroupInfo struct {
	GroupID        string
	GroupName      string
	GroupAvatarURL string
}

// GroupInfoFromFullInfo 将传输层的群组完整信息转换为 GroupInfo。
// 任意层级为 nil 时对应字段为空字符串。
func GroupInfoFromFullInfo(info *transport.GroupFullInfo) GroupInfo {
	if info == nil || info.BaseInfo == nil {
		return GroupInfo{}
	}
	return GroupInfo{
		GroupID:        info.BaseInfo.GroupID,
		GroupName:      info.BaseInfo.GroupName,
		GroupAvatarURL: info.BaseInfo.GroupAvatarURL,
	}
}

// UserInfoFromFullInfo 将传输层的用户完整信息转换为 UserInfo。
func UserInfoFromFullInfo(info *transport.UserFullInfo) UserInfo {
	if info == nil {
		return UserInfo{}
	}
	user := UserInfoFromWire(info.BaseInfo)
	user.AvatarURL = info.UserAvatarURL
	return user
}

// UserInfoFromWire 将传输层的用户基础信息转换为 UserInfo，头像为空。
func UserInfoFromWire(info *transport.UserInfo) UserInfo {
	if info == nil {
		return UserInfo{}
	}
	return UserInfo{
		UserID:   info.UserID,
		UserName: info.UserName,
	}
}

func (u UserInfo) toWire() transport.UserInfo {
	return transport.UserInfo{
		UserID:   u.UserID,
		UserName: u.UserName,
	}
}
