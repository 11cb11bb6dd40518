// Package imbackend 为参考实现的即时通讯后端，提供用户/群组目录及 websocket 服务端。
//
// 它只服务于示例与测试：数据保存在内存中，进程退出即丢失。
package imbackend

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
	"github.com/lk2023060901/imkit-go/pkg/util/typeutil"
)

// GroupIDGenerator 生成新的群组 ID。
type GroupIDGenerator func() string

// UUIDGroupIDs 以去掉连字符的 UUID 作为群组 ID，长度为 32。
func UUIDGroupIDs() GroupIDGenerator {
	return func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
}

// SequentialGroupIDs 依次生成 g1、g2 ... 形式的群组 ID。
func SequentialGroupIDs() GroupIDGenerator {
	var (
		mu  sync.Mutex
		seq int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("g%d", seq)
	}
}

type userRecord struct {
	info      transport.UserInfo
	avatarURL string
	extended  string
}

func (u *userRecord) fullInfo() transport.UserFullInfo {
	base := u.info
	return transport.UserFullInfo{
		BaseInfo:      &base,
		UserAvatarURL: u.avatarURL,
		ExtendedData:  u.extended,
	}
}

type groupRecord struct {
	info    transport.GroupInfo
	notice  string
	members typeutil.Set[string]
}

func (g *groupRecord) fullInfo() *transport.GroupFullInfo {
	base := g.info
	return &transport.GroupFullInfo{
		BaseInfo:    &base,
		GroupNotice: g.notice,
	}
}

// DirectoryOption 为 Directory 的可选配置项。
type DirectoryOption func(*Directory)

// WithGroupIDGenerator 指定群组 ID 生成方式，默认为 UUIDGroupIDs。
func WithGroupIDGenerator(gen GroupIDGenerator) DirectoryOption {
	return func(d *Directory) {
		if gen != nil {
			d.nextGroupID = gen
		}
	}
}

// WithApp 注册一组应用凭证。未注册任何应用时接受所有凭证。
func WithApp(appID uint32, appSign string) DirectoryOption {
	return func(d *Directory) {
		d.apps[appID] = appSign
	}
}

// WithUsers 预先注册用户。
func WithUsers(users ...transport.UserInfo) DirectoryOption {
	return func(d *Directory) {
		for _, u := range users {
			d.users[u.UserID] = &userRecord{info: u}
		}
	}
}

// Directory 保存用户、群组与在线状态，所有方法并发安全。
type Directory struct {
	mu          sync.RWMutex
	apps        map[uint32]string
	users       map[string]*userRecord
	groups      map[string]*groupRecord
	online      typeutil.Set[string]
	nextGroupID GroupIDGenerator
}

// NewDirectory 创建一个空目录。
func NewDirectory(opts ...DirectoryOption) *Directory {
	d := &Directory{
		apps:        make(map[uint32]string),
		users:       make(map[string]*userRecord),
		groups:      make(map[string]*groupRecord),
		online:      typeutil.NewSet[string](),
		nextGroupID: UUIDGroupIDs(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Authenticate 校验应用凭证。
func (d *Directory) Authenticate(appID uint32, appSign string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.apps) == 0 {
		return nil
	}
	if sign, ok := d.apps[appID]; !ok || sign != appSign {
		return transport.NewError(transport.CodeAuthFailed, "app %d rejected", appID)
	}
	return nil
}

// Login 将用户标记为在线。首次登录的用户会被自动注册，已注册用户的昵称被更新。
func (d *Directory) Login(user transport.UserInfo) error {
	if user.UserID == "" {
		return transport.NewError(transport.CodeInvalidParameter, "empty user id")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.online.Contain(user.UserID) {
		return transport.NewError(transport.CodeAlreadyLoggedIn, "user %s already online", user.UserID)
	}
	if rec, ok := d.users[user.UserID]; ok {
		if user.UserName != "" {
			rec.info.UserName = user.UserName
		}
	} else {
		d.users[user.UserID] = &userRecord{info: user}
	}
	d.online.Insert(user.UserID)
	return nil
}

// Logout 将用户标记为离线，返回用户此前是否在线。
func (d *Directory) Logout(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.online.Contain(userID) {
		return false
	}
	d.online.Remove(userID)
	return true
}

// IsOnline 返回用户是否在线。
func (d *Directory) IsOnline(userID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.online.Contain(userID)
}

// CreateGroup 由 ownerID 创建群组，未注册的成员加入失败但不影响群组创建。
func (d *Directory) CreateGroup(ownerID, name string, memberIDs []string) (*transport.GroupFullInfo, []transport.ErrorUserInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireOnlineLocked(ownerID); err != nil {
		return nil, nil, err
	}

	members, missing := lo.FilterReject(lo.Uniq(memberIDs), func(id string, _ int) bool {
		_, ok := d.users[id]
		return ok
	})

	g := &groupRecord{
		info:    transport.GroupInfo{GroupID: d.nextGroupID(), GroupName: name},
		members: typeutil.NewSet(ownerID),
	}
	g.members.Insert(members...)
	d.groups[g.info.GroupID] = g

	errUsers := lo.Map(missing, func(id string, _ int) transport.ErrorUserInfo {
		return transport.ErrorUserInfo{UserID: id, Reason: uint32(transport.CodeUserNotExist)}
	})
	return g.fullInfo(), errUsers, nil
}

// JoinGroup 将 userID 加入群组，重复加入视为成功。
func (d *Directory) JoinGroup(userID, groupID string) (*transport.GroupFullInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireOnlineLocked(userID); err != nil {
		return nil, err
	}
	g, ok := d.groups[groupID]
	if !ok {
		return nil, transport.NewError(transport.CodeGroupNotExist, "group %s not exist", groupID)
	}
	g.members.Insert(userID)
	return g.fullInfo(), nil
}

// GroupMembers 返回群成员，群组不存在时返回 false。
func (d *Directory) GroupMembers(groupID string) ([]string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	g, ok := d.groups[groupID]
	if !ok {
		return nil, false
	}
	return g.members.Collect(), true
}

// UpdateAvatar 更新用户头像并返回生效的地址。
func (d *Directory) UpdateAvatar(userID, avatarURL string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.requireOnlineLocked(userID); err != nil {
		return "", err
	}
	d.users[userID].avatarURL = avatarURL
	return avatarURL, nil
}

// QueryUsers 按给定顺序返回已注册用户，未注册的用户放入失败列表。
func (d *Directory) QueryUsers(callerID string, userIDs []string) ([]transport.UserFullInfo, []transport.ErrorUserInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.requireOnlineLocked(callerID); err != nil {
		return nil, nil, err
	}

	var (
		infos    []transport.UserFullInfo
		errUsers []transport.ErrorUserInfo
	)
	for _, id := range userIDs {
		rec, ok := d.users[id]
		if !ok {
			errUsers = append(errUsers, transport.ErrorUserInfo{UserID: id, Reason: uint32(transport.CodeUserNotExist)})
			continue
		}
		infos = append(infos, rec.fullInfo())
	}
	return infos, errUsers, nil
}

func (d *Directory) requireOnlineLocked(userID string) error {
	if userID == "" || !d.online.Contain(userID) {
		return transport.NewError(transport.CodeNotLoggedIn, "user %q not logged in", userID)
	}
	return nil
}
