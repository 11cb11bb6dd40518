package imkit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
)

func TestGroupInfoFromFullInfo(t *testing.T) {
	info := &transport.GroupFullInfo{
		BaseInfo: &transport.GroupInfo{GroupID: "g1", GroupName: "Team", GroupAvatarURL: "https://a/g.png"},
	}
	assert.Equal(t, GroupInfo{GroupID: "g1", GroupName: "Team", GroupAvatarURL: "https://a/g.png"}, GroupInfoFromFullInfo(info))

	info.BaseInfo.GroupAvatarURL = ""
	assert.Equal(t, "", GroupInfoFromFullInfo(info).GroupAvatarURL)

	assert.Equal(t, GroupInfo{}, GroupInfoFromFullInfo(nil))
	assert.Equal(t, GroupInfo{}, GroupInfoFromFullInfo(&transport.GroupFullInfo{}))
}

func TestUserInfoConversions(t *testing.T) {
	full := &transport.UserFullInfo{
		BaseInfo:      &transport.UserInfo{UserID: "u1", UserName: "Alice"},
		UserAvatarURL: "https://a/1.png",
	}
	assert.Equal(t, UserInfo{UserID: "u1", UserName: "Alice", AvatarURL: "https://a/1.png"}, UserInfoFromFullInfo(full))
	assert.Equal(t, UserInfo{AvatarURL: "x"}, UserInfoFromFullInfo(&transport.UserFullInfo{UserAvatarURL: "x"}))
	assert.Equal(t, UserInfo{}, UserInfoFromFullInfo(nil))
	assert.Equal(t, UserInfo{}, UserInfoFromWire(nil))

	u := UserInfo{UserID: "u1", UserName: "Alice", AvatarURL: "https://a/1.png"}
	assert.Equal(t, transport.UserInfo{UserID: "u1", UserName: "Alice"}, u.toWire())
}

func TestMediaPaths(t *testing.T) {
	root := filepath.Join("data", "imkit")
	p := NewMediaPaths(root)
	assert.Equal(t, root, p.Root())
	assert.Equal(t, filepath.Join(root, "image"), p.ImagePath())
	assert.Equal(t, filepath.Join(root, "voice"), p.VoicePath())
	assert.Equal(t, filepath.Join(root, "video"), p.VideoPath())
	assert.Equal(t, filepath.Join(root, "file"), p.FilePath())

	assert.Equal(t, "image", NewMediaPaths("").ImagePath())
	assert.Equal(t, "imkit", filepath.Base(defaultStorageRoot()))
}
