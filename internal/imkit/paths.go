package imkit

import (
	"os"
	"path/filepath"
)

const (
	imageDir = "image"
	voiceDir = "voice"
	videoDir = "video"
	fileDir  = "file"
)

// MediaPaths 根据存储根目录计算各类媒体文件的目录。
// 只做路径拼接，不访问文件系统，也不创建目录。
type MediaPaths struct {
	root string
}

// NewMediaPaths 创建以 root 为根目录的 MediaPaths。
func NewMediaPaths(root string) MediaPaths {
	return MediaPaths{root: root}
}

// Root 返回存储根目录。
func (p MediaPaths) Root() string {
	return p.root
}

// ImagePath 返回图片消息的存储目录。
func (p MediaPaths) ImagePath() string {
	return filepath.Join(p.root, imageDir)
}

// VoicePath 返回语音消息的存储目录。
func (p MediaPaths) VoicePath() string {
	return filepath.Join(p.root, voiceDir)
}

// VideoPath 返回视频消息的存储目录。
func (p MediaPaths) VideoPath() string {
	return filepath.Join(p.root, videoDir)
}

// FilePath 返回文件消息的存储目录。
func (p MediaPaths) FilePath() string {
	return filepath.Join(p.root, fileDir)
}

// defaultStorageRoot 返回 <用户缓存目录>/imkit，无法获取缓存目录时退回临时目录。
func defaultStorageRoot() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "imkit")
}
