//go:build tools
// +build tools

// Package tools 声明仅在开发期使用的工具依赖（例如 go generate 调用的 mockgen），
// 使其版本记录在 go.mod 中。
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
