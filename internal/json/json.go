// Package json 统一项目内的 JSON 编解码入口，底层使用 bytedance/sonic。
package json

import (
	stdjson "encoding/json"

	"github.com/bytedance/sonic"
)

var (
	json = sonic.ConfigStd

	Marshal       = json.Marshal
	Unmarshal     = json.Unmarshal
	MarshalIndent = json.MarshalIndent
	NewDecoder    = json.NewDecoder
	NewEncoder    = json.NewEncoder
	Valid         = json.Valid
)

// RawMessage 为延迟解码的原始 JSON 片段。
type RawMessage = stdjson.RawMessage
