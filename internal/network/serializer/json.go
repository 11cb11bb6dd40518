package serializer

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/imkit-go/internal/json"
)

var errInvalidJSON = errors.New("serializer: invalid json")

// JSONSerializer 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
type JSONSerializer struct{}

// 编译期断言：确保 JSONSerializer 实现了 Serializer 接口。
var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONSerializer) Unmarshal(data []byte, v any) error {
	if !json.Valid(data) {
		return errInvalidJSON
	}
	return json.Unmarshal(data, v)
}
