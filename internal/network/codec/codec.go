package codec

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/imkit-go/internal/json"
	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/serializer"
)

// Envelope 为 websocket 文本帧中携带的协议信封。
//
// 约定：
//   - 请求由发起方分配唯一 ID，响应沿用请求的 ID 与 Op；
//   - 服务端主动推送的事件不带 ID；
//   - Code 为 0 表示成功，非 0 时 Message 描述失败原因，Payload 为空。
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Op      string          `json:"op"`
	Code    int32           `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// IsPush 表示该信封是否为不需要应答的推送。
func (e *Envelope) IsPush() bool {
	return e.ID == ""
}

// Codec 负责 Envelope 与 websocket 帧之间、业务对象与 Payload 之间的转换。
type Codec interface {
	// Encode 将信封编码为一帧数据。
	Encode(env *Envelope) ([]byte, error)

	// Decode 将一帧数据解码为信封，并校验 Op 不为空。
	Decode(data []byte) (*Envelope, error)

	// Pack 将 msg 序列化为 Payload 并构造信封，msg 为 nil 时 Payload 为空。
	Pack(id, op string, msg any) (*Envelope, error)

	// Unpack 将信封的 Payload 反序列化到 v，Payload 为空时不修改 v。
	Unpack(env *Envelope, v any) error
}

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	// Serializer 为空时使用 JSONSerializer。
	Serializer serializer.Serializer

	// MaxFrameSize 为单帧的最大字节数，0 表示不限制。
	MaxFrameSize int
}

type codec struct {
	ser     serializer.Serializer
	maxSize int
}

var _ Codec = (*codec)(nil)

// New 创建一个 Codec。
func New(opts Options) Codec {
	c := &codec{
		ser:     opts.Serializer,
		maxSize: opts.MaxFrameSize,
	}
	if c.ser == nil {
		c.ser = serializer.JSONSerializer{}
	}
	return c
}

// Encode 实现 Codec.Encode。
func (c *codec) Encode(env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, errors.Wrap(network.ErrEncodeFailed, "codec: envelope is nil")
	}
	data, err := c.ser.Marshal(env)
	if err != nil {
		return nil, errors.Wrapf(network.ErrEncodeFailed, "codec: marshal op=%s: %v", env.Op, err)
	}
	if c.maxSize > 0 && len(data) > c.maxSize {
		return nil, errors.Wrapf(network.ErrFrameTooLarge, "codec: op=%s size=%d limit=%d", env.Op, len(data), c.maxSize)
	}
	return data, nil
}

// Decode 实现 Codec.Decode。
func (c *codec) Decode(data []byte) (*Envelope, error) {
	if c.maxSize > 0 && len(data) > c.maxSize {
		return nil, errors.Wrapf(network.ErrFrameTooLarge, "codec: size=%d limit=%d", len(data), c.maxSize)
	}
	env := &Envelope{}
	if err := c.ser.Unmarshal(data, env); err != nil {
		return nil, errors.Wrapf(network.ErrDecodeFailed, "codec: %v", err)
	}
	if env.Op == "" {
		return nil, errors.Wrap(network.ErrDecodeFailed, "codec: op is empty")
	}
	return env, nil
}

// Pack 实现 Codec.Pack。
func (c *codec) Pack(id, op string, msg any) (*Envelope, error) {
	env := &Envelope{ID: id, Op: op}
	if msg == nil {
		return env, nil
	}
	payload, err := c.ser.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(network.ErrEncodeFailed, "codec: marshal payload op=%s: %v", op, err)
	}
	env.Payload = payload
	return env, nil
}

// Unpack 实现 Codec.Unpack。
func (c *codec) Unpack(env *Envelope, v any) error {
	if env == nil || len(env.Payload) == 0 || v == nil {
		return nil
	}
	if err := c.ser.Unmarshal(env.Payload, v); err != nil {
		return errors.Wrapf(network.ErrDecodeFailed, "codec: unmarshal payload op=%s: %v", env.Op, err)
	}
	return nil
}
