package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	network "github.com/lk2023060901/imkit-go/internal/network"
)

type joinRequest struct {
	GroupID string `json:"group_id"`
}

func TestPackEncodeDecodeUnpack(t *testing.T) {
	c := New(Options{})

	env, err := c.Pack("r1", "group.join", &joinRequest{GroupID: "g1"})
	require.NoError(t, err)
	assert.False(t, env.IsPush())

	data, err := c.Encode(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"r1","op":"group.join","payload":{"group_id":"g1"}}`, string(data))

	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "group.join", got.Op)

	var req joinRequest
	require.NoError(t, c.Unpack(got, &req))
	assert.Equal(t, "g1", req.GroupID)
}

func TestPushAndErrorEnvelope(t *testing.T) {
	c := New(Options{})

	push, err := c.Pack("", "event.unread_total", nil)
	require.NoError(t, err)
	assert.True(t, push.IsPush())
	assert.Empty(t, push.Payload)

	data, err := c.Encode(&Envelope{ID: "r2", Op: "login", Code: 6000008, Message: "unsupported"})
	require.NoError(t, err)
	got, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int32(6000008), got.Code)
	assert.Equal(t, "unsupported", got.Message)

	// 空负载不修改目标对象。
	req := joinRequest{GroupID: "keep"}
	require.NoError(t, c.Unpack(got, &req))
	assert.Equal(t, "keep", req.GroupID)
}

func TestDecodeErrors(t *testing.T) {
	c := New(Options{})

	_, err := c.Decode([]byte(`not json`))
	assert.ErrorIs(t, err, network.ErrDecodeFailed)

	_, err = c.Decode([]byte(`{"id":"r1"}`))
	assert.ErrorIs(t, err, network.ErrDecodeFailed)

	err = c.Unpack(&Envelope{Op: "group.join", Payload: []byte(`[1,2]`)}, &joinRequest{})
	assert.ErrorIs(t, err, network.ErrDecodeFailed)
}

func TestMaxFrameSize(t *testing.T) {
	c := New(Options{MaxFrameSize: 64})

	env, err := c.Pack("r1", "user.query", map[string]string{"pad": strings.Repeat("x", 128)})
	require.NoError(t, err)
	_, err = c.Encode(env)
	assert.ErrorIs(t, err, network.ErrFrameTooLarge)

	_, err = c.Decode([]byte(`{"op":"x","message":"` + strings.Repeat("y", 128) + `"}`))
	assert.ErrorIs(t, err, network.ErrFrameTooLarge)

	_, err = c.Encode(nil)
	assert.ErrorIs(t, err, network.ErrEncodeFailed)
}
