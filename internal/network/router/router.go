package router

import (
	"sync"

	"github.com/cockroachdb/errors"

	network "github.com/lk2023060901/imkit-go/internal/network"
	"github.com/lk2023060901/imkit-go/internal/network/codec"
	"github.com/lk2023060901/imkit-go/internal/network/session"
)

// Handler 是框架暴露给业务层的通用处理函数签名。
//
// 说明：
//   - sess：当前会话，用于关联用户并发送推送；
//   - req ：已经反序列化的请求对象，具体类型由 Route.NewRequest 决定；
//   - 返回：
//   - resp：响应负载，为 nil 时响应不带 Payload；
//   - err ：业务失败时的错误，Router 会将其转换为带错误码的响应。
type Handler func(sess session.Session, req any) (resp any, err error)

// Route 描述一条路由规则：协议名 -> 请求类型 + 业务 Handler。
type Route struct {
	// NewRequest 返回一个空的请求对象指针，为 nil 时请求负载被忽略。
	NewRequest func() any

	// Handler 为业务层实现的处理函数。
	Handler Handler
}

// CodedError 为携带业务错误码的错误。
// Handler 返回的错误链中包含 CodedError 时，响应使用其错误码与描述。
type CodedError interface {
	error
	ErrorCode() int32
	ErrorMessage() string
}

// Router 维护协议名到路由规则的映射，并负责从信封到业务 Handler 的调度。
//
// 调用链（服务端）：
//  1. 接入层读取并解码出 Envelope；
//  2. 调用 Router.Handle(sess, env)；
//  3. Router 根据 env.Op 找到 Route，反序列化请求并调用 Handler；
//  4. 请求带有 ID 时，自动以相同的 ID 与 Op 发送响应。
type Router interface {
	// Register 为协议名 op 注册一条路由规则，重复注册返回错误。
	Register(op string, route Route) error

	// Handle 处理一条已经解码的信封。
	//
	// 未注册的 op、反序列化失败或 Handler 失败都会以错误响应告知对端，
	// 返回值仅用于本端日志。
	Handle(sess session.Session, env *codec.Envelope) error
}

// Option 为 Router 的可选配置项。
type Option func(*defaultRouter)

// WithErrorCodes 设置内部错误与非法请求使用的错误码。
func WithErrorCodes(internal, badRequest int32) Option {
	return func(r *defaultRouter) {
		r.internalCode = internal
		r.badRequestCode = badRequest
	}
}

const (
	defaultInternalCode   int32 = 500
	defaultBadRequestCode int32 = 400
)

type defaultRouter struct {
	codec codec.Codec

	internalCode   int32
	badRequestCode int32

	mu     sync.RWMutex
	routes map[string]Route
}

var _ Router = (*defaultRouter)(nil)

// New 创建一个基于给定 Codec 的 Router 实例。
func New(c codec.Codec, opts ...Option) Router {
	r := &defaultRouter{
		codec:          c,
		internalCode:   defaultInternalCode,
		badRequestCode: defaultBadRequestCode,
		routes:         make(map[string]Route),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register 实现 Router.Register。
func (r *defaultRouter) Register(op string, route Route) error {
	if op == "" {
		return errors.New("router: op must not be empty")
	}
	if route.Handler == nil {
		return errors.Newf("router: Handler is nil for op=%s", op)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.routes[op]; exists {
		return errors.Newf("router: op=%s already registered", op)
	}
	r.routes[op] = route
	return nil
}

// Handle 实现 Router.Handle。
func (r *defaultRouter) Handle(sess session.Session, env *codec.Envelope) error {
	if sess == nil || env == nil {
		return errors.Wrap(network.ErrDispatchFailed, "router: nil session or envelope")
	}

	r.mu.RLock()
	route, ok := r.routes[env.Op]
	r.mu.RUnlock()
	if !ok {
		err := errors.Wrapf(network.ErrDispatchFailed, "router: no handler for op=%s", env.Op)
		return r.reply(sess, env, nil, r.badRequestCode, err)
	}

	var req any
	if route.NewRequest != nil {
		req = route.NewRequest()
		if err := r.codec.Unpack(env, req); err != nil {
			return r.reply(sess, env, nil, r.badRequestCode, err)
		}
	}

	resp, err := route.Handler(sess, req)
	if err != nil {
		return r.reply(sess, env, nil, 0, err)
	}
	return r.reply(sess, env, resp, 0, nil)
}

// reply 在请求带 ID 时发送响应，并返回 cause 或发送错误。
// code 为 0 且 cause 非 nil 时，错误码取自 cause 中的 CodedError，缺省为内部错误码。
func (r *defaultRouter) reply(sess session.Session, req *codec.Envelope, resp any, code int32, cause error) error {
	if req.IsPush() {
		return cause
	}

	out, err := r.codec.Pack(req.ID, req.Op, resp)
	if err != nil {
		out = &codec.Envelope{ID: req.ID, Op: req.Op}
		code, cause = r.internalCode, err
	}
	if cause != nil {
		out.Code, out.Message = code, cause.Error()
		var coded CodedError
		if code == 0 && errors.As(cause, &coded) {
			out.Code, out.Message = coded.ErrorCode(), coded.ErrorMessage()
		} else if code == 0 {
			out.Code = r.internalCode
		}
		out.Payload = nil
	}
	if err := sess.Send(out); err != nil {
		return errors.CombineErrors(cause, errors.Wrapf(err, "router: send response op=%s", req.Op))
	}
	return cause
}
