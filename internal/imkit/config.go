package imkit

import (
	"time"

	zlog "github.com/lk2023060901/imkit-go/pkg/log"
	"github.com/lk2023060901/imkit-go/pkg/util/merr"
)

const (
	defaultDispatchPoolSize = 16
	// 0 表示不对单次请求设置超时。
	defaultRequestTimeout = 0
)

// TransportConfig 描述使用哪种传输层实现。
type TransportConfig struct {
	// Kind 可选 memory 或 ws。
	Kind string `mapstructure:"kind" validate:"omitempty,oneof=memory ws"`
	// URL 为 ws 传输层的服务端地址。
	URL string `mapstructure:"url" validate:"required_if=Kind ws"`
}

// Config 描述会话管理器的配置。
//
// 说明：
//   - AppID/AppSign 由调用方传给 Manager.Init，NewManager 本身不使用；
//   - StorageRoot 为空时使用 <用户缓存目录>/imkit；
//   - RequestTimeout 为 0 表示不设置请求超时；
//   - Logger 为空时使用全局日志。
type Config struct {
	AppID   uint32 `mapstructure:"app_id"`
	AppSign string `mapstructure:"app_sign"`

	StorageRoot      string          `mapstructure:"storage_root"`
	RequestTimeout   time.Duration   `mapstructure:"request_timeout" validate:"gte=0"`
	DispatchPoolSize int             `mapstructure:"dispatch_pool_size" validate:"gte=0"`
	Transport        TransportConfig `mapstructure:"transport"`

	DisableMetrics bool `mapstructure:"disable_metrics"`

	Logger *zlog.MLogger `mapstructure:"-"`
}

// Option 为 Config 的可选配置项。
type Option func(*Config)

// WithConfig 使用完整配置覆盖当前配置，Logger 为空时保留原值。
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		logger := c.Logger
		*c = cfg
		if c.Logger == nil {
			c.Logger = logger
		}
	}
}

// WithStorageRoot 设置媒体文件的存储根目录。
func WithStorageRoot(root string) Option {
	return func(c *Config) {
		if root != "" {
			c.StorageRoot = root
		}
	}
}

// WithRequestTimeout 设置单次传输层请求的超时时间。
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.RequestTimeout = d
		}
	}
}

// WithDispatchPoolSize 设置执行传输层调用的协程池大小。
func WithDispatchPoolSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.DispatchPoolSize = n
		}
	}
}

// WithMetrics 开启或关闭 prometheus 指标上报。
func WithMetrics(enable bool) Option {
	return func(c *Config) {
		c.DisableMetrics = !enable
	}
}

// WithLogger 注入具名日志实例。
func WithLogger(l *zlog.MLogger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// Validate 校验配置取值是否合法。
func (c *Config) Validate() error {
	return merr.WrapErrParameterInvalidErr("config", validate.Struct(c))
}

func (c *Config) fillDefaults() {
	if c.StorageRoot == "" {
		c.StorageRoot = defaultStorageRoot()
	}
	if c.DispatchPoolSize <= 0 {
		c.DispatchPoolSize = defaultDispatchPoolSize
	}
	if c.RequestTimeout < 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = "memory"
	}
}
