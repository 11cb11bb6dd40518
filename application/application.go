package application

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lk2023060901/imkit-go/internal/imbackend"
	"github.com/lk2023060901/imkit-go/internal/imkit"
	"github.com/lk2023060901/imkit-go/internal/imkit/transport"
	"github.com/lk2023060901/imkit-go/internal/imkit/transport/memory"
	"github.com/lk2023060901/imkit-go/internal/imkit/transport/ws"
	zlog "github.com/lk2023060901/imkit-go/pkg/log"
	"github.com/lk2023060901/imkit-go/pkg/metrics"
	zviper "github.com/lk2023060901/imkit-go/pkg/util/viper"
)

const (
	configKeyIMKit   = "imkit"
	configKeyLogging = "logging"

	// imkitLoggerName 为 logging 配置中会话管理器使用的日志名。
	imkitLoggerName = "imkit"
)

// Application 为进程级运行容器，负责加载配置、初始化日志与指标，并装配会话管理器。
type Application struct {
	cfg     *zviper.Config
	loggers map[string]*zlog.MLogger

	imkitCfg imkit.Config
	manager  *imkit.Manager

	// 仅在 memory 传输层下有效。
	directory *imbackend.Directory
	hub       *memory.Hub
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// Run 解析命令行参数并加载配置文件，优先级从低到高：
//  1. 默认：./config.yaml
//  2. 环境变量：IMKIT_CONFIG_FILE_PATH
//  3. 命令行：--config <path> 或 --config=<path>
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	return a.Setup(cfg)
}

// Setup 使用已加载的配置完成日志、指标与会话管理器的初始化。
func (a *Application) Setup(cfg *zviper.Config) error {
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}
	if err := a.loadIMKitConfig(); err != nil {
		return err
	}
	if !a.imkitCfg.DisableMetrics {
		metrics.Register(prometheus.DefaultRegisterer)
	}
	return a.initManager()
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// IMKitConfig 返回解析后的会话管理器配置。
func (a *Application) IMKitConfig() imkit.Config {
	return a.imkitCfg
}

// Manager 返回装配好的会话管理器，Setup 之前为 nil。
func (a *Application) Manager() *imkit.Manager {
	return a.manager
}

// Backend 返回 memory 传输层使用的进程内后端，其他传输层返回 nil。
func (a *Application) Backend() (*imbackend.Directory, *memory.Hub) {
	return a.directory, a.hub
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// Close 关闭会话管理器并刷新日志。
func (a *Application) Close() error {
	var err error
	if a.manager != nil {
		err = a.manager.Close()
	}
	_ = zlog.Sync()
	return err
}

// loadConfig resolves config file path and loads it via viper wrapper.
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath := "./config.yaml"

	if envPath := os.Getenv("IMKIT_CONFIG_FILE_PATH"); envPath != "" {
		configPath = envPath
	}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, errors.New("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			if val := strings.TrimPrefix(arg, "--config="); val != "" {
				configPath = val
			}
		}
	}

	cfg := zviper.New()
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, errors.Wrapf(err, "failed to load config file %q", configPath)
	}
	return cfg, nil
}

func (a *Application) loadIMKitConfig() error {
	var c imkit.Config
	if a.cfg != nil {
		if err := a.cfg.UnmarshalKey(configKeyIMKit, &c); err != nil {
			return errors.Wrap(err, "decode imkit config")
		}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if lg, ok := a.loggers[imkitLoggerName]; ok {
		c.Logger = lg
	}
	a.imkitCfg = c
	return nil
}

func (a *Application) initManager() error {
	var factory transport.Factory
	switch kind := a.imkitCfg.Transport.Kind; kind {
	case "", "memory":
		var opts []imbackend.DirectoryOption
		if a.imkitCfg.AppID != 0 {
			opts = append(opts, imbackend.WithApp(a.imkitCfg.AppID, a.imkitCfg.AppSign))
		}
		a.directory = imbackend.NewDirectory(opts...)
		a.hub = memory.NewHub()
		factory = memory.NewFactory(a.directory, a.hub)
	case "ws":
		factory = ws.NewFactory(a.imkitCfg.Transport.URL)
	default:
		return errors.Newf("unknown transport kind %q", kind)
	}

	a.manager = imkit.NewManager(factory, imkit.WithConfig(a.imkitCfg))
	zlog.Info("application ready",
		zap.String("transport", a.imkitCfg.Transport.Kind),
		zap.String("storageRoot", a.manager.MediaPaths().Root()))
	return nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initGlobalLoggerFromEnv 根据 IMKIT_LOG_* 环境变量配置进程级日志。
//
//   - IMKIT_LOG_ENABLE：为 "1"/"true" 时开启输出，否则全部丢弃；
//   - IMKIT_LOG_LEVEL：日志级别，默认 info；
//   - IMKIT_LOG_STDOUT：是否输出到标准输出，默认 false；
//   - IMKIT_LOG_FILE_DIR / IMKIT_LOG_FILE：日志目录与文件名，文件名为空表示不写文件；
//   - IMKIT_LOG_FORMAT：text 或 json，默认 text。
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("IMKIT_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:  getenvDefault("IMKIT_LOG_LEVEL", "info"),
		Format: getenvDefault("IMKIT_LOG_FORMAT", "text"),
		Stdout: getenvBool("IMKIT_LOG_STDOUT", false),
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("IMKIT_LOG_FILE_DIR", ""),
			Filename: getenvDefault("IMKIT_LOG_FILE", ""),
		},
	}
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig 根据 YAML 中 logging 下的配置创建具名日志。
//
// 示例：
//
//	logging:
//	  imkit:
//	    level: debug
//	    stdout: true
//	    file:
//	      rootpath: ./logs
//	      filename: imkit.log
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey(configKeyLogging, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger.With(zlog.FieldModule(name))}
	}
	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
