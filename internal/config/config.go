package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// LampConfig 目标信号灯地址与交换超时
type LampConfig struct {
	Addr    string        `mapstructure:"addr"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
}

// APIConfig 灯控 API 的认证、限流与推送配置
type APIConfig struct {
	AuthEnabled   bool          `mapstructure:"authEnabled"`
	APIKeys       []string      `mapstructure:"apiKeys"`
	RatePerSec    int           `mapstructure:"ratePerSec"`
	Burst         int           `mapstructure:"burst"`
	WatchInterval time.Duration `mapstructure:"watchInterval"`
}

// SimulatorConfig 信号灯模拟器（TCP 服务端）配置
type SimulatorConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	Mode         string        `mapstructure:"mode"`
	MaxSessions  int           `mapstructure:"maxSessions"` // 同时服务的连接数，真实设备为 1
	SessionWait  time.Duration `mapstructure:"sessionWait"` // 排队等待上限，超时不应答直接关闭
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Config 顶层配置结构
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Lamp      LampConfig      `mapstructure:"lamp"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	API       APIConfig       `mapstructure:"api"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// EnvPrefix 环境变量前缀，如 LAMP_LAMP_ADDR、LAMP_HTTP_ADDR
const EnvPrefix = "LAMP"

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 LAMP_CONFIG 读取；否则回退到 ./configs/lamp.yaml（可缺省）。
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithFlags 与 Load 相同，并将命令行参数绑定为最高优先级。
// 参数名与配置键一致（如 "lamp.timeout"），未显式设置的参数不会覆盖文件与环境变量。
func LoadWithFlags(path string, fs *pflag.FlagSet) (*Config, error) {
	return load(path, fs)
}

// AliasFlags 按 aliases（参数名 → 配置键，如 "timeout" → "lamp.timeout"）生成供 LoadWithFlags 绑定的参数集。
// 新参数集与原参数共享取值与 Changed 状态，须在 fs.Parse 之后调用。
func AliasFlags(fs *pflag.FlagSet, aliases map[string]string) *pflag.FlagSet {
	out := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := aliases[f.Name]
		if !ok {
			return
		}
		out.AddFlag(&pflag.Flag{
			Name:     key,
			Usage:    f.Usage,
			Value:    f.Value,
			DefValue: f.DefValue,
			Changed:  f.Changed,
		})
	})
	return out
}

func load(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 LAMP_，并将点号替换为下划线
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = v.GetString("config")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("lamp")
		v.SetConfigType("yaml")
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// 允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "signal-lamp")
	v.SetDefault("app.env", "dev")

	v.SetDefault("lamp.addr", "192.168.1.10")
	v.SetDefault("lamp.port", 20000)
	v.SetDefault("lamp.timeout", "2s")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("api.authEnabled", false)
	v.SetDefault("api.apiKeys", []string{})
	v.SetDefault("api.ratePerSec", 5)
	v.SetDefault("api.burst", 10)
	v.SetDefault("api.watchInterval", "1s")

	v.SetDefault("simulator.addr", ":20000")
	v.SetDefault("simulator.readTimeout", "5s")
	v.SetDefault("simulator.writeTimeout", "5s")
	v.SetDefault("simulator.mode", "normal")
	v.SetDefault("simulator.maxSessions", 1)
	v.SetDefault("simulator.sessionWait", "1s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "")
	v.SetDefault("logging.file.maxSize", 100)
	v.SetDefault("logging.file.maxBackups", 7)
	v.SetDefault("logging.file.maxAge", 30)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}
