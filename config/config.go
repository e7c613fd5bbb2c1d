package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Cache  CacheConfig  `mapstructure:"cache"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`          // 服务器主机
	Port         int           `mapstructure:"port"`          // 服务器端口
	Mode         string        `mapstructure:"mode"`          // 运行模式 debug/release
	EnableCors   bool          `mapstructure:"enable_cors"`   // 是否启用跨域
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // 读取超时
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 写入超时
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`       // 日志级别
	File       string `mapstructure:"file"`        // 日志文件路径，为空时只输出到标准输出
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单个日志文件最大大小
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// LLMConfig 大语言模型配置
// APIKey为空时不启用问答接口
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`    // 提供商：openai
	Model       string        `mapstructure:"model"`       // 模型名称
	APIKey      string        `mapstructure:"api_key"`     // API密钥，支持${ENV}形式
	Endpoint    string        `mapstructure:"endpoint"`    // API端点
	MaxTokens   int           `mapstructure:"max_tokens"`  // 最大生成token数量
	Temperature float32       `mapstructure:"temperature"` // 采样温度
	Timeout     time.Duration `mapstructure:"timeout"`     // 请求超时
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enable    bool   `mapstructure:"enable"`     // 是否启用缓存
	Type      string `mapstructure:"type"`       // 缓存类型：memory 或 redis
	KeyPrefix string `mapstructure:"key_prefix"` // 键前缀
	Address   string `mapstructure:"address"`    // Redis地址
	Password  string `mapstructure:"password"`   // Redis密码
	DB        int    `mapstructure:"db"`         // Redis数据库
	TTL       int    `mapstructure:"ttl"`        // 缓存TTL（秒）
}

// Load 从文件和环境变量加载配置
// configPath为空时只使用默认值和环境变量
func Load(configPath string) (*Config, error) {
	// .env文件不存在不算错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("Failed to load .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logrus.Infof("Using config file: %s", v.ConfigFileUsed())
	}

	// 支持环境变量覆盖，如 DOCCTX_SERVER_PORT
	v.SetEnvPrefix("DOCCTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cache.Enable && c.Cache.Type == "redis" && c.Cache.Address == "" {
		return fmt.Errorf("redis cache requires an address")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// CacheTTL 返回缓存有效期
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

// processEnvironmentVariables 处理配置项中的${VAR}占位符
func processEnvironmentVariables(cfg *Config) {
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
}

// expandEnv 将${VAR}替换为环境变量的值，未设置时返回空字符串
func expandEnv(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.enable_cors", false)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)

	// LLM默认配置
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("llm.endpoint", "https://api.openai.com/v1")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "60s")

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.key_prefix", "docctx")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 3600)
}
