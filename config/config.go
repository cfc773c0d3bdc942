package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	pkgconfig "taskmate/pkg/config"
)

// ContextConfig 上下文拼装的数量限制
type ContextConfig struct {
	Tasks   int `yaml:"tasks"`
	Notes   int `yaml:"notes"`
	History int `yaml:"history"`
}

// ChatConfig 对话相关配置
type ChatConfig struct {
	ActionMode         string        `yaml:"action_mode"` // fenced | legacy | tools
	Locale             string        `yaml:"locale"`
	Timezone           string        `yaml:"timezone"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	Context            ContextConfig `yaml:"context"`
}

// ImportConfig 文档导入配置
type ImportConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type Config struct {
	Server pkgconfig.ServerConfig `yaml:"server"`
	DB     pkgconfig.DBConfig     `yaml:"db"`
	Redis  pkgconfig.RedisConfig  `yaml:"redis"`
	MQ     pkgconfig.MQConfig     `yaml:"mq"`
	JWT    pkgconfig.JWTConfig    `yaml:"jwt"`
	LLM    pkgconfig.LLMConfig    `yaml:"llm"`
	Otel   pkgconfig.OtelConfig   `yaml:"otel"`
	Chat   ChatConfig             `yaml:"chat"`
	Import ImportConfig           `yaml:"import"`
}

// Load 读取 configDir 下的 base.yaml / <env>.yaml / secrets.env，再用环境变量覆盖
func Load(env, configDir string) (*Config, error) {
	raw, err := pkgconfig.LoadConfig(env, configDir)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := pkgconfig.Decode(raw, cfg); err != nil {
		return nil, err
	}

	// 环境变量覆盖（生产环境使用）
	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideLLMFromEnv(&cfg.LLM)
	if v := os.Getenv("CHAT_ACTION_MODE"); v != "" {
		cfg.Chat.ActionMode = v
	}
	if v := os.Getenv("CHAT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Chat.RateLimitPerMinute = n
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		Server: pkgconfig.ServerConfig{Port: ":8080"},
		DB: pkgconfig.DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Name:     "taskmate",
			MaxConns: 10,
		},
		JWT: pkgconfig.JWTConfig{TTL: 24 * time.Hour},
		LLM: pkgconfig.LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Chat: ChatConfig{
			ActionMode: "fenced",
			Locale:     "en",
			Timezone:   "UTC",
			Context: ContextConfig{
				Tasks:   20,
				Notes:   5,
				History: 6,
			},
		},
		Import: ImportConfig{MaxBytes: 10 << 20},
	}
}

// Validate 检查必须的配置项
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Chat.ActionMode {
	case "fenced", "legacy", "tools":
	default:
		return fmt.Errorf("chat.action_mode must be fenced, legacy or tools, got %q", c.Chat.ActionMode)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}
	if _, err := time.LoadLocation(c.Chat.Timezone); err != nil {
		return fmt.Errorf("invalid chat.timezone: %w", err)
	}
	return nil
}
