package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"taskmate/pkg/config"
)

// New 根据 provider 创建模型客户端
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Model, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg, logger), nil
	case "gemini":
		if cfg.APIKey == "" {
			// 启动时不失败，每次请求返回 ErrNotConfigured
			return unconfigured{name: "gemini"}, nil
		}
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

type unconfigured struct{ name string }

func (u unconfigured) Name() string { return u.name }

func (u unconfigured) Configured() bool { return false }

func (u unconfigured) Complete(context.Context, Request) (*Reply, error) {
	return nil, ErrNotConfigured
}
