package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"taskmate/pkg/circuitbreaker"
	"taskmate/pkg/config"
	"taskmate/pkg/metrics"
)

// GeminiClient 基于 google.golang.org/genai 的客户端，意图通过 function calling 返回
type GeminiClient struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	timeout     time.Duration

	cb     *circuitbreaker.CircuitBreaker
	logger *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GeminiClient{
		client:      client,
		model:       model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
		timeout:     timeout,
		cb:          newBreaker("gemini", logger),
		logger:      logger,
	}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

// Configured 构造时已校验 API key
func (c *GeminiClient) Configured() bool { return true }

// buildContents 历史消息 + 当前回合；assistant 对应 genai 的 model 角色
func buildContents(req Request) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		var role genai.Role = genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	parts := []*genai.Part{}
	if req.Text != "" {
		parts = append(parts, genai.NewPartFromText(req.Text))
	}
	if req.Audio != nil {
		data, err := req.Audio.Bytes()
		if err != nil {
			return nil, ErrInvalidAudio
		}
		parts = append(parts, genai.NewPartFromBytes(data, req.Audio.MIMEType))
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	return contents, nil
}

func genaiSchema(params []ToolParam) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(params)),
	}
	for _, p := range params {
		var prop *genai.Schema
		switch p.Type {
		case "object":
			prop = genaiSchema(p.Properties)
		case "integer":
			prop = &genai.Schema{Type: genai.TypeInteger}
		case "boolean":
			prop = &genai.Schema{Type: genai.TypeBoolean}
		default:
			prop = &genai.Schema{Type: genai.TypeString}
		}
		prop.Description = p.Description
		prop.Enum = p.Enum
		schema.Properties[p.Name] = prop
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

func genaiTools(specs []ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  genaiSchema(s.Params),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	contents, err := buildContents(req)
	if err != nil {
		return nil, err
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		Temperature:       genai.Ptr(c.temperature),
		MaxOutputTokens:   c.maxTokens,
		Tools:             genaiTools(req.Tools),
	}

	var reply *Reply
	err = c.cb.Execute(func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		start := time.Now()
		resp, err := c.client.Models.GenerateContent(callCtx, c.model, contents, genCfg)
		if err != nil {
			metrics.RecordModelCallLatency(c.Name(), classifyError(err), time.Since(start))
			return fmt.Errorf("GenAI generate failed: %w", err)
		}
		metrics.RecordModelCallLatency(c.Name(), "success", time.Since(start))

		if len(resp.Candidates) == 0 {
			return ErrEmptyReply
		}

		reply = &Reply{Text: resp.Text()}
		for _, fc := range resp.FunctionCalls() {
			args, err := json.Marshal(fc.Args)
			if err != nil {
				return err
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: fc.Name, Args: args})
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("Model call failed",
			zap.String("provider", c.Name()),
			zap.String("error_type", classifyError(err)),
			zap.Error(err),
		)
		return nil, err
	}
	return reply, nil
}
