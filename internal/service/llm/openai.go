package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskmate/pkg/circuitbreaker"
	"taskmate/pkg/config"
	"taskmate/pkg/metrics"
	"taskmate/pkg/trace"
)

// OpenAIClient OpenAI 兼容的 /chat/completions 客户端
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float32

	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		cb:          newBreaker("openai", logger),
		logger:      logger,
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Configured() bool { return c.apiKey != "" }

type chatMessage struct {
	Role      string         `json:"role"`
	Content   any            `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   *string        `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// buildRequest 组装请求体：system + 历史 + 当前用户回合
func (c *OpenAIClient) buildRequest(req Request) chatRequest {
	msgs := make([]chatMessage, 0, len(req.History)+2)
	msgs = append(msgs, chatMessage{Role: RoleSystem, Content: req.System})
	for _, m := range req.History {
		msgs = append(msgs, chatMessage{Role: m.Role, Content: m.Content})
	}

	if req.Audio == nil {
		msgs = append(msgs, chatMessage{Role: RoleUser, Content: req.Text})
	} else {
		parts := []contentPart{}
		if req.Text != "" {
			parts = append(parts, contentPart{Type: "text", Text: req.Text})
		}
		parts = append(parts, contentPart{
			Type:       "input_audio",
			InputAudio: &inputAudio{Data: req.Audio.Data, Format: req.Audio.Format},
		})
		msgs = append(msgs, chatMessage{Role: RoleUser, Content: parts})
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  jsonSchema(t.Params),
			},
		})
	}
	return body
}

// Complete 发送一次请求；任何失败都返回错误，由调用方决定是否降级
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Reply, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	b, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, err
	}

	var reply *Reply
	err = c.cb.Execute(func() error {
		start := time.Now()
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		if traceID := trace.FromContext(ctx); traceID != "" {
			httpReq.Header.Set(trace.HeaderName(), traceID)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			metrics.RecordModelCallLatency(c.Name(), classifyError(err), time.Since(start))
			return fmt.Errorf("failed to call model API: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			metrics.RecordModelCallLatency(c.Name(), statusLabel(resp.StatusCode), time.Since(start))
			return &StatusError{Code: resp.StatusCode, Body: string(snippet)}
		}

		var decoded chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			metrics.RecordModelCallLatency(c.Name(), "decode_error", time.Since(start))
			return fmt.Errorf("failed to decode model response: %w", err)
		}
		metrics.RecordModelCallLatency(c.Name(), "success", time.Since(start))

		reply, err = decodeChoice(decoded)
		return err
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

func decodeChoice(resp chatResponse) (*Reply, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyReply
	}
	msg := resp.Choices[0].Message
	reply := &Reply{}
	if msg.Content != nil {
		reply.Text = *msg.Content
	}
	for _, tc := range msg.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: tc.Function.Name, Args: args})
	}
	return reply, nil
}
