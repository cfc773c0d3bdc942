// Package llm talks to hosted chat-completion APIs.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNotConfigured 缺少 API key，请求前直接失败
	ErrNotConfigured = errors.New("language model API key is not configured")
	// ErrInvalidAudio 音频不是合法的 data URI
	ErrInvalidAudio = errors.New("audio must be a base64 data URI")
	// ErrEmptyReply 模型返回了空内容
	ErrEmptyReply = errors.New("model returned no choices")
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message 一条历史消息
type Message struct {
	Role    string
	Content string
}

// Audio 语音输入，Data 为 base64 内容
type Audio struct {
	MIMEType string
	Format   string
	Data     string
}

// DataURI 还原为 data:<mime>;base64,<data>
func (a *Audio) DataURI() string {
	return "data:" + a.MIMEType + ";base64," + a.Data
}

// Bytes 解码音频内容
func (a *Audio) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(a.Data)
}

// ParseAudioDataURI 解析 data:audio/<fmt>;base64,<payload>
func ParseAudioDataURI(s string) (*Audio, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return nil, ErrInvalidAudio
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || payload == "" {
		return nil, ErrInvalidAudio
	}
	mime, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" || !strings.HasPrefix(mime, "audio/") {
		return nil, ErrInvalidAudio
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return nil, ErrInvalidAudio
	}

	format := strings.TrimPrefix(mime, "audio/")
	switch format {
	case "mpeg":
		format = "mp3"
	case "x-wav", "wave":
		format = "wav"
	}
	return &Audio{MIMEType: mime, Format: format, Data: payload}, nil
}

// ToolParam 函数参数描述
type ToolParam struct {
	Name        string
	Type        string // string | integer | boolean | object
	Description string
	Required    bool
	Enum        []string
	// Type 为 object 时的子字段
	Properties []ToolParam
}

// ToolSpec 声明给模型的函数
type ToolSpec struct {
	Name        string
	Description string
	Params      []ToolParam
}

// ToolCall 模型返回的结构化调用，Args 为 JSON 对象
type ToolCall struct {
	Name string
	Args json.RawMessage
}

// Request 一次对话请求
type Request struct {
	System  string
	History []Message
	Text    string
	Audio   *Audio
	// 非空时以结构化函数调用的方式声明意图
	Tools []ToolSpec
}

// Reply 模型回复
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Model 每个用户回合只发送一次请求，不重试
type Model interface {
	Complete(ctx context.Context, req Request) (*Reply, error)
	Name() string
	// Configured 为 false 时调用方应在做任何工作之前失败
	Configured() bool
}

// jsonSchema 把 ToolParam 转换为 JSON Schema 对象
func jsonSchema(params []ToolParam) map[string]any {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Type == "object" {
			for k, v := range jsonSchema(p.Properties) {
				prop[k] = v
			}
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
