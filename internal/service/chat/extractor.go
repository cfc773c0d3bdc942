package chat

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskmate/internal/service/llm"
	"taskmate/pkg/metrics"
)

// 动作提取模式
const (
	// ModeFenced 只接受唯一的 ```json 代码块
	ModeFenced = "fenced"
	// ModeLegacy 先找 ```json 代码块，找不到再找第一个含 "action" 的花括号对象
	ModeLegacy = "legacy"
	// ModeTools 只使用模型返回的结构化函数调用
	ModeTools = "tools"
)

var (
	fenceRe = regexp.MustCompile("(?is)```json[ \\t]*\\r?\\n?(.*?)```")
	braceRe = regexp.MustCompile(`(?s)\{.*"action".*\}`)
)

type Extractor struct {
	mode   string
	loc    *time.Location
	logger *zap.Logger
}

func NewExtractor(mode string, loc *time.Location, logger *zap.Logger) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{mode: mode, loc: loc, logger: logger}
}

// Mode 当前提取模式
func (e *Extractor) Mode() string { return e.mode }

// findBlock 返回回复中的动作块；没有时返回 nil
func (e *Extractor) findBlock(text string) []byte {
	fences := fenceRe.FindAllStringSubmatch(text, -1)
	switch e.mode {
	case ModeFenced:
		// 多个代码块视为含糊，不执行任何动作
		if len(fences) != 1 {
			if len(fences) > 1 {
				e.logger.Warn("Multiple fenced action blocks, ignoring all", zap.Int("count", len(fences)))
			}
			return nil
		}
		return []byte(fences[0][1])
	case ModeLegacy:
		if len(fences) > 0 {
			return []byte(fences[0][1])
		}
		if obj := firstActionObject(text); obj != "" {
			return []byte(obj)
		}
		// 只有残缺的对象时交给 ParseIntents 记为 malformed
		if m := braceRe.FindString(text); m != "" {
			return []byte(m)
		}
	}
	return nil
}

// firstActionObject 返回第一个能完整解码且含 "action" 键的 JSON 对象，
// 对象之后正文里的花括号不影响结果
func firstActionObject(text string) string {
	for i := strings.IndexByte(text, '{'); i >= 0; {
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var obj map[string]json.RawMessage
		if err := dec.Decode(&obj); err == nil {
			if _, ok := obj["action"]; ok {
				return text[i : i+int(dec.InputOffset())]
			}
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return ""
}

// Extract 从模型回复中提取意图；任何解析失败都只会减少意图数量，不会返回错误
func (e *Extractor) Extract(reply *llm.Reply) []Intent {
	if reply == nil {
		return nil
	}

	if e.mode == ModeTools {
		var intents []Intent
		for _, call := range reply.ToolCalls {
			intent, err := decodeIntent(call.Name, call.Args, e.loc)
			if err != nil {
				e.reject(call.Name, err)
				continue
			}
			intents = append(intents, intent)
		}
		return intents
	}

	block := e.findBlock(reply.Text)
	if block == nil {
		return nil
	}

	intents, rejected, err := ParseIntents(block, e.loc)
	if err != nil {
		e.logger.Warn("Malformed action block, no actions applied", zap.Error(err))
		metrics.IncrementChatAction("block", "malformed")
		return nil
	}
	for _, r := range rejected {
		e.reject("", r)
	}
	return intents
}

func (e *Extractor) reject(kind string, err error) {
	e.logger.Info("Intent rejected", zap.String("kind", kind), zap.Error(err))
	if kind == "" {
		kind = "unknown"
	}
	metrics.IncrementChatAction(kind, "invalid")
}
