package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskmate/internal/service/llm"
)

func extract(mode, text string) []Intent {
	return NewExtractor(mode, time.UTC, zap.NewNop()).Extract(&llm.Reply{Text: text})
}

func TestExtractFencedBlock(t *testing.T) {
	intents := extract(ModeFenced, "Ok!\n```JSON\n{\"action\":\"create_team\",\"name\":\"Ops\"}\n```\nBye")
	require.Len(t, intents, 1)
	assert.Equal(t, CreateTeam{Name: "Ops"}, intents[0])

	// 同一行内的代码块
	intents = extract(ModeFenced, "```json {\"action\":\"delete_task\",\"id\":7} ```")
	require.Len(t, intents, 1)
	assert.Equal(t, DeleteTask{ID: 7}, intents[0])
}

func TestExtractFencedRejectsAmbiguity(t *testing.T) {
	two := "```json\n{\"action\":\"create_team\",\"name\":\"A\"}\n```\nand\n```json\n{\"action\":\"create_team\",\"name\":\"B\"}\n```"
	assert.Empty(t, extract(ModeFenced, two))

	bare := `I will run {"action":"delete_task","id":3} for you`
	assert.Empty(t, extract(ModeFenced, bare))
}

func TestExtractLegacyFallsBackToBraces(t *testing.T) {
	bare := `Sure {"action":"delete_task","id":3} done`
	intents := extract(ModeLegacy, bare)
	require.Len(t, intents, 1)
	assert.Equal(t, DeleteTask{ID: 3}, intents[0])

	// 有代码块时优先使用第一个代码块
	both := "```json\n{\"action\":\"create_team\",\"name\":\"A\"}\n```\n```json\n{\"action\":\"create_team\",\"name\":\"B\"}\n```"
	intents = extract(ModeLegacy, both)
	require.Len(t, intents, 1)
	assert.Equal(t, CreateTeam{Name: "A"}, intents[0])
}

func TestExtractLegacyIgnoresBracesInProse(t *testing.T) {
	text := `Done {"action":"delete_task","id":3} and remember {that} too.`
	intents := extract(ModeLegacy, text)
	require.Len(t, intents, 1)
	assert.Equal(t, DeleteTask{ID: 3}, intents[0])

	// 前面的无关对象会被跳过
	text = `{"mood":"happy"} then {"action":"create_team","name":"Ops"} {oops`
	intents = extract(ModeLegacy, text)
	require.Len(t, intents, 1)
	assert.Equal(t, CreateTeam{Name: "Ops"}, intents[0])

	// 残缺对象仍然不执行任何动作
	assert.Empty(t, extract(ModeLegacy, `try {"action":"delete_task","id":3,} later`))
}

func TestExtractMalformedAndUnknown(t *testing.T) {
	assert.Empty(t, extract(ModeFenced, "```json\n[{\"action\":\"create_team\",\"name\":\"A\"},]\n```"))
	assert.Empty(t, extract(ModeFenced, "```json\n{\"action\":\"launch\",\"target\":\"moon\"}\n```"))
	assert.Empty(t, extract(ModeFenced, ""))
	assert.Nil(t, NewExtractor(ModeFenced, nil, zap.NewNop()).Extract(nil))
}

func TestExtractDropsInvalidSiblingsOnly(t *testing.T) {
	block := "```json\n[" +
		`{"action":"create_task"},` +
		`{"action":"unknown"},` +
		`"not an object",` +
		`{"action":"create_note","content":"kept","is_important":true}` +
		"]\n```"
	intents := extract(ModeFenced, block)
	require.Len(t, intents, 1)
	assert.Equal(t, CreateNote{Content: "kept", Important: true}, intents[0])
}

func TestExtractToolsIgnoresText(t *testing.T) {
	e := NewExtractor(ModeTools, time.UTC, zap.NewNop())
	intents := e.Extract(&llm.Reply{
		Text: "```json\n{\"action\":\"create_team\",\"name\":\"A\"}\n```",
		ToolCalls: []llm.ToolCall{
			{Name: KindDeleteTask, Args: []byte(`{"id":"12"}`)},
			{Name: KindCreateTask, Args: []byte(`{"title":""}`)},
		},
	})
	require.Len(t, intents, 1)
	assert.Equal(t, DeleteTask{ID: 12}, intents[0])
}

func TestToolSpecsCoverEveryIntent(t *testing.T) {
	names := map[string]bool{}
	for _, spec := range ToolSpecs() {
		names[spec.Name] = true
	}
	for _, kind := range []string{KindCreateTask, KindCreateNote, KindPushNotification, KindUpdateTask, KindDeleteTask, KindCreateTeam} {
		assert.True(t, names[kind], kind)
	}
}
