package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskmate/pkg/circuitbreaker"
	"taskmate/pkg/config"
)

func newTestClient(url, key string) *OpenAIClient {
	return NewOpenAIClient(config.LLMConfig{
		BaseURL:     url,
		APIKey:      key,
		Model:       "test-model",
		MaxTokens:   256,
		Temperature: 0.5,
		Timeout:     2 * time.Second,
	}, zap.NewNop())
}

func TestCompleteSendsExpectedRequest(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL+"/", "sk-test")
	reply, err := c.Complete(context.Background(), Request{
		System:  "sys",
		History: []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "hey"}},
		Text:    "what now?",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply.Text)
	assert.Empty(t, reply.ToolCalls)

	assert.Equal(t, "test-model", got["model"])
	assert.EqualValues(t, 256, got["max_tokens"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "what now?", msgs[3].(map[string]any)["content"])
}

func TestCompleteEmbedsAudioPart(t *testing.T) {
	var got chatRequest
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"heard you"}}]}`))
	}))
	defer srv.Close()

	audio, err := ParseAudioDataURI("data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("RIFF")))
	require.NoError(t, err)

	c := newTestClient(srv.URL, "sk-test")
	got = c.buildRequest(Request{System: "sys", Audio: audio})
	last := got.Messages[len(got.Messages)-1]
	parts, ok := last.Content.([]contentPart)
	require.True(t, ok)
	require.Len(t, parts, 1)
	assert.Equal(t, "input_audio", parts[0].Type)
	assert.Equal(t, "wav", parts[0].InputAudio.Format)

	reply, err := c.Complete(context.Background(), Request{System: "sys", Audio: audio})
	require.NoError(t, err)
	assert.Equal(t, "heard you", reply.Text)
	assert.NotNil(t, raw)
}

func TestCompleteReturnsToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req["tools"], 1)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":null,"tool_calls":[
			{"id":"1","type":"function","function":{"name":"create_task","arguments":"{\"title\":\"Buy milk\"}"}}
		]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "sk-test")
	reply, err := c.Complete(context.Background(), Request{
		System: "sys",
		Text:   "add milk",
		Tools: []ToolSpec{{
			Name:   "create_task",
			Params: []ToolParam{{Name: "title", Type: "string", Required: true}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "", reply.Text)
	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "create_task", reply.ToolCalls[0].Name)
	assert.JSONEq(t, `{"title":"Buy milk"}`, string(reply.ToolCalls[0].Args))
}

func TestCompleteErrors(t *testing.T) {
	_, err := newTestClient("http://unused", "").Complete(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "sk-test")
	_, err = c.Complete(context.Background(), Request{Text: "x"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, "5xx", classifyError(err))
}

func TestCompleteMalformedAndEmpty(t *testing.T) {
	body := `not json`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "sk-test")
	_, err := c.Complete(context.Background(), Request{Text: "x"})
	assert.Error(t, err)
	assert.Equal(t, "decode_error", classifyError(err))

	body = `{"choices":[]}`
	_, err = c.Complete(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "sk-test")
	for i := 0; i < 3; i++ {
		_, _ = c.Complete(context.Background(), Request{Text: "x"})
	}
	_, err := c.Complete(context.Background(), Request{Text: "x"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 3, calls)
}

func TestParseAudioDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("abc"))

	a, err := ParseAudioDataURI("data:audio/mpeg;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "mp3", a.Format)
	assert.Equal(t, "audio/mpeg", a.MIMEType)
	assert.Equal(t, "data:audio/mpeg;base64,"+payload, a.DataURI())

	for _, bad := range []string{
		"",
		"audio/wav;base64," + payload,
		"data:image/png;base64," + payload,
		"data:audio/wav," + payload,
		"data:audio/wav;base64,",
		"data:audio/wav;base64,@@@",
	} {
		_, err := ParseAudioDataURI(bad)
		assert.ErrorIs(t, err, ErrInvalidAudio, bad)
	}
}

func TestJSONSchema(t *testing.T) {
	schema := jsonSchema([]ToolParam{
		{Name: "id", Type: "integer", Required: true},
		{Name: "updates", Type: "object", Required: true, Properties: []ToolParam{
			{Name: "status", Type: "string", Enum: []string{"todo", "done"}},
		}},
	})
	assert.Equal(t, []string{"id", "updates"}, schema["required"])
	props := schema["properties"].(map[string]any)
	updates := props["updates"].(map[string]any)
	assert.Equal(t, "object", updates["type"])
	assert.Contains(t, updates["properties"].(map[string]any), "status")
}
