package perception

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

func newOpenAITestServer(t *testing.T, status int, body string, seen *map[string]interface{}, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		if seen != nil {
			require.NoError(t, json.Unmarshal(raw, seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_ChatToolCalls(t *testing.T) {
	var hits int32
	var seen map[string]interface{}
	srv := newOpenAITestServer(t, http.StatusOK, `{
		"choices": [{
			"finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": null, "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "read_file", "arguments": "{\"path\":\"self-prompt.md\"}"}},
				{"id": "call_2", "type": "function", "function": {"name": "write_file", "arguments": "{\"path\": \"x\""}},
				{"id": "call_3", "type": "function", "function": {"name": "list_directory", "arguments": ""}}
			]}
		}],
		"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
	}`, &seen, &hits)

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test"})
	resp, err := c.Chat(context.Background(), types.ChatRequest{
		System: "be yourself",
		Messages: []types.Message{
			{Role: types.RoleUser, Content: "wake up"},
			{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: "c0", Name: "list_directory", Input: map[string]interface{}{}}}},
			{Role: types.RoleTool, ToolCallID: "c0", ToolName: "list_directory", Content: "Your home:"},
		},
		Tools:       []types.ToolDefinition{{Name: "read_file", Description: "read", InputSchema: map[string]interface{}{"type": "object"}}},
		Temperature: 0.9,
		MaxTokens:   2000,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits)

	require.Len(t, resp.ToolCalls, 3)
	assert.Equal(t, types.ToolCall{ID: "call_1", Name: "read_file", Input: map[string]interface{}{"path": "self-prompt.md"}}, resp.ToolCalls[0])
	assert.Equal(t, "write_file", resp.ToolCalls[1].Name)
	assert.Nil(t, resp.ToolCalls[1].Input)
	assert.NotEmpty(t, resp.ToolCalls[1].ParseError)
	assert.Equal(t, map[string]interface{}{}, resp.ToolCalls[2].Input)
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, types.UsageMetadata{InputTokens: 100, OutputTokens: 20, TotalTokens: 120}, resp.Usage)

	assert.Equal(t, "gpt-test", seen["model"])
	assert.Equal(t, "auto", seen["tool_choice"])
	msgs := seen["messages"].([]interface{})
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
	assistant := msgs[2].(map[string]interface{})
	assert.Nil(t, assistant["content"])
	call := assistant["tool_calls"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "{}", call["function"].(map[string]interface{})["arguments"])
	tool := msgs[3].(map[string]interface{})
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "c0", tool["tool_call_id"])
}

func TestOpenAIClient_ErrorStatusIsNotRetried(t *testing.T) {
	var hits int32
	srv := newOpenAITestServer(t, http.StatusTooManyRequests, `{"error": {"message": "slow down", "type": "rate_limit"}}`, nil, &hits)

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), types.ChatRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "slow down")
	assert.EqualValues(t, 1, hits)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	var hits int32
	srv := newOpenAITestServer(t, http.StatusOK, `{"choices": []}`, nil, &hits)
	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), types.ChatRequest{})
	assert.Error(t, err)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var hits int32
	var seen map[string]interface{}
	srv := newOpenAITestServer(t, http.StatusOK,
		`{"choices": [{"finish_reason": "stop", "message": {"role": "assistant", "content": "  Someone misses the rain somewhere.\n"}}]}`,
		&seen, &hits)

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	out, err := c.Complete(context.Background(), "transform", "I miss the rain in Berlin",
		types.CompletionOptions{Temperature: 0.85, MaxTokens: 80})
	require.NoError(t, err)
	assert.Equal(t, "Someone misses the rain somewhere.", out)
	_, hasTools := seen["tools"]
	assert.False(t, hasTools)
	assert.InDelta(t, 0.85, seen["temperature"], 1e-9)
	assert.EqualValues(t, 80, seen["max_tokens"])
}

func TestOpenAIClient_ContextCancelled(t *testing.T) {
	var hits int32
	srv := newOpenAITestServer(t, http.StatusOK, `{}`, nil, &hits)
	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Chat(ctx, types.ChatRequest{})
	assert.Error(t, err)
}
