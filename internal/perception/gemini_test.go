package perception

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

func TestGeminiClient_Chat(t *testing.T) {
	var seen map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "g-test", r.Header.Get("x-goog-api-key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &seen))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"candidates": [{
				"content": {"role": "model", "parts": [
					{"text": "thinking aloud"},
					{"functionCall": {"name": "save_thought", "args": {"title": "Tide", "content": "returns"}}}
				]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
		}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "g-test", Model: "gemini-test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	resp, err := c.Chat(context.Background(), types.ChatRequest{
		System: "be yourself",
		Messages: []types.Message{
			{Role: types.RoleUser, Content: "wake up"},
			{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{
				{ID: "a", Name: "read_file", Input: map[string]interface{}{"path": "x"}},
				{ID: "b", Name: "list_directory", Input: map[string]interface{}{}},
			}},
			{Role: types.RoleTool, ToolCallID: "a", ToolName: "read_file", Content: "hello"},
			{Role: types.RoleTool, ToolCallID: "b", ToolName: "list_directory", Content: "Your home:"},
		},
		Tools: []types.ToolDefinition{{Name: "save_thought", Description: "save", InputSchema: map[string]interface{}{"type": "object"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "thinking aloud", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "save_thought", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]interface{}{"title": "Tide", "content": "returns"}, resp.ToolCalls[0].Input)
	assert.True(t, strings.HasPrefix(resp.ToolCalls[0].ID, "call_"))
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)

	contents := seen["contents"].([]interface{})
	require.Len(t, contents, 3, "tool results are grouped into one turn")
	assert.Equal(t, "model", contents[1].(map[string]interface{})["role"])
	assert.Len(t, contents[2].(map[string]interface{})["parts"], 2)
	assert.NotNil(t, seen["systemInstruction"])
	assert.NotNil(t, seen["tools"])
}

func TestGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestGeminiClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "g-test", Model: "gemini-test", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), types.ChatRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}}})
	assert.Error(t, err)
}

func TestToGeminiContents_AssistantTextOnly(t *testing.T) {
	contents := toGeminiContents([]types.Message{
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello"},
		{Role: types.RoleUser, Content: "please use a tool"},
	})
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "hello", contents[1].Parts[0].Text)
	assert.Equal(t, "user", contents[2].Role)
}
