package perception

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

func TestNewClientFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
		mode     Mode
		want     interface{}
	}{
		{"no key", "openai", "", ModeMock, &MockClient{}},
		{"placeholder key", "openai", "sk-your-key-here", ModeMock, &MockClient{}},
		{"mock provider", "mock", "sk-real", ModeMock, &MockClient{}},
		{"openai", "openai", "sk-real", ModeLive, &OpenAIClient{}},
		{"gemini", "gemini", "g-real", ModeLive, &GeminiClient{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.LLM.Provider = tt.provider
			cfg.LLM.APIKey = tt.key

			client, mode, err := NewClientFromConfig(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, mode)
			assert.IsType(t, tt.want, client)
		})
	}
}

func wakeRequest(wakeCtx string, assistantTurns int) types.ChatRequest {
	req := types.ChatRequest{Messages: []types.Message{{Role: types.RoleUser, Content: wakeCtx}}}
	for i := 0; i < assistantTurns; i++ {
		req.Messages = append(req.Messages,
			types.Message{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: "x", Name: "save_thought"}}},
			types.Message{Role: types.RoleTool, ToolCallID: "x", Content: "ok"},
		)
	}
	return req
}

func TestMockClient_WalksThroughAWake(t *testing.T) {
	ctx := context.Background()
	m := NewMockClient(7)
	wakeContext := "## New visitors (1)\n- **Ada** (id: visitor-2026-03-01T06-00-a1b2c3): \"hi\""

	first, err := m.Chat(ctx, wakeRequest(wakeContext, 0))
	require.NoError(t, err)
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, "save_thought", first.ToolCalls[0].Name)
	mood := first.ToolCalls[0].Input["mood"]

	var last *types.LLMToolResponse
	for turn := 1; turn <= 2; turn++ {
		last, err = m.Chat(ctx, wakeRequest(wakeContext, turn))
		require.NoError(t, err)
		require.Len(t, last.ToolCalls, 1)
		call := last.ToolCalls[0]
		if call.Name == "save_dream" {
			assert.Equal(t, []interface{}{"visitor-2026-03-01T06-00-a1b2c3"}, call.Input["inspired_by"])
			continue
		}
		assert.Equal(t, "done", call.Name)
		assert.Equal(t, mood, call.Input["mood"], "mood is stable across one wake")
		assert.NotEmpty(t, call.Input["self_prompt"])
		return
	}
	t.Fatalf("mock never called done, last=%v", last.ToolCalls)
}

func TestMockClient_Deterministic(t *testing.T) {
	a, _ := NewMockClient(42).Chat(context.Background(), wakeRequest("same context", 0))
	b, _ := NewMockClient(42).Chat(context.Background(), wakeRequest("same context", 0))
	assert.Equal(t, a, b)
}

type recordingObserver struct {
	provider string
	usage    types.UsageMetadata
	err      error
	calls    int
}

func (r *recordingObserver) ObserveModelCall(provider string, _ time.Duration, usage types.UsageMetadata, err error) {
	r.provider, r.usage, r.err = provider, usage, err
	r.calls++
}

func TestTracingClient(t *testing.T) {
	boom := errors.New("boom")
	inner := NewScriptedClient(
		Step{Response: &types.LLMToolResponse{Text: "hi", Usage: types.UsageMetadata{TotalTokens: 9}}},
		Fail(boom),
	)
	obs := &recordingObserver{}
	tc := NewTracingClient(inner, "openai", obs)

	resp, err := tc.Chat(context.Background(), types.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)
	assert.Equal(t, 9, obs.usage.TotalTokens)
	assert.Equal(t, "openai", obs.provider)

	_, err = tc.Chat(context.Background(), types.ChatRequest{})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, obs.err, boom)
	assert.Equal(t, 2, obs.calls)
}

func TestScriptedClient(t *testing.T) {
	s := NewScriptedClient(
		Reply("", Call("c1", "done", map[string]interface{}{"mood": "calm"})),
	)
	msgs := []types.Message{{Role: types.RoleUser, Content: "ctx"}}
	resp, err := s.Chat(context.Background(), types.ChatRequest{Messages: msgs})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.ToolCalls[0].Name)

	msgs[0].Content = "mutated"
	assert.Equal(t, "ctx", s.Requests()[0].Messages[0].Content, "requests are snapshots")

	_, err = s.Chat(context.Background(), types.ChatRequest{})
	assert.ErrorIs(t, err, ErrScriptExhausted)
	assert.Equal(t, 0, s.Remaining())
}

func TestTracingClient_Complete(t *testing.T) {
	inner := NewScriptedClient(Reply("  Someone left a question hanging in the air.\n"))
	obs := &recordingObserver{}
	tc := NewTracingClient(inner, "openai", obs)

	out, err := tc.Complete(context.Background(), "transform", "Do you sleep?",
		types.CompletionOptions{Temperature: 0.85, MaxTokens: 80})
	require.NoError(t, err)
	assert.Equal(t, "Someone left a question hanging in the air.", out)
	assert.Equal(t, 1, obs.calls)

	req := inner.Requests()[0]
	assert.Equal(t, "transform", req.System)
	assert.Equal(t, "Do you sleep?", req.Messages[0].Content)
	assert.InDelta(t, 0.85, req.Temperature, 1e-9)
	assert.Equal(t, 80, req.MaxTokens)
	assert.Empty(t, req.Tools)

	_, err = tc.Complete(context.Background(), "transform", "again", types.CompletionOptions{})
	assert.ErrorIs(t, err, ErrScriptExhausted)
	assert.ErrorIs(t, obs.err, ErrScriptExhausted)
}
