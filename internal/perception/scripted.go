package perception

import (
	"context"
	"errors"
	"sync"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// ErrScriptExhausted is returned once every scripted step was consumed.
var ErrScriptExhausted = errors.New("scripted client: no more responses")

// Step is one scripted reply: a response or an error.
type Step struct {
	Response *types.LLMToolResponse
	Err      error
}

// Reply scripts a response.
func Reply(text string, calls ...types.ToolCall) Step {
	return Step{Response: &types.LLMToolResponse{Text: text, ToolCalls: calls}}
}

// Fail scripts a provider failure.
func Fail(err error) Step {
	return Step{Err: err}
}

// Call builds a tool call for scripts.
func Call(id, name string, input map[string]interface{}) types.ToolCall {
	return types.ToolCall{ID: id, Name: name, Input: input}
}

// ScriptedClient replays canned steps and records every request it gets.
type ScriptedClient struct {
	mu       sync.Mutex
	steps    []Step
	requests []types.ChatRequest
}

// NewScriptedClient creates a client that replays steps in order.
func NewScriptedClient(steps ...Step) *ScriptedClient {
	return &ScriptedClient{steps: steps}
}

// Chat implements types.LLMClient.
func (s *ScriptedClient) Chat(ctx context.Context, req types.ChatRequest) (*types.LLMToolResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := req
	snapshot.Messages = append([]types.Message(nil), req.Messages...)
	s.requests = append(s.requests, snapshot)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.steps) == 0 {
		return nil, ErrScriptExhausted
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Complete implements types.LLMClient by consuming the next step.
func (s *ScriptedClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts types.CompletionOptions) (string, error) {
	return completeVia(ctx, s, systemPrompt, userPrompt, opts)
}

// Requests returns the recorded requests.
func (s *ScriptedClient) Requests() []types.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ChatRequest(nil), s.requests...)
}

// Remaining reports how many steps are left.
func (s *ScriptedClient) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}
