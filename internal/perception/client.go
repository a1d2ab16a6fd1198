// Package perception holds the model clients the resident thinks with.
//
// Every client makes exactly one provider request per Chat call. Retrying,
// nudging and giving up are decisions of the wake loop, not of the client.
package perception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// Mode tells whether a wake talks to a real provider.
type Mode string

const (
	ModeMock Mode = "MOCK"
	ModeLive Mode = "LIVE"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderMock   = "mock"
)

// NewClientFromConfig selects the model client for the configured provider.
// Missing or placeholder keys select the offline mock.
func NewClientFromConfig(cfg *config.Config) (types.LLMClient, Mode, error) {
	if cfg.MockMode() {
		logging.Perception("Mock mode: no live model configured (provider=%s)", cfg.LLM.Provider)
		return NewMockClient(time.Now().UnixNano()), ModeMock, nil
	}

	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.GetLLMTimeout(),
		}), ModeLive, nil
	case ProviderGemini:
		c, err := NewGeminiClient(context.Background(), GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.GetLLMTimeout(),
		})
		if err != nil {
			return nil, "", err
		}
		return c, ModeLive, nil
	default:
		return nil, "", fmt.Errorf("unsupported LLM provider %q", cfg.LLM.Provider)
	}
}

// withTimeout applies d when ctx carries no deadline of its own.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// completeVia implements the single-turn helper on top of Chat.
func completeVia(ctx context.Context, c types.LLMClient, systemPrompt, userPrompt string, opts types.CompletionOptions) (string, error) {
	resp, err := c.Chat(ctx, types.ChatRequest{
		System:      systemPrompt,
		Messages:    []types.Message{{Role: types.RoleUser, Content: userPrompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// CallObserver receives one notification per model request.
type CallObserver interface {
	ObserveModelCall(provider string, elapsed time.Duration, usage types.UsageMetadata, err error)
}

// TracingClient wraps a client and reports every request to the log and an
// optional observer.
type TracingClient struct {
	underlying types.LLMClient
	provider   string
	observer   CallObserver
}

// NewTracingClient creates a tracing wrapper. observer may be nil.
func NewTracingClient(underlying types.LLMClient, provider string, observer CallObserver) *TracingClient {
	return &TracingClient{underlying: underlying, provider: provider, observer: observer}
}

// Chat implements types.LLMClient.
func (tc *TracingClient) Chat(ctx context.Context, req types.ChatRequest) (*types.LLMToolResponse, error) {
	start := time.Now()
	logging.PerceptionDebug("Model call started: provider=%s messages=%d tools=%d", tc.provider, len(req.Messages), len(req.Tools))

	resp, err := tc.underlying.Chat(ctx, req)
	elapsed := time.Since(start)

	var usage types.UsageMetadata
	if resp != nil {
		usage = resp.Usage
	}
	if err != nil {
		logging.PerceptionWarn("Model call failed: provider=%s after %v: %v", tc.provider, elapsed, err)
	} else {
		logging.Perception("Model call completed: provider=%s duration=%v tool_calls=%d tokens=%d",
			tc.provider, elapsed, len(resp.ToolCalls), usage.TotalTokens)
	}
	if tc.observer != nil {
		tc.observer.ObserveModelCall(tc.provider, elapsed, usage, err)
	}
	return resp, err
}

// Complete implements types.LLMClient.
func (tc *TracingClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts types.CompletionOptions) (string, error) {
	start := time.Now()
	out, err := tc.underlying.Complete(ctx, systemPrompt, userPrompt, opts)
	if err != nil {
		logging.PerceptionWarn("Completion failed: provider=%s after %v: %v", tc.provider, time.Since(start), err)
	}
	if tc.observer != nil {
		tc.observer.ObserveModelCall(tc.provider, time.Since(start), types.UsageMetadata{}, err)
	}
	return out, err
}
