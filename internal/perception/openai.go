package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
		Timeout: 120 * time.Second,
	}
}

// OpenAIClient talks to any /chat/completions endpoint.
type OpenAIClient struct {
	model   string
	timeout time.Duration
	http    *resty.Client
}

// NewOpenAIClient creates a client. Empty fields take the defaults.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	def := DefaultOpenAIConfig(cfg.APIKey)
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &OpenAIClient{model: cfg.Model, timeout: cfg.Timeout, http: client}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string {
	return c.model
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAIFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat sends the transcript in one POST. A non-2xx status is an error and
// is not retried.
func (c *OpenAIClient) Chat(ctx context.Context, req types.ChatRequest) (*types.LLMToolResponse, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	body := c.buildRequest(req)
	logging.PerceptionDebug("[OpenAI] Chat: model=%s messages=%d tools=%d", c.model, len(body.Messages), len(body.Tools))

	var result openAIResponse
	var apiErr openAIError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return nil, fmt.Errorf("openai request failed with status %d: %s", resp.StatusCode(), msg)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	choice := result.Choices[0]
	out := &types.LLMToolResponse{
		StopReason: choice.FinishReason,
		Usage: types.UsageMetadata{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
			TotalTokens:  result.Usage.TotalTokens,
		},
	}
	if choice.Message.Content != nil {
		out.Text = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, parseOpenAIToolCall(tc))
	}
	return out, nil
}

// Complete implements the single-turn helper.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts types.CompletionOptions) (string, error) {
	return completeVia(ctx, c, systemPrompt, userPrompt, opts)
}

func (c *OpenAIClient) buildRequest(req types.ChatRequest) openAIRequest {
	body := openAIRequest{
		Model:       c.model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: strPtr(req.System)})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, toOpenAIMessage(m))
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, openAITool{
			Type:     "function",
			Function: openAIFunction{Name: t.Name, Description: t.Description, Parameters: t.InputSchema},
		})
	}
	if len(body.Tools) > 0 {
		body.ToolChoice = "auto"
	}
	return body
}

func toOpenAIMessage(m types.Message) openAIMessage {
	switch m.Role {
	case types.RoleTool:
		return openAIMessage{Role: "tool", Content: strPtr(m.Content), ToolCallID: m.ToolCallID}
	case types.RoleAssistant:
		msg := openAIMessage{Role: "assistant"}
		if m.Content != "" || len(m.ToolCalls) == 0 {
			msg.Content = strPtr(m.Content)
		}
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(tc.Input)
			if err != nil || tc.Input == nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, openAIToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: openAIFunctionCall{Name: tc.Name, Arguments: string(args)},
			})
		}
		return msg
	default:
		return openAIMessage{Role: "user", Content: strPtr(m.Content)}
	}
}

// parseOpenAIToolCall decodes the argument string. Arguments that are not a
// JSON object are kept as a parse error so the tool layer can answer them.
func parseOpenAIToolCall(tc openAIToolCall) types.ToolCall {
	call := types.ToolCall{ID: tc.ID, Name: tc.Function.Name}
	raw := strings.TrimSpace(tc.Function.Arguments)
	if raw == "" {
		call.Input = map[string]interface{}{}
		return call
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		logging.PerceptionWarn("[OpenAI] Malformed arguments for %s: %v", tc.Function.Name, err)
		call.ParseError = err.Error()
		return call
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	call.Input = args
	return call
}

func strPtr(s string) *string {
	return &s
}
