package types

import "context"

// LLMClient is the model session seam. Implementations make exactly one
// provider request per call; callers decide what a failure means.
type LLMClient interface {
	// Chat submits the whole transcript with the offered tools and returns
	// the model's next turn.
	Chat(ctx context.Context, req ChatRequest) (*LLMToolResponse, error)
	// Complete is a single-turn helper without tools.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompletionOptions) (string, error)
}

// CompletionOptions tunes a single-turn completion. Zero values leave the
// provider defaults.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one transcript turn. Assistant turns may carry tool calls;
// tool turns answer exactly one call by ID.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ChatRequest is a full model request.
type ChatRequest struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// ToolDefinition describes a tool that the LLM can invoke.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
	// ParseError is set when the provider sent arguments that were not a
	// JSON object. The call is still surfaced so the tool layer can answer it.
	ParseError string `json:"parse_error,omitempty"`
}

// UsageMetadata captures token usage metrics from the LLM.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates usage across turns.
func (u *UsageMetadata) Add(o UsageMetadata) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// LLMToolResponse is one model turn.
type LLMToolResponse struct {
	Text       string        `json:"text"`        // may be empty if only tool calls
	ToolCalls  []ToolCall    `json:"tool_calls"`  // tool invocations requested by LLM
	StopReason string        `json:"stop_reason"` // "stop", "tool_calls", ...
	Usage      UsageMetadata `json:"usage"`
}
