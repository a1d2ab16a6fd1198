// Package tools is the resident's sandboxed tool surface: a fixed set of
// capabilities offered to the model, each validating its input and failing
// closed. Paths resolve through a PathResolver onto either the real data
// directory or synthetic views over the store.
package tools

import (
	"context"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// JSONSchema renders the schema as a JSON Schema object.
func (s ToolSchema) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]interface{}{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Items != nil {
			prop["items"] = map[string]interface{}{"type": p.Items.Type}
		}
		props[name] = prop
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ExecuteFunc runs a tool with validated arguments. A returned error is
// reported to the model as the tool result.
type ExecuteFunc func(ctx context.Context, args Args) (string, error)

// Tool is one capability offered to the model.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	Description string

	// Schema defines the expected arguments.
	Schema ToolSchema

	// Action is the summary label recorded when the call succeeds; empty
	// for tools that only observe.
	Action string

	// Execute runs the tool. Nil for done, which the orchestrator handles.
	Execute ExecuteFunc
}

// Definition converts the tool for a model request.
func (t *Tool) Definition() types.ToolDefinition {
	return types.ToolDefinition{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.Schema.JSONSchema(),
	}
}

// Outcome is the result of one tool call as seen by the orchestrator.
type Outcome struct {
	// Result is the text returned to the model.
	Result string

	// OK is false when the call failed validation or execution.
	OK bool

	// Action is the summary label of a successful side-effecting call.
	Action string

	// Args are the parsed arguments when validation succeeded.
	Args Args
}

// ActivityLogger records tool calls in the activity log.
type ActivityLogger interface {
	LogActivity(kind, detail string) error
}

// CallObserver is notified after every tool call.
type CallObserver interface {
	ObserveToolCall(tool string, ok bool)
}
