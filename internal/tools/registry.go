package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const argsPreviewChars = 200

// Registry holds the tools offered to a session and runs their calls.
// It is thread-safe; registration order is the order offered to the model.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string

	activity ActivityLogger
	observer CallObserver
}

// NewRegistry creates an empty registry. activity may be nil.
func NewRegistry(activity ActivityLogger) *Registry {
	return &Registry{
		tools:    make(map[string]*Tool),
		activity: activity,
	}
}

// SetObserver installs a call observer.
func (r *Registry) SetObserver(o CallObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// Register adds a tool. Tools without Execute are offered but never run.
func (r *Registry) Register(tool *Tool) error {
	if tool.Name == "" {
		return ErrToolNameEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	r.order = append(r.order, tool.Name)

	logging.ToolsDebug("Registered tool: %s (action=%q)", tool.Name, tool.Action)
	return nil
}

// MustRegister registers a tool and panics on error.
// Use this for static tool registration at init time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil if not found.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns the tool definitions for a model request.
func (r *Registry) Definitions() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]types.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs one tool call. It never returns an error: every failure,
// including a panic inside the tool, becomes an "Error: ..." result. The
// call is recorded in the activity log before it runs.
func (r *Registry) Execute(ctx context.Context, call types.ToolCall) (out Outcome) {
	start := time.Now()
	r.logCall(call)

	defer func() {
		if rec := recover(); rec != nil {
			logging.Get(logging.CategoryTools).Error("Tool %s panicked: %v", call.Name, rec)
			out = Outcome{Result: fmt.Sprintf("Error: internal failure in %s", call.Name)}
		}
		r.observe(call.Name, out.OK)
		logging.ToolsDebug("Tool %s completed in %v (ok=%v)", call.Name, time.Since(start), out.OK)
	}()

	if call.ParseError != "" {
		return Outcome{Result: fmt.Sprintf("Error: arguments for %s are not valid JSON: %s", call.Name, call.ParseError)}
	}

	tool := r.Get(call.Name)
	if tool == nil {
		return Outcome{Result: fmt.Sprintf("Error: %v: %q", ErrUnknownTool, call.Name)}
	}
	if tool.Execute == nil {
		return Outcome{Result: fmt.Sprintf("Error: %s is handled by the session, not executed", call.Name)}
	}

	args, err := ParseArgs(call.Name, call.Input)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			logging.ToolsWarn("Validation failed: %v", verr)
		}
		return Outcome{Result: "Error: " + err.Error()}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		logging.ToolsWarn("Tool %s failed: %v", call.Name, err)
		return Outcome{Result: "Error: " + err.Error(), Args: args}
	}
	return Outcome{Result: result, OK: true, Action: tool.Action, Args: args}
}

func (r *Registry) logCall(call types.ToolCall) {
	detail := fmt.Sprintf("tool=%s args=%s", call.Name, previewArgs(call.Input))
	logging.Tools("Tool call: %s", detail)
	if r.activity == nil {
		return
	}
	if err := r.activity.LogActivity("tool_call", detail); err != nil {
		logging.ToolsWarn("Failed to record tool call: %v", err)
	}
}

func (r *Registry) observe(name string, ok bool) {
	r.mu.RLock()
	o := r.observer
	r.mu.RUnlock()
	if o != nil {
		o.ObserveToolCall(name, ok)
	}
}

func previewArgs(input map[string]interface{}) string {
	data, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	runes := []rune(string(data))
	if len(runes) > argsPreviewChars {
		return string(runes[:argsPreviewChars])
	}
	return string(runes)
}
