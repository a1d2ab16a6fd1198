package tools

import (
	"errors"
	"fmt"
)

// Tool surface errors. Every one of them ends up as an "Error: ..." tool
// result; none escapes the registry.
var (
	// ErrUnknownTool is returned for a tool name outside the fixed set.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolExecuteNil is returned when a tool has no execute function.
	ErrToolExecuteNil = errors.New("tool execute function cannot be nil")

	// ErrToolAlreadyRegistered is returned when registering a duplicate.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrPathRejected is returned for paths that fail sandbox validation.
	ErrPathRejected = errors.New("invalid or unsafe path")

	// ErrReadOnly is returned for writes into a read-only zone.
	ErrReadOnly = errors.New("read-only area")
)

// ValidationError reports a missing or mistyped tool argument.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: argument %q %s", e.Tool, e.Field, e.Reason)
}

func missing(tool, field string) error {
	return &ValidationError{Tool: tool, Field: field, Reason: "is required"}
}

func mistyped(tool, field, want string) error {
	return &ValidationError{Tool: tool, Field: field, Reason: "must be " + want}
}
