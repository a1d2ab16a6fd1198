package tactile

import "context"

// Executor runs commands.
type Executor interface {
	// Execute runs a command. A returned error means the command was never
	// attempted; everything after start is reported in the result.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)

	// Validate checks if a command can be executed by this executor.
	Validate(cmd Command) error
}
