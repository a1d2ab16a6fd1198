// Package tactile runs subprocesses for the resident: one command, a wall
// clock timeout, capped output and an audit callback. It is best-effort
// containment for a single process, not an isolation boundary.
package tactile

import "time"

// Command is the input to an Executor.
type Command struct {
	// Binary is the executable to run, resolved through PATH.
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the executor's default working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to set (in KEY=VALUE format), merged with the
	// executor's allowed environment.
	Environment []string `json:"environment,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// Limits overrides the executor defaults.
	Limits *ResourceLimits `json:"limits,omitempty"`
}

// ResourceLimits defines constraints on command execution.
type ResourceLimits struct {
	// TimeoutMs is the maximum wall time in milliseconds.
	TimeoutMs int64 `json:"timeout_ms,omitempty"`

	// MaxOutputBytes caps each of stdout and stderr.
	MaxOutputBytes int64 `json:"max_output_bytes,omitempty"`
}

// ExecutionResult describes a finished command.
type ExecutionResult struct {
	// Success reports that the executor itself worked. A non-zero exit or
	// a timeout kill is still a success.
	Success bool `json:"success"`

	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`

	// Error carries the infrastructure failure when Success is false.
	Error string `json:"error,omitempty"`

	// NotFound is set when the binary could not be resolved.
	NotFound bool `json:"not_found,omitempty"`

	Killed     bool   `json:"killed,omitempty"`
	KillReason string `json:"kill_reason,omitempty"`
	TimedOut   bool   `json:"timed_out,omitempty"`

	Truncated      bool  `json:"truncated,omitempty"`
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
}

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is emitted around every execution.
type AuditEvent struct {
	Type      AuditEventType   `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Command   Command          `json:"command"`
	Result    *ExecutionResult `json:"result,omitempty"`
}

// ExecutorConfig is the configuration for creating executors.
type ExecutorConfig struct {
	// DefaultWorkingDir is used when Command.WorkingDirectory is empty.
	DefaultWorkingDir string `json:"default_working_dir"`

	// DefaultTimeout applies when a command sets no limit.
	DefaultTimeout time.Duration `json:"default_timeout"`

	// MaxTimeout clamps any requested timeout.
	MaxTimeout time.Duration `json:"max_timeout"`

	// MaxOutputBytes caps each captured stream.
	MaxOutputBytes int64 `json:"max_output_bytes"`

	// AllowedEnvironment lists host variables passed through to children.
	AllowedEnvironment []string `json:"allowed_environment"`
}

// DefaultExecutorConfig returns the defaults used by the sandbox.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultWorkingDir:  ".",
		DefaultTimeout:     30 * time.Second,
		MaxTimeout:         2 * time.Minute,
		MaxOutputBytes:     1024 * 1024,
		AllowedEnvironment: []string{"PATH", "HOME", "LANG", "LC_ALL", "TMPDIR", "SYSTEMROOT"},
	}
}

// Merge fills unset command fields from the config.
func (c ExecutorConfig) Merge(cmd Command) Command {
	result := cmd
	if result.WorkingDirectory == "" {
		result.WorkingDirectory = c.DefaultWorkingDir
	}

	limits := ResourceLimits{}
	if cmd.Limits != nil {
		limits = *cmd.Limits
	}
	if limits.TimeoutMs <= 0 {
		limits.TimeoutMs = c.DefaultTimeout.Milliseconds()
	}
	if c.MaxTimeout > 0 && limits.TimeoutMs > c.MaxTimeout.Milliseconds() {
		limits.TimeoutMs = c.MaxTimeout.Milliseconds()
	}
	if limits.MaxOutputBytes <= 0 {
		limits.MaxOutputBytes = c.MaxOutputBytes
	}
	result.Limits = &limits
	return result
}
