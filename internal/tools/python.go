package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/tactile"
)

const (
	stderrMarker   = "\n[stderr]\n"
	outputTruncMsg = "\n[... truncated]"
	noOutput       = "(no output)"
)

// PythonRunner executes model-written code with `python -c` in the
// playground. It is best-effort containment, not an isolation boundary.
type PythonRunner struct {
	executor  tactile.Executor
	binary    string
	dir       string
	timeout   time.Duration
	maxOutput int
}

// NewPythonRunner creates a runner.
func NewPythonRunner(executor tactile.Executor, binary, dir string, timeout time.Duration, maxOutput int) *PythonRunner {
	return &PythonRunner{
		executor:  executor,
		binary:    binary,
		dir:       dir,
		timeout:   timeout,
		maxOutput: maxOutput,
	}
}

// Run executes code and renders the result for the model. Infrastructure
// failures (timeout, missing interpreter) are returned as errors.
func (p *PythonRunner) Run(ctx context.Context, code string) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("preparing playground: %w", err)
	}

	result, err := p.executor.Execute(ctx, tactile.Command{
		Binary:           p.binary,
		Arguments:        []string{"-c", code},
		WorkingDirectory: p.dir,
		Environment:      []string{"PYTHONDONTWRITEBYTECODE=1", "PYTHONIOENCODING=utf-8"},
		Limits:           &tactile.ResourceLimits{TimeoutMs: p.timeout.Milliseconds()},
	})
	if err != nil {
		return "", err
	}
	switch {
	case result.TimedOut:
		return "", fmt.Errorf("timed out after %s", p.timeout)
	case result.Killed:
		return "", fmt.Errorf("interrupted: %s", result.KillReason)
	case result.NotFound:
		return "", fmt.Errorf("%s not found in PATH", p.binary)
	case !result.Success:
		return "", fmt.Errorf("%s", result.Error)
	}

	logging.ToolsDebug("run_python exited %d (%s)", result.ExitCode, result.Duration)
	return renderOutput(result.Stdout, result.Stderr, p.maxOutput), nil
}

func renderOutput(stdout, stderr string, limit int) string {
	out := stdout
	if stderr != "" {
		out += stderrMarker + stderr
	}
	if strings.TrimSpace(out) == "" {
		return noOutput
	}
	if limit > 0 {
		if r := []rune(out); len(r) > limit {
			out = string(r[:limit]) + outputTruncMsg
		}
	}
	return out
}
