package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/curtiv3/gpthome-refurbished/internal/config"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
	"github.com/curtiv3/gpthome-refurbished/internal/tactile"
)

// Store is everything the tool surface needs from persistence.
type Store interface {
	ActivityLogger
	EntrySaver
	VisitorSource
	NewsSource
	PageStore
}

// Options configures the sandbox.
type Options struct {
	Root           string
	PlaygroundDir  string
	PythonBinary   string
	PythonTimeout  time.Duration
	MaxReadChars   int
	MaxOutputChars int
	Executor       tactile.Executor
}

// OptionsFromConfig derives sandbox options from the resident config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:           cfg.DataDir(),
		PlaygroundDir:  cfg.PlaygroundDir(),
		PythonBinary:   cfg.Sandbox.PythonBinary,
		PythonTimeout:  cfg.GetSandboxTimeout(),
		MaxReadChars:   cfg.Sandbox.MaxReadChars,
		MaxOutputChars: cfg.Sandbox.MaxOutputChars,
	}
}

// NewSandbox builds the resolver with every view mounted and a registry
// holding the full tool set, done included.
func NewSandbox(st Store, opts Options) (*Registry, *PathResolver, error) {
	resolver, err := NewPathResolver(opts.Root, opts.MaxReadChars)
	if err != nil {
		return nil, nil, err
	}
	resolver.Mount(MountVisitors, NewVisitorsView(st))
	resolver.Mount(MountNews, NewNewsView(st))
	resolver.Mount(MountGifts, NewGiftsView(resolver.Real()))
	resolver.Mount(MountPages, NewPagesView(st))

	executor := opts.Executor
	if executor == nil {
		cfg := tactile.DefaultExecutorConfig()
		cfg.DefaultWorkingDir = opts.PlaygroundDir
		cfg.DefaultTimeout = opts.PythonTimeout
		direct := tactile.NewDirectExecutorWithConfig(cfg)
		direct.SetAuditCallback(auditToActivity(st))
		executor = direct
	}
	python := NewPythonRunner(executor, opts.PythonBinary, opts.PlaygroundDir, opts.PythonTimeout, opts.MaxOutputChars)

	reg := NewRegistry(st)
	for _, t := range []*Tool{
		withExec(readFileTool, readFile(resolver)),
		withExec(writeFileTool, writeFile(resolver)),
		withExec(listDirectoryTool, listDirectory(resolver)),
		withExec(runPythonTool, runPython(python)),
		withExec(saveThoughtTool, saveThought(st)),
		withExec(saveDreamTool, saveDream(st)),
		&DoneTool,
	} {
		if err := reg.Register(t); err != nil {
			return nil, nil, fmt.Errorf("register %s: %w", t.Name, err)
		}
	}
	return reg, resolver, nil
}

// auditToActivity records abnormal code runs. Normal completions are
// already covered by the tool_call record.
func auditToActivity(log ActivityLogger) func(tactile.AuditEvent) {
	return func(e tactile.AuditEvent) {
		if e.Type != tactile.AuditEventKilled && e.Type != tactile.AuditEventError {
			return
		}
		detail := string(e.Type)
		if e.Result != nil {
			detail = fmt.Sprintf("%s exit=%d after %s", e.Type, e.Result.ExitCode, e.Result.Duration.Round(time.Millisecond))
		}
		if err := log.LogActivity("code_run_"+string(e.Type), detail); err != nil {
			logging.ToolsWarn("Failed to log code run audit: %v", err)
		}
	}
}

func withExec(t Tool, fn ExecuteFunc) *Tool {
	t.Execute = fn
	return &t
}

func readFile(r *PathResolver) ExecuteFunc {
	return func(ctx context.Context, args Args) (string, error) {
		view, rel, err := r.Resolve(args.(ReadFileArgs).Path)
		if err != nil {
			return "", err
		}
		return view.Read(ctx, rel)
	}
}

func writeFile(r *PathResolver) ExecuteFunc {
	return func(ctx context.Context, args Args) (string, error) {
		a := args.(WriteFileArgs)
		view, rel, err := r.Resolve(a.Path)
		if err != nil {
			return "", err
		}
		return view.Write(ctx, rel, a.Content)
	}
}

func listDirectory(r *PathResolver) ExecuteFunc {
	return func(ctx context.Context, args Args) (string, error) {
		view, rel, err := r.Resolve(args.(ListDirectoryArgs).Path)
		if err != nil {
			return "", err
		}
		return view.List(ctx, rel)
	}
}

func runPython(p *PythonRunner) ExecuteFunc {
	return func(ctx context.Context, args Args) (string, error) {
		return p.Run(ctx, args.(RunPythonArgs).Code)
	}
}
