package tools

import (
	"fmt"
	"strings"
)

// Tool names. The set is closed.
const (
	ToolReadFile      = "read_file"
	ToolWriteFile     = "write_file"
	ToolListDirectory = "list_directory"
	ToolRunPython     = "run_python"
	ToolSaveThought   = "save_thought"
	ToolSaveDream     = "save_dream"
	ToolDone          = "done"
)

// Args is the validated argument set of one tool call. The concrete type
// identifies the tool.
type Args interface {
	ToolName() string
}

type ReadFileArgs struct {
	Path string
}

type WriteFileArgs struct {
	Path    string
	Content string
}

type ListDirectoryArgs struct {
	Path string
}

type RunPythonArgs struct {
	Code string
}

type SaveThoughtArgs struct {
	Title   string
	Content string
	Mood    string
}

type SaveDreamArgs struct {
	Title      string
	Content    string
	Mood       string
	InspiredBy []string
}

// DoneArgs ends a session. Every field is optional.
type DoneArgs struct {
	Summary    string
	Mood       string
	SelfPrompt string
}

func (ReadFileArgs) ToolName() string      { return ToolReadFile }
func (WriteFileArgs) ToolName() string     { return ToolWriteFile }
func (ListDirectoryArgs) ToolName() string { return ToolListDirectory }
func (RunPythonArgs) ToolName() string     { return ToolRunPython }
func (SaveThoughtArgs) ToolName() string   { return ToolSaveThought }
func (SaveDreamArgs) ToolName() string     { return ToolSaveDream }
func (DoneArgs) ToolName() string          { return ToolDone }

// ParseArgs validates raw JSON-decoded arguments for the named tool.
// It returns a *ValidationError for missing or mistyped required fields
// and ErrUnknownTool for names outside the fixed set. done never fails:
// non-string values are rendered as text.
func ParseArgs(name string, raw map[string]any) (Args, error) {
	p := argParser{tool: name, raw: raw}
	switch name {
	case ToolReadFile:
		a := ReadFileArgs{Path: p.required("path")}
		return a, p.err
	case ToolWriteFile:
		a := WriteFileArgs{Path: p.required("path"), Content: p.required("content")}
		return a, p.err
	case ToolListDirectory:
		a := ListDirectoryArgs{Path: p.optional("path")}
		return a, p.err
	case ToolRunPython:
		a := RunPythonArgs{Code: p.nonEmpty("code")}
		return a, p.err
	case ToolSaveThought:
		a := SaveThoughtArgs{Title: p.required("title"), Content: p.nonEmpty("content"), Mood: p.optional("mood")}
		return a, p.err
	case ToolSaveDream:
		a := SaveDreamArgs{
			Title:      p.required("title"),
			Content:    p.nonEmpty("content"),
			Mood:       p.optional("mood"),
			InspiredBy: p.stringList("inspired_by"),
		}
		return a, p.err
	case ToolDone:
		return DoneArgs{
			Summary:    lenient(raw["summary"]),
			Mood:       lenient(raw["mood"]),
			SelfPrompt: lenient(raw["self_prompt"]),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

// argParser records the first validation failure.
type argParser struct {
	tool string
	raw  map[string]any
	err  error
}

func (p *argParser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *argParser) required(field string) string {
	v, ok := p.raw[field]
	if !ok || v == nil {
		p.fail(missing(p.tool, field))
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail(mistyped(p.tool, field, "a string"))
	}
	return s
}

func (p *argParser) nonEmpty(field string) string {
	s := p.required(field)
	if p.err == nil && strings.TrimSpace(s) == "" {
		p.fail(&ValidationError{Tool: p.tool, Field: field, Reason: "must not be empty"})
	}
	return s
}

func (p *argParser) optional(field string) string {
	v, ok := p.raw[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		p.fail(mistyped(p.tool, field, "a string"))
	}
	return s
}

func (p *argParser) stringList(field string) []string {
	v, ok := p.raw[field]
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		p.fail(mistyped(p.tool, field, "a list of strings"))
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			p.fail(mistyped(p.tool, field, "a list of strings"))
			return nil
		}
		out = append(out, s)
	}
	return out
}

func lenient(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
