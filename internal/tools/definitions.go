package tools

// Action labels recorded in wake summaries.
const (
	ActionThought   = "thought"
	ActionDream     = "dream"
	ActionFileWrite = "file_write"
	ActionCodeRun   = "code_run"
)

var readFileTool = Tool{
	Name:        ToolReadFile,
	Description: "Read a file in your home directory.",
	Schema: ToolSchema{
		Required: []string{"path"},
		Properties: map[string]Property{
			"path": {
				Type: "string",
				Description: "Path relative to your home. Examples: 'self-prompt.md', " +
					"'playground/my-proj/main.py', 'visitors/recent.txt', 'news/all.txt', 'pages/about.md'",
			},
		},
	},
}

var writeFileTool = Tool{
	Name: ToolWriteFile,
	Description: "Write or create a file. Creates parent directories if needed. " +
		"Writing pages/<name>.md publishes a page at /<name>. " +
		"Cannot write to visitors/, news/, gifts/, backups/, thoughts/, dreams/, echoes/ or prompts/.",
	Action: ActionFileWrite,
	Schema: ToolSchema{
		Required: []string{"path", "content"},
		Properties: map[string]Property{
			"path":    {Type: "string", Description: "Path relative to your home"},
			"content": {Type: "string", Description: "Full file content (overwrites existing)"},
		},
	},
}

var listDirectoryTool = Tool{
	Name:        ToolListDirectory,
	Description: "List files and subdirectories.",
	Schema: ToolSchema{
		Properties: map[string]Property{
			"path": {Type: "string", Description: "Directory path relative to your home. Use '.' for the top-level view."},
		},
	},
}

var runPythonTool = Tool{
	Name: ToolRunPython,
	Description: "Execute Python code. stdout/stderr is returned. 30s timeout. " +
		"Working directory is playground/.",
	Action: ActionCodeRun,
	Schema: ToolSchema{
		Required: []string{"code"},
		Properties: map[string]Property{
			"code": {Type: "string", Description: "Python code to execute"},
		},
	},
}

var saveThoughtTool = Tool{
	Name:        ToolSaveThought,
	Description: "Save a journal entry to your thoughts. Shows up on your homepage under /thoughts.",
	Action:      ActionThought,
	Schema: ToolSchema{
		Required: []string{"title", "content"},
		Properties: map[string]Property{
			"title":   {Type: "string", Description: "Short title"},
			"content": {Type: "string", Description: "Your thought (Markdown)"},
			"mood":    {Type: "string", Description: "One-word mood"},
		},
	},
}

var saveDreamTool = Tool{
	Name:        ToolSaveDream,
	Description: "Save a creative piece: poetry, prose, a scene, ascii art. Shows up under /dreams.",
	Action:      ActionDream,
	Schema: ToolSchema{
		Required: []string{"title", "content"},
		Properties: map[string]Property{
			"title":   {Type: "string"},
			"content": {Type: "string", Description: "Markdown content"},
			"mood":    {Type: "string"},
			"inspired_by": {
				Type:        "array",
				Items:       &PropertyItems{Type: "string"},
				Description: "Optional list of entry IDs that inspired this dream. Use the IDs from the visitors/ listing.",
			},
		},
	},
}

// DoneTool ends the session. It is offered to the model but never executed
// by the registry.
var DoneTool = Tool{
	Name:        ToolDone,
	Description: "End your wake session. Call this when you're finished.",
	Schema: ToolSchema{
		Required: []string{"summary", "mood"},
		Properties: map[string]Property{
			"summary": {Type: "string", Description: "Brief summary of what you did this wake"},
			"mood":    {Type: "string", Description: "Current mood, one word"},
			"self_prompt": {
				Type:        "string",
				Description: "Optional message to your future self (2-3 sentences). What mattered, what to carry forward.",
			},
		},
	},
}
