package tools

const (
	EditorTool      = "str_replace_editor"
	FileManagerTool = "file_manager"
)

// Definition advertises a tool to a model: its name, what it does and the
// JSON schema of its arguments.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Definitions returns the tools a Dispatcher can execute.
func Definitions() []Definition {
	return []Definition{
		{
			Name: EditorTool,
			Description: "View, create and edit files in the project's virtual file system. " +
				"Paths are absolute, e.g. /App.jsx. view lists a directory or prints a file " +
				"with line numbers; create writes a new file and any missing directories; " +
				"str_replace replaces every occurrence of old_str; insert adds new_str as a " +
				"line before the 0-based insert_line.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type": "string",
						"enum": []string{"view", "create", "str_replace", "insert", "undo_edit"},
					},
					"path":      map[string]any{"type": "string", "description": "Absolute path of the file or directory."},
					"file_text": map[string]any{"type": "string", "description": "Content for create."},
					"old_str":   map[string]any{"type": "string", "description": "Exact text to replace for str_replace."},
					"new_str":   map[string]any{"type": "string", "description": "Replacement text for str_replace, or the line to add for insert."},
					"insert_line": map[string]any{
						"type":        "integer",
						"description": "Line index for insert; 0 prepends, the line count appends.",
					},
					"view_range": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "integer"},
						"description": "Optional [start, end] for view, 1-based and inclusive. end -1 reads to the end.",
					},
				},
				"required": []string{"command", "path"},
			},
		},
		{
			Name:        FileManagerTool,
			Description: "Rename, move or delete files and directories in the project's virtual file system.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{
						"type": "string",
						"enum": []string{"rename", "delete"},
					},
					"path":     map[string]any{"type": "string", "description": "Absolute path to rename or delete."},
					"new_path": map[string]any{"type": "string", "description": "Destination path for rename."},
				},
				"required": []string{"command", "path"},
			},
		},
	}
}
