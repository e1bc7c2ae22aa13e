package tools

import (
	"encoding/json"
	"testing"

	"uigen/internal/vfs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, d *Dispatcher, fs *vfs.FileSystem, tool string, args map[string]any) Result {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	res, err := d.Execute(fs, tool, raw)
	require.NoError(t, err)
	assert.Equal(t, tool, res.Tool)
	return res
}

func TestDispatcher_Editor(t *testing.T) {
	d := NewDispatcher(nil)
	fs := vfs.New()
	_, err := fs.Create("/App.jsx", "ab ab ab")
	require.NoError(t, err)
	_, err = fs.CreateDirectory("/lib")
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		wantErr bool
	}{
		{
			name: "create",
			args: map[string]any{"command": "create", "path": "components/Card.jsx", "file_text": "x"},
			want: "File created: /components/Card.jsx",
		},
		{
			name:    "create existing",
			args:    map[string]any{"command": "create", "path": "/App.jsx", "file_text": "x"},
			want:    "Error: File already exists: /App.jsx",
			wantErr: true,
		},
		{
			name:    "create disallowed extension",
			args:    map[string]any{"command": "create", "path": "/run.sh", "file_text": "x"},
			want:    "Error: file type not allowed: .sh",
			wantErr: true,
		},
		{
			name: "view file",
			args: map[string]any{"command": "view", "path": "/App.jsx"},
			want: "1\tab ab ab",
		},
		{
			name: "view empty directory",
			args: map[string]any{"command": "view", "path": "/lib"},
			want: "(empty directory)",
		},
		{
			name:    "view missing",
			args:    map[string]any{"command": "view", "path": "/nope.js"},
			want:    "File not found: /nope.js",
			wantErr: true,
		},
		{
			name:    "str_replace missing string",
			args:    map[string]any{"command": "str_replace", "path": "/App.jsx", "old_str": "zz", "new_str": "y"},
			want:    `Error: String not found in file: "zz"`,
			wantErr: true,
		},
		{
			name:    "str_replace directory",
			args:    map[string]any{"command": "str_replace", "path": "/lib", "old_str": "a", "new_str": "b"},
			want:    "Error: Cannot edit a directory: /lib",
			wantErr: true,
		},
		{
			name:    "str_replace missing file",
			args:    map[string]any{"command": "str_replace", "path": "/x.js", "old_str": "a", "new_str": "b"},
			want:    "Error: File not found: /x.js",
			wantErr: true,
		},
		{
			name:    "insert without line",
			args:    map[string]any{"command": "insert", "path": "/App.jsx", "new_str": "x"},
			want:    "Error: insert_line is required",
			wantErr: true,
		},
		{
			name:    "insert out of range",
			args:    map[string]any{"command": "insert", "path": "/App.jsx", "insert_line": 5, "new_str": "x"},
			want:    "Error: Invalid line number: 5. File has 1 lines.",
			wantErr: true,
		},
		{
			name:    "undo",
			args:    map[string]any{"command": "undo_edit", "path": "/App.jsx"},
			want:    "Error: undo_edit command is not supported in this version. Use str_replace to revert changes.",
			wantErr: true,
		},
		{
			name:    "unknown command",
			args:    map[string]any{"command": "explode", "path": "/App.jsx"},
			want:    `Error: invalid arguments for str_replace_editor: unknown command "explode"`,
			wantErr: true,
		},
		{
			name:    "missing path",
			args:    map[string]any{"command": "view"},
			want:    "Error: invalid arguments for str_replace_editor: path is required",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, d, fs, EditorTool, tt.args)
			assert.Equal(t, tt.want, res.Output)
			assert.Equal(t, tt.wantErr, res.IsError)
		})
	}
}

func TestDispatcher_EditorEdits(t *testing.T) {
	d := NewDispatcher(nil)
	fs := vfs.New()
	_, err := fs.Create("/f.txt", "ab ab ab")
	require.NoError(t, err)

	res := call(t, d, fs, EditorTool, map[string]any{
		"command": "str_replace", "path": "f.txt", "old_str": "ab", "new_str": "x",
	})
	assert.Equal(t, "Replaced 3 occurrence(s) of the string in /f.txt", res.Output)
	assert.False(t, res.IsError)

	res = call(t, d, fs, EditorTool, map[string]any{
		"command": "insert", "path": "/f.txt", "insert_line": 0, "new_str": "top",
	})
	assert.Equal(t, "Text inserted at line 0 in /f.txt", res.Output)

	res = call(t, d, fs, EditorTool, map[string]any{
		"command": "view", "path": "/f.txt", "view_range": []int{2, -1},
	})
	assert.Equal(t, "2\tx x x", res.Output)

	content, err := fs.Read("/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "top\nx x x", content)
}

func TestDispatcher_FileManager(t *testing.T) {
	d := NewDispatcher(nil)
	fs := vfs.New()
	_, err := fs.Create("/a/b.txt", "b")
	require.NoError(t, err)
	_, err = fs.Create("/c.txt", "c")
	require.NoError(t, err)

	res := call(t, d, fs, FileManagerTool, map[string]any{"command": "rename", "path": "/a", "new_path": "/z"})
	assert.False(t, res.IsError)
	assert.JSONEq(t, `{"success":true,"message":"Successfully renamed /a to /z"}`, res.Output)
	assert.True(t, fs.Exists("/z/b.txt"))

	res = call(t, d, fs, FileManagerTool, map[string]any{"command": "rename", "path": "/c.txt", "new_path": "/z/b.txt"})
	assert.True(t, res.IsError)
	assert.JSONEq(t, `{"success":false,"error":"Destination already exists: /z/b.txt"}`, res.Output)

	res = call(t, d, fs, FileManagerTool, map[string]any{"command": "delete", "path": "/z"})
	assert.JSONEq(t, `{"success":true,"message":"Successfully deleted /z"}`, res.Output)
	assert.False(t, fs.Exists("/z/b.txt"))

	res = call(t, d, fs, FileManagerTool, map[string]any{"command": "delete", "path": "/../etc"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Output, `"success":false`)

	res = call(t, d, fs, FileManagerTool, map[string]any{"command": "rename", "path": "/c.txt"})
	assert.Equal(t, "Error: invalid arguments for file_manager: new_path is required for rename", res.Output)
}

func TestDispatcher_UnknownTool(t *testing.T) {
	d := NewDispatcher(nil)
	_, err := d.Execute(vfs.New(), "shell", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestDispatcher_MalformedArguments(t *testing.T) {
	d := NewDispatcher(nil)
	res, err := d.Execute(vfs.New(), EditorTool, json.RawMessage(`{"command": 3}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Output, "Error: invalid arguments for str_replace_editor:")
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, EditorTool, defs[0].Name)
	assert.Equal(t, FileManagerTool, defs[1].Name)

	raw, err := json.Marshal(defs)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"input_schema"`)
}
