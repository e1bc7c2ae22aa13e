// Package tools executes model tool calls against a project's file system and
// renders their outcomes as the plain-text results the model reads back.
package tools

import (
	"encoding/json"
	"fmt"

	apperrors "uigen/internal/errors"
	"uigen/internal/vfs"

	"go.uber.org/zap"
)

const (
	errorPrefix = "Error: "

	undoUnsupported = "undo_edit command is not supported in this version. Use str_replace to revert changes."
)

// Result is the outcome of one tool call. Output is what the model sees;
// IsError mirrors whether Output carries a failure.
type Result struct {
	Tool    string `json:"tool"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error"`
}

type EditorArgs struct {
	Command    string  `json:"command"`
	Path       string  `json:"path"`
	FileText   *string `json:"file_text,omitempty"`
	OldStr     *string `json:"old_str,omitempty"`
	NewStr     *string `json:"new_str,omitempty"`
	InsertLine *int    `json:"insert_line,omitempty"`
	ViewRange  []int   `json:"view_range,omitempty"`
}

type FileManagerArgs struct {
	Command string `json:"command"`
	Path    string `json:"path"`
	NewPath string `json:"new_path,omitempty"`
}

type fileManagerResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Dispatcher struct {
	logger *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger}
}

// Execute runs the named tool against fs. Failures the model should see are
// reported in the Result; the returned error is reserved for unknown tools.
func (d *Dispatcher) Execute(fs *vfs.FileSystem, name string, args json.RawMessage) (Result, error) {
	var res Result
	switch name {
	case EditorTool:
		res = d.editor(fs, args)
	case FileManagerTool:
		res = d.fileManager(fs, args)
	default:
		return Result{}, fmt.Errorf("unknown tool %q", name)
	}
	res.Tool = name
	return res, nil
}

func (d *Dispatcher) editor(fs *vfs.FileSystem, raw json.RawMessage) Result {
	var args EditorArgs
	if err := decodeArgs(raw, &args); err != nil {
		return invalidArgs(EditorTool, err.Error())
	}
	if args.Command == "" {
		return invalidArgs(EditorTool, "command is required")
	}
	if args.Path == "" && args.Command != "undo_edit" {
		return invalidArgs(EditorTool, "path is required")
	}

	switch args.Command {
	case "view":
		var rng *vfs.ViewRange
		if len(args.ViewRange) > 0 {
			if len(args.ViewRange) != 2 {
				return invalidArgs(EditorTool, "view_range must be [start, end]")
			}
			rng = &vfs.ViewRange{Start: args.ViewRange[0], End: args.ViewRange[1]}
		}
		out, err := fs.ViewFile(args.Path, rng)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
				return failure(err.Error())
			}
			return d.fail(EditorTool, args.Path, err)
		}
		return success(out)

	case "create":
		content := deref(args.FileText)
		if err := fs.CreateFileWithParents(args.Path, content); err != nil {
			return d.fail(EditorTool, args.Path, err)
		}
		return success("File created: " + mustNormalize(fs, args.Path))

	case "str_replace":
		if args.OldStr == nil {
			return invalidArgs(EditorTool, "old_str is required")
		}
		count, err := fs.ReplaceInFile(args.Path, *args.OldStr, deref(args.NewStr))
		if err != nil {
			return d.fail(EditorTool, args.Path, err)
		}
		return success(fmt.Sprintf("Replaced %d occurrence(s) of the string in %s", count, mustNormalize(fs, args.Path)))

	case "insert":
		if args.InsertLine == nil {
			return failure(errorPrefix + "insert_line is required")
		}
		if err := fs.InsertInFile(args.Path, *args.InsertLine, deref(args.NewStr)); err != nil {
			return d.fail(EditorTool, args.Path, err)
		}
		return success(fmt.Sprintf("Text inserted at line %d in %s", *args.InsertLine, mustNormalize(fs, args.Path)))

	case "undo_edit":
		return failure(errorPrefix + undoUnsupported)

	default:
		return invalidArgs(EditorTool, fmt.Sprintf("unknown command %q", args.Command))
	}
}

func (d *Dispatcher) fileManager(fs *vfs.FileSystem, raw json.RawMessage) Result {
	var args FileManagerArgs
	if err := decodeArgs(raw, &args); err != nil {
		return invalidArgs(FileManagerTool, err.Error())
	}
	if args.Path == "" {
		return invalidArgs(FileManagerTool, "path is required")
	}

	var (
		msg string
		err error
	)
	switch args.Command {
	case "rename":
		if args.NewPath == "" {
			return invalidArgs(FileManagerTool, "new_path is required for rename")
		}
		if err = fs.Rename(args.Path, args.NewPath); err == nil {
			msg = fmt.Sprintf("Successfully renamed %s to %s",
				mustNormalize(fs, args.Path), mustNormalize(fs, args.NewPath))
		}
	case "delete":
		if err = fs.Delete(args.Path); err == nil {
			msg = fmt.Sprintf("Successfully deleted %s", mustNormalize(fs, args.Path))
		}
	default:
		return invalidArgs(FileManagerTool, fmt.Sprintf("unknown command %q", args.Command))
	}

	if err != nil {
		d.logFailure(FileManagerTool, args.Path, err)
		return Result{Output: encodeManager(fileManagerResult{Error: err.Error()}), IsError: true}
	}
	return Result{Output: encodeManager(fileManagerResult{Success: true, Message: msg})}
}

// fail renders err as an "Error: " result.
func (d *Dispatcher) fail(tool, path string, err error) Result {
	d.logFailure(tool, path, err)
	return failure(errorPrefix + err.Error())
}

// logFailure records every rejected call; sanitization failures point at a
// caller producing bad paths and are logged louder.
func (d *Dispatcher) logFailure(tool, path string, err error) {
	fields := []zap.Field{
		zap.String("tool", tool),
		zap.String("path", path),
		zap.String("type", string(apperrors.TypeOf(err))),
		zap.Error(err),
	}
	if apperrors.Is(err, apperrors.ErrorTypeInvalidPath) {
		d.logger.Warn("tool call used an invalid path", fields...)
		return
	}
	d.logger.Debug("tool call rejected", fields...)
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing arguments")
	}
	return json.Unmarshal(raw, v)
}

func invalidArgs(tool, detail string) Result {
	return failure(fmt.Sprintf("%sinvalid arguments for %s: %s", errorPrefix, tool, detail))
}

func success(out string) Result { return Result{Output: out} }

func failure(out string) Result { return Result{Output: out, IsError: true} }

func encodeManager(r fileManagerResult) string {
	b, _ := json.Marshal(r)
	return string(b)
}

// mustNormalize is only called after fs accepted p, so normalization cannot
// fail here.
func mustNormalize(fs *vfs.FileSystem, p string) string {
	norm, err := fs.Normalize(p)
	if err != nil {
		return p
	}
	return norm
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
