package vfs

import (
	"fmt"
	"slices"
	"strings"

	apperrors "uigen/internal/errors"
)

// EmptyDirectoryListing is what ViewFile shows for a directory with no children.
const EmptyDirectoryListing = "(empty directory)"

// ViewRange selects lines [Start, End] (1-based, inclusive). End -1 means
// the last line. Out-of-range values are clamped.
type ViewRange struct {
	Start int
	End   int
}

// ViewFile renders the node at p for a text-editing agent. Directories list
// their children as "[DIR] name" / "[FILE] name" sorted by name; files are
// rendered one "<line>\t<text>" per line.
func (fs *FileSystem) ViewFile(p string, r *ViewRange) (string, error) {
	norm, err := fs.Normalize(p)
	if err != nil {
		return "", err
	}
	n, ok := fs.index[norm]
	if !ok {
		return "", apperrors.NotFoundf("File not found: %s", norm)
	}

	if n.IsDir() {
		children := n.Children()
		if len(children) == 0 {
			return EmptyDirectoryListing, nil
		}
		entries := make([]string, 0, len(children))
		for _, c := range children {
			if c.IsDir() {
				entries = append(entries, "[DIR] "+c.name)
			} else {
				entries = append(entries, "[FILE] "+c.name)
			}
		}
		return strings.Join(entries, "\n"), nil
	}

	lines := strings.Split(n.content, "\n")
	start, end := 1, len(lines)
	if r != nil {
		start = max(1, r.Start)
		if r.End != -1 {
			end = min(len(lines), r.End)
		}
	}
	if start > end {
		return "", nil
	}

	var b strings.Builder
	for i := start; i <= end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\t%s", i, lines[i-1])
	}
	return b.String(), nil
}

// CreateFileWithParents creates a file and any missing parent directories.
func (fs *FileSystem) CreateFileWithParents(p, content string) error {
	_, err := fs.Create(p, content)
	return err
}

// ReplaceInFile replaces every literal occurrence of oldStr with newStr and
// returns how many were replaced.
func (fs *FileSystem) ReplaceInFile(p, oldStr, newStr string) (int, error) {
	n, err := fs.editableFile(p)
	if err != nil {
		return 0, err
	}
	if oldStr == "" {
		return 0, apperrors.ValidationError("old_str cannot be empty", nil)
	}
	count := strings.Count(n.content, oldStr)
	if count == 0 {
		return 0, apperrors.NotFound(`String not found in file: "` + oldStr + `"`)
	}

	updated := strings.ReplaceAll(n.content, oldStr, newStr)
	if err := fs.limits.checkContent(updated); err != nil {
		return 0, err
	}
	fs.setContent(n, updated)
	return count, nil
}

// InsertInFile inserts text as a new line before the 0-based line index.
// line 0 prepends and line == LineCount appends.
func (fs *FileSystem) InsertInFile(p string, line int, text string) error {
	n, err := fs.editableFile(p)
	if err != nil {
		return err
	}
	lines := strings.Split(n.content, "\n")
	if line < 0 || line > len(lines) {
		return apperrors.ValidationError(
			fmt.Sprintf("Invalid line number: %d. File has %d lines.", line, len(lines)),
			map[string]int{"line": line, "lines": len(lines)})
	}

	updated := strings.Join(slices.Insert(lines, line, text), "\n")
	if err := fs.limits.checkContent(updated); err != nil {
		return err
	}
	fs.setContent(n, updated)
	return nil
}
