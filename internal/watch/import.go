// Package watch moves files between a local directory and a project's file
// system: a one-shot Import and Export, and a Watcher that mirrors local
// edits as they happen.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "uigen/internal/errors"
	"uigen/internal/vfs"
)

var defaultIgnoreDirs = map[string]bool{
	".git":         true,
	".next":        true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// Report summarizes an Import.
type Report struct {
	Created   int               `json:"created"`
	Updated   int               `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Skipped map[string]string `json:"skipped,omitempty"` // project path -> reason
}

func (r *Report) skip(p, reason string) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]string)
	}
	r.Skipped[p] = reason
}

// ShouldIgnore reports whether a slash- or OS-separated path relative to the
// watched root lies in an ignored directory or is a dotfile.
func ShouldIgnore(rel string) bool {
	if rel == "" || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if defaultIgnoreDirs[part] || strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// ProjectPath maps a path relative to the local root onto the project tree.
func ProjectPath(rel string) string {
	return "/" + filepath.ToSlash(rel)
}

// Import copies every file under dir into fsys, overwriting files that
// already exist. Files the project policy rejects are skipped and listed in
// the report rather than failing the import.
func Import(ctx context.Context, fsys *vfs.FileSystem, dir string) (Report, error) {
	return importTree(ctx, fsys, dir, dir)
}

// importTree imports the files below start, naming them relative to root.
func importTree(ctx context.Context, fsys *vfs.FileSystem, root, start string) (Report, error) {
	var report Report
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		if ShouldIgnore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		outcome, err := upsert(fsys, ProjectPath(rel), string(content))
		switch {
		case err == nil:
			report.count(outcome)
		case apperrors.Is(err, apperrors.ErrorTypeValidation), apperrors.Is(err, apperrors.ErrorTypeInvalidPath):
			report.skip(ProjectPath(rel), err.Error())
		default:
			return fmt.Errorf("importing %s: %w", rel, err)
		}
		return nil
	})
	return report, err
}

// upsertOutcome is what upsert did to a file.
type upsertOutcome int

const (
	outcomeCreated upsertOutcome = iota
	outcomeUpdated
	outcomeUnchanged
)

func (r *Report) count(o upsertOutcome) {
	switch o {
	case outcomeCreated:
		r.Created++
	case outcomeUpdated:
		r.Updated++
	default:
		r.Unchanged++
	}
}

// upsert writes content at p, creating the file if needed. A file whose
// content already matches is left alone.
func upsert(fsys *vfs.FileSystem, p, content string) (upsertOutcome, error) {
	n, ok := fsys.GetNode(p)
	if !ok {
		_, err := fsys.Create(p, content)
		return outcomeCreated, err
	}
	if n.IsDir() {
		return outcomeUnchanged, apperrors.Conflict(fmt.Sprintf("Not a file: %s", n.Path()))
	}
	if n.Content() == content {
		return outcomeUnchanged, nil
	}
	return outcomeUpdated, fsys.Update(p, content)
}

// Export writes files (project path -> content) under dir, creating
// directories as needed. Existing files are overwritten.
func Export(ctx context.Context, files map[string]string, dir string) error {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(p, "/")))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(filepath.Separator)) {
			return apperrors.InvalidPath(p, "escapes export directory")
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", p, err)
		}
		if err := os.WriteFile(target, []byte(files[p]), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", p, err)
		}
	}
	return nil
}
