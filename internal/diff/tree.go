package diff

import (
	"sort"
)

type FileStatus string

const (
	Added    FileStatus = "added"
	Removed  FileStatus = "removed"
	Modified FileStatus = "modified"
)

// FileDiff is the change to one path between two trees.
type FileDiff struct {
	Path   string     `json:"path"`
	Status FileStatus `json:"status"`
	Result *Result    `json:"result"`
}

// Trees compares two path -> content maps and returns one FileDiff per
// path that differs, sorted by path.
func (e *Engine) Trees(oldFiles, newFiles map[string]string) []FileDiff {
	paths := make(map[string]struct{}, len(oldFiles)+len(newFiles))
	for p := range oldFiles {
		paths[p] = struct{}{}
	}
	for p := range newFiles {
		paths[p] = struct{}{}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var out []FileDiff
	for _, p := range sorted {
		oldContent, inOld := oldFiles[p]
		newContent, inNew := newFiles[p]

		var status FileStatus
		switch {
		case !inOld:
			status = Added
		case !inNew:
			status = Removed
		case oldContent != newContent:
			status = Modified
		default:
			continue
		}
		out = append(out, FileDiff{Path: p, Status: status, Result: e.Diff(oldContent, newContent)})
	}
	return out
}
