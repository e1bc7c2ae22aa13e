package vfs

import (
	"fmt"
	"sort"

	apperrors "uigen/internal/errors"

	"go.uber.org/zap"
)

// SerializedNode is the flat, child-free record of one node. Directory
// records carry no content.
type SerializedNode struct {
	Type    NodeType `json:"type"`
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Content *string  `json:"content,omitempty"`
}

// Serialize returns every node keyed by path, root included. The result is
// cached until the next mutation; callers get their own copy of the map and
// of every content string.
func (fs *FileSystem) Serialize() map[string]SerializedNode {
	if fs.snap == nil || fs.snapVer != fs.version {
		snap := make(map[string]SerializedNode, len(fs.index))
		for p, n := range fs.index {
			rec := SerializedNode{Type: n.typ, Name: n.name, Path: p}
			if !n.IsDir() {
				content := n.content
				rec.Content = &content
			}
			snap[p] = rec
		}
		fs.snap = snap
		fs.snapVer = fs.version
	}
	return cloneNodes(fs.snap)
}

// cloneNodes copies the map and gives every file record its own content
// pointer, so writes through a returned record never reach the cache.
func cloneNodes(src map[string]SerializedNode) map[string]SerializedNode {
	out := make(map[string]SerializedNode, len(src))
	for p, rec := range src {
		if rec.Content != nil {
			content := *rec.Content
			rec.Content = &content
		}
		out[p] = rec
	}
	return out
}

// Deserialize replaces the tree with files built from path -> content.
// Directories are inferred from the paths. On error the current tree is
// left untouched.
func (fs *FileSystem) Deserialize(files map[string]string) error {
	next := fs.scratch()
	for _, p := range sortedKeys(files) {
		if _, err := next.Create(p, files[p]); err != nil {
			return fmt.Errorf("restoring %s: %w", p, err)
		}
	}
	fs.adopt(next)
	return nil
}

// DeserializeFromNodes replaces the tree with the records produced by
// Serialize, including empty directories. On error the current tree is
// left untouched.
func (fs *FileSystem) DeserializeFromNodes(nodes map[string]SerializedNode) error {
	next := fs.scratch()
	for _, p := range sortedKeys(nodes) {
		rec := nodes[p]
		norm, err := next.Normalize(p)
		if err != nil {
			return err
		}
		if norm == "/" {
			continue
		}

		switch rec.Type {
		case DirectoryType:
			if n, ok := next.index[norm]; ok && n.IsDir() {
				continue
			}
			_, err = next.CreateDirectory(norm)
		case FileType:
			content := ""
			if rec.Content != nil {
				content = *rec.Content
			}
			_, err = next.Create(norm, content)
		default:
			err = apperrors.ValidationError(fmt.Sprintf("unknown node type %q", rec.Type), nil)
		}
		if err != nil {
			return fmt.Errorf("restoring %s: %w", p, err)
		}
	}
	fs.adopt(next)
	return nil
}

// scratch returns an empty FileSystem with the same policy, used to build a
// replacement tree before swapping it in.
func (fs *FileSystem) scratch() *FileSystem {
	return New(WithLimits(fs.limits))
}

func (fs *FileSystem) adopt(next *FileSystem) {
	fs.root, fs.index = next.root, next.index
	fs.touch()
	fs.logger.Debug("loaded file system", zap.Int("nodes", len(fs.index)))
}

// sortedKeys orders paths lexicographically; an ancestor is always a prefix
// of its descendants and so sorts before them.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
