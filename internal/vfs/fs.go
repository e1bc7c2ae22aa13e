// Package vfs implements the in-memory file tree that projects are edited in.
//
// A FileSystem owns a tree of Nodes rooted at "/" plus a flat index from
// normalized path to Node. Every mutation keeps the two in exact
// correspondence: each reachable node has one index entry under its current
// path and nothing else is indexed. A FileSystem is not safe for concurrent
// use; callers serialize access (see the session package).
package vfs

import (
	"fmt"

	apperrors "uigen/internal/errors"

	"go.uber.org/zap"
)

type FileSystem struct {
	root   *Node
	index  map[string]*Node
	limits Limits
	logger *zap.Logger

	version uint64                    // bumped on every mutation
	snap    map[string]SerializedNode // cached Serialize result
	snapVer uint64                    // version snap was built at
}

type Option func(*FileSystem)

func WithLogger(logger *zap.Logger) Option {
	return func(fs *FileSystem) {
		if logger != nil {
			fs.logger = logger
		}
	}
}

func WithLimits(limits Limits) Option {
	return func(fs *FileSystem) {
		fs.limits = limits
	}
}

// New returns an empty FileSystem holding only the root directory.
func New(opts ...Option) *FileSystem {
	fs := &FileSystem{
		limits: DefaultLimits(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fs)
	}
	fs.root, fs.index = newTree()
	return fs
}

func newTree() (*Node, map[string]*Node) {
	root := newDirectory("", "/")
	return root, map[string]*Node{"/": root}
}

// Limits returns the policy this FileSystem enforces.
func (fs *FileSystem) Limits() Limits { return fs.limits }

// Version changes whenever the tree is mutated.
func (fs *FileSystem) Version() uint64 { return fs.version }

// Len is the number of live nodes, root included.
func (fs *FileSystem) Len() int { return len(fs.index) }

// Normalize sanitizes p against this FileSystem's path length limit.
func (fs *FileSystem) Normalize(p string) (string, error) {
	return normalize(p, fs.limits.MaxPathLength)
}

func (fs *FileSystem) Exists(p string) bool {
	_, ok := fs.GetNode(p)
	return ok
}

// GetNode looks up the node at p. Invalid paths are reported as missing.
func (fs *FileSystem) GetNode(p string) (*Node, bool) {
	norm, err := fs.Normalize(p)
	if err != nil {
		return nil, false
	}
	n, ok := fs.index[norm]
	return n, ok
}

// Create adds a file at p, creating missing ancestor directories. It fails
// if anything already exists at p, if an ancestor is a file, or if the file
// violates the content policy. Nothing is written on failure.
func (fs *FileSystem) Create(p, content string) (*Node, error) {
	norm, err := fs.Normalize(p)
	if err != nil {
		return nil, err
	}
	if _, ok := fs.index[norm]; ok {
		return nil, apperrors.Conflict(fmt.Sprintf("File already exists: %s", norm))
	}
	if !isDirectoryProbe(norm, content) {
		if err := fs.limits.checkFile(norm, content); err != nil {
			return nil, err
		}
	}
	missing, err := fs.planParents(norm)
	if err != nil {
		return nil, err
	}
	if err := fs.checkCapacity(len(missing) + 1); err != nil {
		return nil, err
	}

	parent := fs.mkdirAll(norm, missing)
	node := newFile(baseName(norm), norm, content)
	fs.link(parent, node)
	fs.logger.Debug("created file", zap.String("path", norm), zap.Int("size", len(content)))
	return node, nil
}

// CreateDirectory adds a directory at p, creating missing ancestors.
func (fs *FileSystem) CreateDirectory(p string) (*Node, error) {
	norm, err := fs.Normalize(p)
	if err != nil {
		return nil, err
	}
	if _, ok := fs.index[norm]; ok {
		return nil, apperrors.Conflict(fmt.Sprintf("Directory already exists: %s", norm))
	}
	missing, err := fs.planParents(norm)
	if err != nil {
		return nil, err
	}
	if err := fs.checkCapacity(len(missing) + 1); err != nil {
		return nil, err
	}

	parent := fs.mkdirAll(norm, missing)
	node := newDirectory(baseName(norm), norm)
	fs.link(parent, node)
	fs.logger.Debug("created directory", zap.String("path", norm))
	return node, nil
}

// Read returns the content of the file at p. Directories are reported as
// not found; use ViewFile or ListDirectory for them.
func (fs *FileSystem) Read(p string) (string, error) {
	norm, err := fs.Normalize(p)
	if err != nil {
		return "", err
	}
	n, ok := fs.index[norm]
	if !ok {
		return "", apperrors.NotFoundf("File not found: %s", norm)
	}
	if n.IsDir() {
		return "", apperrors.NotFoundf("Not a file: %s", norm)
	}
	return n.content, nil
}

// Update replaces the content of an existing file. Content validation runs
// on every update.
func (fs *FileSystem) Update(p, content string) error {
	n, err := fs.editableFile(p)
	if err != nil {
		return err
	}
	if err := fs.limits.checkContent(content); err != nil {
		return err
	}
	fs.setContent(n, content)
	return nil
}

// Delete removes the node at p and, for directories, everything below it.
func (fs *FileSystem) Delete(p string) error {
	norm, err := fs.Normalize(p)
	if err != nil {
		return err
	}
	if norm == "/" {
		return apperrors.ValidationError("cannot delete the root directory", nil)
	}
	n, ok := fs.index[norm]
	if !ok {
		return apperrors.NotFoundf("File not found: %s", norm)
	}

	removed := fs.unindex(n)
	delete(fs.index[Parent(norm)].children, n.name)
	fs.touch()
	fs.logger.Debug("deleted node", zap.String("path", norm), zap.Int("removed", removed))
	return nil
}

// Rename moves the node at oldPath to newPath, creating missing ancestors
// of newPath. Existing nodes are never overwritten. Moving a directory
// rewrites the path of every descendant.
func (fs *FileSystem) Rename(oldPath, newPath string) error {
	from, err := fs.Normalize(oldPath)
	if err != nil {
		return err
	}
	to, err := fs.Normalize(newPath)
	if err != nil {
		return err
	}
	if from == "/" {
		return apperrors.ValidationError("cannot rename the root directory", nil)
	}
	n, ok := fs.index[from]
	if !ok {
		return apperrors.NotFoundf("File not found: %s", from)
	}
	if _, ok := fs.index[to]; ok {
		return apperrors.Conflict(fmt.Sprintf("Destination already exists: %s", to))
	}
	if n.IsDir() && isWithin(to, from) {
		return apperrors.ValidationError(
			fmt.Sprintf("cannot move directory %s into itself", from), nil)
	}
	if !n.IsDir() {
		if err := fs.limits.checkExtension(to); err != nil {
			return err
		}
	}
	missing, err := fs.planParents(to)
	if err != nil {
		return err
	}
	if err := fs.checkCapacity(len(missing)); err != nil {
		return err
	}

	newParent := fs.mkdirAll(to, missing)
	delete(fs.index[Parent(from)].children, n.name)
	n.name = baseName(to)
	fs.repath(n, to)
	newParent.children[n.name] = n
	fs.touch()
	fs.logger.Debug("renamed node", zap.String("from", from), zap.String("to", to))
	return nil
}

// ListDirectory returns the direct children of the directory at p in no
// particular order.
func (fs *FileSystem) ListDirectory(p string) ([]*Node, error) {
	norm, err := fs.Normalize(p)
	if err != nil {
		return nil, err
	}
	n, ok := fs.index[norm]
	if !ok {
		return nil, apperrors.NotFoundf("Directory not found: %s", norm)
	}
	if !n.IsDir() {
		return nil, apperrors.NotFoundf("Not a directory: %s", norm)
	}
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	return out, nil
}

// Files returns the content of every file keyed by path.
func (fs *FileSystem) Files() map[string]string {
	out := make(map[string]string)
	for p, n := range fs.index {
		if !n.IsDir() {
			out[p] = n.content
		}
	}
	return out
}

// Reset discards every node and starts over from a bare root.
func (fs *FileSystem) Reset() {
	fs.root, fs.index = newTree()
	fs.touch()
	fs.logger.Debug("reset file system")
}

// planParents returns the ancestors of p that would have to be created,
// outermost first, or an error if an existing ancestor is not a directory.
func (fs *FileSystem) planParents(p string) ([]string, error) {
	var missing []string
	for _, anc := range ancestors(p) {
		n, ok := fs.index[anc]
		if !ok {
			missing = append(missing, anc)
			continue
		}
		if !n.IsDir() {
			return nil, apperrors.Conflict(fmt.Sprintf("Not a directory: %s", anc))
		}
	}
	return missing, nil
}

// mkdirAll creates the directories returned by planParents and returns the
// parent directory of p.
func (fs *FileSystem) mkdirAll(p string, missing []string) *Node {
	for _, dir := range missing {
		fs.link(fs.index[Parent(dir)], newDirectory(baseName(dir), dir))
	}
	return fs.index[Parent(p)]
}

func (fs *FileSystem) checkCapacity(adding int) error {
	if fs.limits.MaxNodes <= 0 || adding == 0 {
		return nil
	}
	if len(fs.index)-1+adding > fs.limits.MaxNodes {
		return apperrors.ValidationError(
			fmt.Sprintf("file limit reached: at most %d files and directories", fs.limits.MaxNodes), nil)
	}
	return nil
}

func (fs *FileSystem) link(parent, n *Node) {
	parent.children[n.name] = n
	fs.index[n.path] = n
	fs.touch()
}

// unindex drops n and its descendants from the index, children first, and
// returns how many entries were removed.
func (fs *FileSystem) unindex(n *Node) int {
	removed := 0
	for _, c := range n.children {
		removed += fs.unindex(c)
	}
	delete(fs.index, n.path)
	return removed + 1
}

// repath re-keys n under p and re-derives every descendant path top-down.
func (fs *FileSystem) repath(n *Node, p string) {
	delete(fs.index, n.path)
	n.path = p
	fs.index[p] = n
	for _, c := range n.children {
		fs.repath(c, joinPath(p, c.name))
	}
}

func (fs *FileSystem) editableFile(p string) (*Node, error) {
	norm, err := fs.Normalize(p)
	if err != nil {
		return nil, err
	}
	n, ok := fs.index[norm]
	if !ok {
		return nil, apperrors.NotFoundf("File not found: %s", norm)
	}
	if n.IsDir() {
		return nil, apperrors.ValidationError(fmt.Sprintf("Cannot edit a directory: %s", norm), nil)
	}
	return n, nil
}

func (fs *FileSystem) setContent(n *Node, content string) {
	n.content = content
	fs.touch()
	fs.logger.Debug("updated file", zap.String("path", n.path), zap.Int("size", len(content)))
}

// touch records a mutation and invalidates the serialized snapshot.
func (fs *FileSystem) touch() {
	fs.version++
	fs.snap = nil
}
