package vfs

import (
	"sort"
)

// NodeType tags a Node as a file or a directory.
type NodeType string

const (
	FileType      NodeType = "file"
	DirectoryType NodeType = "directory"
)

// Node is a file or directory in a FileSystem tree. Fields are only mutated
// by the owning FileSystem; callers should look nodes up by path instead of
// holding on to them across mutations.
type Node struct {
	typ      NodeType
	name     string
	path     string
	content  string
	children map[string]*Node // nil for files
}

func newFile(name, path, content string) *Node {
	return &Node{typ: FileType, name: name, path: path, content: content}
}

func newDirectory(name, path string) *Node {
	return &Node{typ: DirectoryType, name: name, path: path, children: make(map[string]*Node)}
}

func (n *Node) Type() NodeType { return n.typ }

// Name is the last path segment; empty for the root.
func (n *Node) Name() string { return n.name }

func (n *Node) Path() string { return n.path }

// Content returns file content; always empty for directories.
func (n *Node) Content() string { return n.content }

func (n *Node) IsDir() bool { return n.typ == DirectoryType }

// Children returns the direct children sorted by name.
func (n *Node) Children() []*Node {
	if n.children == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
