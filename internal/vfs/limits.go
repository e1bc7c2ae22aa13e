package vfs

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	apperrors "uigen/internal/errors"
)

const (
	// DefaultMaxFileSize bounds file content in bytes (1 MiB).
	DefaultMaxFileSize   = 1024 * 1024
	DefaultMaxPathLength = 1000
	DefaultMaxNodes      = 2000
)

var DefaultAllowedExtensions = []string{
	".js", ".jsx", ".ts", ".tsx", ".css", ".json", ".html", ".md", ".txt",
}

var scriptTagPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)

// Limits is the content and shape policy enforced on every write.
// Zero values disable the corresponding check.
type Limits struct {
	MaxFileSize       int      `json:"max_file_size" yaml:"max_file_size"`
	MaxPathLength     int      `json:"max_path_length" yaml:"max_path_length"`
	MaxNodes          int      `json:"max_nodes" yaml:"max_nodes"`
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:       DefaultMaxFileSize,
		MaxPathLength:     DefaultMaxPathLength,
		MaxNodes:          DefaultMaxNodes,
		AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
	}
}

// IsZero reports whether l is the zero value, which disables every check.
func (l Limits) IsZero() bool {
	return l.MaxFileSize == 0 && l.MaxPathLength == 0 && l.MaxNodes == 0 && len(l.AllowedExtensions) == 0
}

// checkFile runs the full creation policy for a file at the normalized path p.
func (l Limits) checkFile(p, content string) error {
	if err := l.checkExtension(p); err != nil {
		return err
	}
	return l.checkContent(content)
}

func (l Limits) checkExtension(p string) error {
	ext := strings.ToLower(path.Ext(baseName(p)))
	if ext == "" || len(l.AllowedExtensions) == 0 {
		return nil
	}
	for _, allowed := range l.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return apperrors.ValidationError(fmt.Sprintf("file type not allowed: %s", ext),
		map[string]any{"path": p, "allowed": l.AllowedExtensions})
}

func (l Limits) checkContent(content string) error {
	if l.MaxFileSize > 0 && len(content) > l.MaxFileSize {
		return apperrors.ValidationError(
			fmt.Sprintf("content exceeds maximum file size of %d bytes", l.MaxFileSize),
			map[string]int{"size": len(content), "max": l.MaxFileSize})
	}
	if scriptTagPattern.MatchString(content) {
		return apperrors.ValidationError("script tags are not allowed in file content", nil)
	}
	return nil
}

// isDirectoryProbe matches the create calls that skip content validation:
// empty content at a path without an extension.
func isDirectoryProbe(p, content string) bool {
	return content == "" && path.Ext(baseName(p)) == ""
}
