package vfs

import (
	"strings"
	"unicode/utf8"

	apperrors "uigen/internal/errors"
)

const invalidPathChars = `<>:"|?*`

// rawPathFactor bounds the unnormalized input at a multiple of the limit.
const rawPathFactor = 4

// Normalize returns the canonical absolute form of p using the default path
// length limit. See FileSystem.Normalize.
func Normalize(p string) (string, error) {
	return normalize(p, DefaultMaxPathLength)
}

// The limit counts characters of the normalized path. Raw input is only
// bounded loosely so redundant separators do not get a valid path rejected.
func normalize(p string, maxLen int) (string, error) {
	if maxLen > 0 && len(p) > rawPathFactor*maxLen {
		return "", apperrors.InvalidPath(truncate(p, 64), "path too long")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	segments := strings.Split(p, "/")
	kept := segments[:0]
	for _, seg := range segments {
		if seg == "" || seg == "." {
			continue
		}
		kept = append(kept, seg)
	}
	norm := "/" + strings.Join(kept, "/")

	if strings.Contains(norm, "..") {
		return "", apperrors.InvalidPath(p, "path traversal is not allowed")
	}
	if strings.Contains(norm, "~") {
		return "", apperrors.InvalidPath(p, "home directory references are not allowed")
	}
	for _, r := range norm {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(invalidPathChars, r) {
			return "", apperrors.InvalidPath(p, "invalid characters")
		}
	}
	if maxLen > 0 && utf8.RuneCountInString(norm) > maxLen {
		return "", apperrors.InvalidPath(truncate(norm, 64), "path too long")
	}
	return norm, nil
}

// Parent returns the parent of a normalized, non-root path.
func Parent(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}

func baseName(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// ancestors lists the proper ancestors of p below the root, outermost first.
func ancestors(p string) []string {
	var out []string
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[:i])
		}
	}
	return out
}

// isWithin reports whether p is dir itself or lies inside it.
func isWithin(p, dir string) bool {
	if dir == "/" {
		return true
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
