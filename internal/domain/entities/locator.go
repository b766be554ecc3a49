package entities

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// SchemeFile is the scheme assumed for bare paths.
const SchemeFile = "file"

// Locator identifies a resource a provider may own: a scheme plus a path.
type Locator struct {
	Scheme string
	Path   string
}

// NewFileLocator builds a "file" locator for a bare filesystem path.
func NewFileLocator(p string) Locator {
	return Locator{Scheme: SchemeFile, Path: NormalizePath(p)}
}

// ParseLocator accepts either "scheme://path" or a bare path (scheme defaults to "file").
func ParseLocator(raw string) Locator {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" || strings.ContainsAny(scheme, `/\`) || isDriveLetter(scheme) {
		return NewFileLocator(raw)
	}
	if strings.EqualFold(scheme, SchemeFile) {
		return NewFileLocator(rest)
	}
	return Locator{Scheme: strings.ToLower(scheme), Path: NormalizePath(rest)}
}

// IsFile reports whether the locator points at the local filesystem.
func (l Locator) IsFile() bool {
	return l.Scheme == "" || l.Scheme == SchemeFile
}

// Key is the comparison key of the locator: scheme plus normalized path.
func (l Locator) Key() string {
	scheme := l.Scheme
	if scheme == "" {
		scheme = SchemeFile
	}
	return scheme + "://" + PathKey(l.Path)
}

func (l Locator) String() string {
	if l.IsFile() {
		return l.Path
	}
	return l.Scheme + "://" + l.Path
}

// NormalizePath cleans p, converts separators to forward slashes and strips any trailing slash.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	cleaned := path.Clean(filepath.ToSlash(p))
	if len(cleaned) > 1 {
		cleaned = strings.TrimSuffix(cleaned, "/")
	}
	return cleaned
}

// PathKey returns the comparison key of a path; case-insensitive filesystems fold case.
func PathKey(p string) string {
	normalized := NormalizePath(p)
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return strings.ToLower(normalized)
	}
	return normalized
}

// IsDescendant reports whether child equals parent or lives below it.
func IsDescendant(parent, child string) bool {
	p := PathKey(parent)
	c := PathKey(child)
	if p == c {
		return true
	}
	if p == "/" {
		return strings.HasPrefix(c, "/")
	}
	return strings.HasPrefix(c, p+"/")
}

func isDriveLetter(s string) bool {
	return len(s) == 1 && ((s[0] >= 'a' && s[0] <= 'z') || (s[0] >= 'A' && s[0] <= 'Z'))
}
