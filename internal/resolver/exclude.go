package resolver

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// excludeMatcher decides whether a path is excluded from scanning.
// A pattern excludes a path when it names the path or one of its parent
// directories, or when it matches as a doublestar glob against either the
// path relative to the scan root or the absolute path.
type excludeMatcher struct {
	patterns []string
	prefixes []string
}

// newExcludeMatcher prepares patterns for matching.
func newExcludeMatcher(patterns []string) *excludeMatcher {
	m := &excludeMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		m.patterns = append(m.patterns, filepath.ToSlash(p))
		if abs, err := filepath.Abs(p); err == nil {
			m.prefixes = append(m.prefixes, filepath.Clean(abs))
		}
	}
	return m
}

// empty reports whether the matcher has no patterns.
func (m *excludeMatcher) empty() bool {
	return len(m.patterns) == 0
}

// match reports whether path (absolute) below root is excluded.
func (m *excludeMatcher) match(root, path string) bool {
	if m.empty() {
		return false
	}

	path = filepath.Clean(path)
	for _, prefix := range m.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+string(filepath.Separator)) {
			return true
		}
	}

	absSlash := filepath.ToSlash(path)
	relSlash := ""
	if rel, err := filepath.Rel(root, path); err == nil {
		relSlash = filepath.ToSlash(rel)
	}

	for _, p := range m.patterns {
		// Bad patterns never match.
		if ok, _ := doublestar.Match(p, absSlash); ok {
			return true
		}
		if relSlash != "" {
			if ok, _ := doublestar.Match(p, relSlash); ok {
				return true
			}
		}
	}
	return false
}
