package scanner

import (
	"strings"

	"github.com/gobwas/glob"
)

// IgnorePattern represents a single gitignore-style pattern.
type IgnorePattern struct {
	pattern     string // Original pattern
	isNegation  bool   // True if pattern starts with !
	isDirectory bool   // True if pattern ends with /
	isAnchored  bool   // True if pattern contains a slash other than a trailing one
	matcher     glob.Glob
}

// ParseIgnorePattern parses a gitignore-style pattern string.
// Patterns without a slash match any path segment; patterns with a slash are
// anchored at the scan root. "**" crosses directory boundaries.
func ParseIgnorePattern(pattern string) (IgnorePattern, error) {
	p := IgnorePattern{pattern: pattern}

	if strings.HasPrefix(pattern, "!") {
		p.isNegation = true
		pattern = pattern[1:]
	}

	if strings.HasSuffix(pattern, "/") {
		p.isDirectory = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.Contains(pattern, "/") {
		p.isAnchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	}

	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return IgnorePattern{}, err
	}
	p.matcher = g
	return p, nil
}

// Match checks if the slash-separated relative path matches this pattern.
// isDir tells whether the path itself is a directory.
func (p IgnorePattern) Match(relPath string, isDir bool) bool {
	segments := strings.Split(relPath, "/")

	if p.isAnchored {
		// The path or any of its parent directories may match.
		for i := len(segments); i > 0; i-- {
			if i == len(segments) && p.isDirectory && !isDir {
				continue
			}
			if p.matcher.Match(strings.Join(segments[:i], "/")) {
				return true
			}
		}
		return false
	}

	for i, seg := range segments {
		last := i == len(segments)-1
		if last && p.isDirectory && !isDir {
			continue
		}
		if p.matcher.Match(seg) {
			return true
		}
	}
	return false
}

// IsNegation returns true if this pattern is a negation pattern.
func (p IgnorePattern) IsNegation() bool {
	return p.isNegation
}

// String returns the original pattern text.
func (p IgnorePattern) String() string {
	return p.pattern
}

// compileExcludes compiles base-name exclusion globs.
func compileExcludes(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
