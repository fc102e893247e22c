// Package scanner walks Python project trees. It respects .pyassistignore
// files with gitignore-style patterns, skips excluded directory names given as
// globs, and lists the importable modules found in a directory.
package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FileInfo represents information about a discovered Python file.
type FileInfo struct {
	Path     string     // Relative path from root
	FullPath string     // Absolute path
	Kind     ModuleKind // Source or binary
	Size     int64      // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden     bool     // Skip hidden files and directories (starting with .)
	FollowSymlinks bool     // Follow file symlinks (within root only)
	Excludes       []string // Glob patterns matched against directory and file base names
	IgnoreFileName string   // Name of the ignore file (default: .pyassistignore)
	IncludeBinary  bool     // Report native extension modules too
}

// DefaultExcludes lists directory names never worth descending into.
var DefaultExcludes = []string{
	"__pycache__",
	".git",
	".hg",
	".svn",
	".tox",
	".nox",
	".venv",
	"venv",
	"node_modules",
	"*.egg-info",
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		FollowSymlinks: false,
		IgnoreFileName: ".pyassistignore",
		Excludes:       DefaultExcludes,
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts     Options
	excludes []glob.Glob
}

// New creates a new Scanner with the given options.
func New(opts Options) (*Scanner, error) {
	if opts.IgnoreFileName == "" {
		opts.IgnoreFileName = ".pyassistignore"
	}
	excludes, err := compileExcludes(opts.Excludes)
	if err != nil {
		return nil, fmt.Errorf("compiling excludes: %w", err)
	}
	return &Scanner{opts: opts, excludes: excludes}, nil
}

// Scan recursively scans root and returns every Python file found.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	ignorePatterns, err := s.loadIgnorePatterns(absRoot)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPathSlash := filepath.ToSlash(relPath)
		name := info.Name()

		if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if s.Excluded(name) || s.ignored(relPathSlash, true, ignorePatterns) {
				return filepath.SkipDir
			}
			nested, err := s.loadIgnorePatterns(path)
			if err == nil && len(nested) > 0 {
				ignorePatterns = append(ignorePatterns, nested...)
			}
			return nil
		}

		if s.Excluded(name) || s.ignored(relPathSlash, false, ignorePatterns) {
			return nil
		}

		var kind ModuleKind
		switch {
		case IsSourceFile(name):
			kind = KindSource
		case s.opts.IncludeBinary && IsBinaryModule(name):
			kind = KindBinary
		default:
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if !s.opts.FollowSymlinks {
				return nil
			}
			target, ok := resolveWithin(absRoot, path)
			if !ok {
				return nil
			}
			info = target
		}

		files = append(files, FileInfo{
			Path:     relPathSlash,
			FullPath: path,
			Kind:     kind,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return files, nil
}

// Excluded reports whether a base name matches one of the exclude globs.
func (s *Scanner) Excluded(name string) bool {
	return matchesAny(s.excludes, name)
}

// resolveWithin follows a file symlink, refusing targets outside root and
// directory targets.
func resolveWithin(root, path string) (os.FileInfo, bool) {
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, false
	}
	realAbs, err := filepath.Abs(realPath)
	if err != nil {
		return nil, false
	}
	if !strings.HasPrefix(realAbs, root+string(filepath.Separator)) {
		return nil, false
	}
	info, err := os.Stat(realAbs)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return info, true
}

// loadIgnorePatterns loads patterns from the ignore file in dir.
func (s *Scanner) loadIgnorePatterns(dir string) ([]IgnorePattern, error) {
	file, err := os.Open(filepath.Join(dir, s.opts.IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []IgnorePattern
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParseIgnorePattern(line)
		if err != nil {
			// A malformed line is skipped, the rest of the file still applies.
			continue
		}
		patterns = append(patterns, p)
	}

	return patterns, sc.Err()
}

// ignored applies gitignore semantics: later patterns win, and negations can
// re-include a path.
func (s *Scanner) ignored(relPath string, isDir bool, patterns []IgnorePattern) bool {
	ignored := false
	for _, pattern := range patterns {
		if pattern.Match(relPath, isDir) {
			ignored = !pattern.IsNegation()
		}
	}
	return ignored
}

// Scan is a convenience function that scans a directory with default options.
func Scan(root string) ([]FileInfo, error) {
	s, err := New(DefaultOptions())
	if err != nil {
		return nil, err
	}
	return s.Scan(root)
}
