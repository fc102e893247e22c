// Package modindex maps importable Python module names to the files that
// define them, for the interpreter's environment and for the open project.
package modindex

import (
	"context"
	"strings"
	"sync"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/introspect"
)

// EnumerateFunc produces the system module table: dotted name to file path,
// "" for modules built into the interpreter.
type EnumerateFunc func() map[string]string

// SystemIndex is the system-wide module table. It is computed at most once
// and is read-only afterwards.
type SystemIndex struct {
	mu        sync.Mutex
	enumerate EnumerateFunc
	modules   map[string]string
	built     bool
}

// NewSystemIndex creates an index that fills itself with enumerate on first use.
func NewSystemIndex(enumerate EnumerateFunc) *SystemIndex {
	return &SystemIndex{enumerate: enumerate}
}

// Build computes the table if it was not computed yet.
func (s *SystemIndex) Build() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildLocked()
}

func (s *SystemIndex) buildLocked() {
	if s.built {
		return
	}
	modules := s.enumerate()
	if modules == nil {
		modules = map[string]string{}
	}
	s.modules = modules
	s.built = true
}

// Modules returns the table. Callers must not modify it.
func (s *SystemIndex) Modules() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buildLocked()
	return s.modules
}

// Has reports whether name is a key of the system table. Dotted names must
// match in full: "os.environ" is not a system module even though "os" is.
func (s *SystemIndex) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Lookup returns the file of a system module. An empty path with ok set means
// a built-in without a file of its own.
func (s *SystemIndex) Lookup(name string) (path string, ok bool) {
	path, ok = s.Modules()[name]
	return path, ok
}

// InPackage reports whether name is dotted and its top-level package is a
// system module. Such a name may be an attribute-style submodule like
// os.path, which only introspection can confirm.
func (s *SystemIndex) InPackage(name string) bool {
	top := topLevel(name)
	if top == name {
		return false
	}
	_, ok := s.Modules()[top]
	return ok
}

// Reset forgets the computed table. Tests only.
func (s *SystemIndex) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules = nil
	s.built = false
}

func topLevel(name string) string {
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

// InterpreterEnumerator lists modules found on the interpreter's sys.path,
// preceded by extraPaths, plus its built-in modules. Earlier directories
// shadow later ones like they do at import time; built-ins shadow everything.
func InterpreterEnumerator(intro introspect.Introspector, sc *scanner.Scanner, extraPaths []string, logger log.Logger) EnumerateFunc {
	return func() map[string]string {
		modules := make(map[string]string)

		info, err := intro.SysInfo(context.Background())
		if err != nil {
			logger.Warn("cannot query interpreter environment, system modules limited to configured paths", "error", err)
		}

		paths := append(append([]string{}, extraPaths...), info.Path...)
		seen := make(map[string]bool, len(paths))
		for _, dir := range paths {
			if dir == "" || seen[dir] {
				continue
			}
			seen[dir] = true
			for name, path := range sc.ListModules(dir) {
				if _, exists := modules[name]; !exists {
					modules[name] = path
				}
			}
		}
		for _, name := range info.Builtins {
			modules[name] = ""
		}

		logger.Debug("system module index built", "modules", len(modules), "paths", len(seen))
		return modules
	}
}
