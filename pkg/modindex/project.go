package modindex

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/l3aro/pyassist/internal/scanner"
)

// Project describes where project modules live.
type Project struct {
	ImportDirs []string // absolute import directories
	Root       string   // project base directory, may be empty
}

// Builder assembles per-request module tables. Project tables are computed
// fresh on every call; only the system index is memoized.
type Builder struct {
	project Project
	system  *SystemIndex
	scanner *scanner.Scanner
}

// NewBuilder creates a Builder.
func NewBuilder(project Project, system *SystemIndex, sc *scanner.Scanner) *Builder {
	return &Builder{project: project, system: system, scanner: sc}
}

// System returns the shared system index.
func (b *Builder) System() *SystemIndex {
	return b.system
}

// ProjectModules returns the modules visible from path. Unless onlySpecified
// is set, the import dirs and the project root are scanned first. An absolute
// path then adds its own directory (a file's parent, or the directory itself)
// when that directory was not scanned already.
func (b *Builder) ProjectModules(path string, onlySpecified bool) map[string]string {
	modules := make(map[string]string)
	scanned := make(map[string]bool)

	add := func(dir string) {
		for name, p := range b.scanner.ListModules(dir) {
			modules[name] = p
		}
	}

	if !onlySpecified {
		for _, dir := range b.project.ImportDirs {
			add(dir)
			scanned[dir] = true
		}
		if root := b.project.Root; root != "" && !scanned[root] {
			add(root)
			scanned[root] = true
		}
	}

	if path != "" && filepath.IsAbs(path) {
		path = filepath.Clean(path)
		var baseDir string
		if stat, err := os.Stat(path); err == nil {
			if stat.IsDir() {
				baseDir = path
			} else {
				baseDir = filepath.Dir(path)
			}
		}
		if baseDir != "" && !scanned[baseDir] {
			add(baseDir)
		}
	}

	return modules
}

// Merged returns the project modules for fileName overlaid with the system
// modules; on a name clash the system entry wins.
func (b *Builder) Merged(fileName string) map[string]string {
	merged := b.ProjectModules(fileName, false)
	for name, path := range b.system.Modules() {
		merged[name] = path
	}
	return merged
}

// ModuleNames returns every module name importable from fileName, sorted.
func (b *Builder) ModuleNames(fileName string) []string {
	merged := b.Merged(fileName)
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves name against the merged table. A dotted name inside a
// system package resolves with an empty path so that callers introspect it.
func (b *Builder) Lookup(name, fileName string) (string, bool) {
	if path, ok := b.system.Lookup(name); ok {
		return path, true
	}
	if b.system.InPackage(name) {
		return "", true
	}
	path, ok := b.ProjectModules(fileName, false)[name]
	return path, ok
}
