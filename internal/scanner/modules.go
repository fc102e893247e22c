package scanner

import (
	"os"
	"path/filepath"
	"strings"
)

// ListModules returns the importable modules rooted at dir, keyed by dotted
// name. Source modules and packages map to a file path ("pkg/__init__.py" for
// packages). Binary extension modules map to the extension file path. Missing
// or unreadable directories yield an empty map.
func (s *Scanner) ListModules(dir string) map[string]string {
	modules := make(map[string]string)
	s.listModules(dir, "", modules, 0)
	return modules
}

// maxPackageDepth bounds recursion through nested packages, mostly to survive
// symlink loops.
const maxPackageDepth = 16

func (s *Scanner) listModules(dir, prefix string, out map[string]string, depth int) {
	if depth > maxPackageDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || s.Excluded(name) {
			continue
		}
		full := filepath.Join(dir, name)

		isDir := entry.IsDir()
		if entry.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(full); err == nil {
				isDir = info.IsDir()
			}
		}

		if isDir {
			if !IsIdentifier(name) {
				continue
			}
			initFile := filepath.Join(full, "__init__.py")
			if _, err := os.Stat(initFile); err != nil {
				continue
			}
			dotted := prefix + name
			out[dotted] = initFile
			s.listModules(full, dotted+".", out, depth+1)
			continue
		}

		modName, kind, ok := ModuleNameFromFile(name)
		if !ok || modName == "__init__" {
			continue
		}
		if kind == KindSource && !strings.HasSuffix(name, ".py") {
			// Stubs and .pyw files never shadow a real module.
			if _, exists := out[prefix+modName]; exists {
				continue
			}
		}
		if !s.opts.IncludeBinary && kind == KindBinary {
			continue
		}
		dotted := prefix + modName
		if existing, exists := out[dotted]; exists && strings.HasSuffix(existing, ".py") {
			continue
		}
		out[dotted] = full
	}
}

// ListModules lists modules in dir with default options, binaries included.
func ListModules(dir string) map[string]string {
	opts := DefaultOptions()
	opts.IncludeBinary = true
	s, err := New(opts)
	if err != nil {
		return map[string]string{}
	}
	return s.ListModules(dir)
}
