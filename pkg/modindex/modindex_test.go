package modindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/introspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}
}

func newScanner(t *testing.T) *scanner.Scanner {
	t.Helper()
	opts := scanner.DefaultOptions()
	opts.IncludeBinary = true
	sc, err := scanner.New(opts)
	require.NoError(t, err)
	return sc
}

func TestSystemIndexBuildsOnce(t *testing.T) {
	calls := 0
	idx := NewSystemIndex(func() map[string]string {
		calls++
		return map[string]string{"os": "/usr/lib/os.py", "sys": ""}
	})

	idx.Build()
	idx.Build()
	assert.Len(t, idx.Modules(), 2)
	assert.True(t, idx.Has("sys"))
	assert.Equal(t, 1, calls)

	idx.Reset()
	idx.Modules()
	assert.Equal(t, 2, calls)
}

func TestSystemIndexLookup(t *testing.T) {
	idx := NewSystemIndex(func() map[string]string {
		return map[string]string{
			"os":           "/usr/lib/os.py",
			"sys":          "",
			"xml":          "/usr/lib/xml/__init__.py",
			"xml.dom":      "/usr/lib/xml/dom/__init__.py",
			"xml.dom.mini": "/usr/lib/xml/dom/mini.py",
		}
	})

	tests := []struct {
		name      string
		path      string
		exists    bool
		inPackage bool
	}{
		{"os", "/usr/lib/os.py", true, false},
		{"sys", "", true, false},
		{"os.path", "", false, true},
		{"os.environ", "", false, true},
		{"xml.dom.mini", "/usr/lib/xml/dom/mini.py", true, true},
		{"xml.sax", "", false, true},
		{"requests", "", false, false},
		{"requests.adapters", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := idx.Lookup(tt.name)
			assert.Equal(t, tt.exists, ok)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.exists, idx.Has(tt.name))
			assert.Equal(t, tt.inPackage, idx.InPackage(tt.name))
		})
	}
}

func TestSystemIndexNilEnumeration(t *testing.T) {
	idx := NewSystemIndex(func() map[string]string { return nil })
	assert.NotNil(t, idx.Modules())
	assert.False(t, idx.Has("os"))
}

type sysOnly struct {
	info introspect.SysInfo
	err  error
}

func (s sysOnly) ModuleNames(context.Context, string) (introspect.Names, error) {
	return nil, introspect.ErrUnknownModule
}

func (s sysOnly) BinaryNames(context.Context, string) (introspect.Names, error) {
	return nil, introspect.ErrUnsupportedModuleKind
}

func (s sysOnly) SysInfo(context.Context) (introspect.SysInfo, error) {
	return s.info, s.err
}

func TestInterpreterEnumerator(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	extra := t.TempDir()
	touch(t, first, "json/__init__.py", "shadowed.py")
	touch(t, second, "shadowed.py", "only_second.py", "_speedups.cpython-311-x86_64-linux-gnu.so")
	touch(t, extra, "vendored.py", "sys.py")

	intro := sysOnly{info: introspect.SysInfo{
		Path:     []string{first, second},
		Builtins: []string{"sys", "time"},
	}}
	modules := InterpreterEnumerator(intro, newScanner(t), []string{extra}, log.Discard())()

	assert.Equal(t, filepath.Join(first, "json", "__init__.py"), modules["json"])
	assert.Equal(t, filepath.Join(first, "shadowed.py"), modules["shadowed"])
	assert.Equal(t, filepath.Join(second, "only_second.py"), modules["only_second"])
	assert.Equal(t, filepath.Join(second, "_speedups.cpython-311-x86_64-linux-gnu.so"), modules["_speedups"])
	assert.Equal(t, filepath.Join(extra, "vendored.py"), modules["vendored"])
	assert.Equal(t, "", modules["sys"])
	assert.Contains(t, modules, "time")
}

func TestInterpreterEnumeratorWithoutInterpreter(t *testing.T) {
	extra := t.TempDir()
	touch(t, extra, "local.py")

	intro := sysOnly{err: errors.New("python3 not found")}
	modules := InterpreterEnumerator(intro, newScanner(t), []string{extra}, log.Discard())()
	assert.Equal(t, map[string]string{"local": filepath.Join(extra, "local.py")}, modules)
}

func TestProjectModules(t *testing.T) {
	root := t.TempDir()
	importDir := filepath.Join(root, "lib")
	touch(t, root,
		"app.py",
		"lib/helpers.py",
		"sub/__init__.py",
		"sub/inner.py",
		"elsewhere/tool.py",
	)

	b := NewBuilder(Project{ImportDirs: []string{importDir}, Root: root},
		NewSystemIndex(func() map[string]string { return nil }), newScanner(t))

	modules := b.ProjectModules("", false)
	assert.Contains(t, modules, "app")
	assert.Contains(t, modules, "helpers")
	assert.Contains(t, modules, "sub.inner")
	assert.NotContains(t, modules, "tool")

	modules = b.ProjectModules(filepath.Join(root, "elsewhere", "tool.py"), false)
	assert.Contains(t, modules, "tool")
	assert.Contains(t, modules, "app")

	// Only the given directory.
	modules = b.ProjectModules(filepath.Join(root, "sub"), true)
	assert.Equal(t, map[string]string{"inner": filepath.Join(root, "sub", "inner.py")}, modules)

	// Relative and missing paths add nothing.
	assert.Empty(t, b.ProjectModules("elsewhere/tool.py", true))
	assert.Empty(t, b.ProjectModules(filepath.Join(root, "missing.py"), true))
}

func TestProjectModulesAreFreshPerCall(t *testing.T) {
	root := t.TempDir()
	b := NewBuilder(Project{Root: root}, NewSystemIndex(func() map[string]string { return nil }), newScanner(t))

	assert.NotContains(t, b.ProjectModules("", false), "late")
	touch(t, root, "late.py")
	assert.Contains(t, b.ProjectModules("", false), "late")
}

func TestMergedSystemWins(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "os.py", "mine.py")
	system := NewSystemIndex(func() map[string]string {
		return map[string]string{"os": "/usr/lib/os.py", "sys": ""}
	})
	b := NewBuilder(Project{Root: root}, system, newScanner(t))

	merged := b.Merged("")
	assert.Equal(t, "/usr/lib/os.py", merged["os"])
	assert.Equal(t, filepath.Join(root, "mine.py"), merged["mine"])
	assert.Equal(t, []string{"mine", "os", "sys"}, b.ModuleNames(""))

	path, ok := b.Lookup("os", "")
	assert.True(t, ok)
	assert.Equal(t, "/usr/lib/os.py", path)

	path, ok = b.Lookup("mine", "")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(root, "mine.py"), path)

	_, ok = b.Lookup("absent", "")
	assert.False(t, ok)

	path, ok = b.Lookup("os.path", "")
	assert.True(t, ok)
	assert.Empty(t, path)
}
