package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
}

func mustScanner(t *testing.T, opts Options) *Scanner {
	t.Helper()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestScannerScan(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.py":                     "print('hi')",
		"pkg/__init__.py":             "",
		"pkg/util.py":                 "x = 1",
		"pkg/stubs.pyi":               "def f() -> int: ...",
		"README.md":                   "# Test",
		"pkg/_speedups.abi3.so":       "\x7fELF",
		".hidden/secret.py":           "x = 2",
		"__pycache__/main.cpython.py": "",
		"node_modules/x/y.py":         "",
		"demo.egg-info/top.py":        "",
	})

	results, err := mustScanner(t, DefaultOptions()).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	expected := map[string]ModuleKind{
		"main.py":         KindSource,
		"pkg/__init__.py": KindSource,
		"pkg/util.py":     KindSource,
		"pkg/stubs.pyi":   KindSource,
	}

	found := make(map[string]ModuleKind)
	for _, f := range results {
		found[f.Path] = f.Kind
	}

	if len(found) != len(expected) {
		t.Errorf("Scan found %v, want %v", found, expected)
	}
	for path, kind := range expected {
		if got, ok := found[path]; !ok || got != kind {
			t.Errorf("Expected %s with kind %v, got %v (present=%v)", path, kind, got, ok)
		}
	}
}

func TestScannerIncludeBinary(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"fast.cpython-311-x86_64-linux-gnu.so": "",
		"slow.py":                              "",
	})

	opts := DefaultOptions()
	opts.IncludeBinary = true
	results, err := mustScanner(t, opts).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Scan returned %d files, want 2", len(results))
	}
	for _, f := range results {
		if f.Path == "fast.cpython-311-x86_64-linux-gnu.so" && f.Kind != KindBinary {
			t.Errorf("Expected binary kind for %s, got %v", f.Path, f.Kind)
		}
	}
}

func TestScannerWithIgnoreFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		".pyassistignore": `# Ignore test modules
test_*.py
# Ignore build directory
build/
!test_keep.py
/docs/conf.py
`,
		"app.py":           "",
		"test_app.py":      "",
		"test_keep.py":     "",
		"build/gen.py":     "",
		"docs/conf.py":     "",
		"docs/example.py":  "",
		"sub/docs/conf.py": "",
	})

	results, err := mustScanner(t, DefaultOptions()).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	found := make(map[string]bool)
	for _, f := range results {
		found[f.Path] = true
	}

	for _, expected := range []string{"app.py", "test_keep.py", "docs/example.py", "sub/docs/conf.py"} {
		if !found[expected] {
			t.Errorf("Expected to find %s", expected)
		}
	}
	for _, ignored := range []string{"test_app.py", "build/gen.py", "docs/conf.py"} {
		if found[ignored] {
			t.Errorf("Expected %s to be ignored", ignored)
		}
	}
}

func TestScannerSkipHidden(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"visible.py":      "",
		".hidden/file.py": "",
		".setup.py":       "",
	})

	opts := DefaultOptions()
	results, _ := mustScanner(t, opts).Scan(tmpDir)
	for _, f := range results {
		if f.Path == ".hidden/file.py" || f.Path == ".setup.py" {
			t.Errorf("Should skip hidden file %s when SkipHidden=true", f.Path)
		}
	}

	opts.SkipHidden = false
	results, _ = mustScanner(t, opts).Scan(tmpDir)
	found := false
	for _, f := range results {
		if f.Path == ".setup.py" {
			found = true
		}
	}
	if !found {
		t.Error("Should find .setup.py when SkipHidden=false")
	}
}

func TestNewRejectsBadExclude(t *testing.T) {
	opts := DefaultOptions()
	opts.Excludes = []string{"[unclosed"}
	if _, err := New(opts); err == nil {
		t.Error("New() should fail on a malformed exclude glob")
	}
}

func TestModuleNameFromFile(t *testing.T) {
	tests := []struct {
		base string
		name string
		kind ModuleKind
		ok   bool
	}{
		{"os.py", "os", KindSource, true},
		{"typing.pyi", "typing", KindSource, true},
		{"gui.pyw", "gui", KindSource, true},
		{"_json.cpython-311-x86_64-linux-gnu.so", "_json", KindBinary, true},
		{"_ssl.abi3.so", "_ssl", KindBinary, true},
		{"winreg.pyd", "winreg", KindBinary, true},
		{"select.cp311-win_amd64.pyd", "select", KindBinary, true},
		{"README.md", "", KindUnknown, false},
		{"my-module.py", "", KindUnknown, false},
		{"2fast.py", "", KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			name, kind, ok := ModuleNameFromFile(tt.base)
			if name != tt.name || kind != tt.kind || ok != tt.ok {
				t.Errorf("ModuleNameFromFile(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.base, name, kind, ok, tt.name, tt.kind, tt.ok)
			}
		})
	}
}

func TestListModules(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"alpha.py":              "",
		"beta.pyi":              "",
		"beta.py":               "",
		"pkg/__init__.py":       "",
		"pkg/inner.py":          "",
		"pkg/sub/__init__.py":   "",
		"pkg/sub/deep.py":       "",
		"notpkg/orphan.py":      "",
		"_native.cpython-39.so": "",
		"__pycache__/alpha.py":  "",
		"bad-name.py":           "",
		"pkg/__init__.pyi":      "",
	})

	modules := ListModules(tmpDir)

	expected := map[string]string{
		"alpha":        filepath.Join(tmpDir, "alpha.py"),
		"beta":         filepath.Join(tmpDir, "beta.py"),
		"pkg":          filepath.Join(tmpDir, "pkg", "__init__.py"),
		"pkg.inner":    filepath.Join(tmpDir, "pkg", "inner.py"),
		"pkg.sub":      filepath.Join(tmpDir, "pkg", "sub", "__init__.py"),
		"pkg.sub.deep": filepath.Join(tmpDir, "pkg", "sub", "deep.py"),
		"_native":      filepath.Join(tmpDir, "_native.cpython-39.so"),
	}

	if len(modules) != len(expected) {
		t.Errorf("ListModules() = %v, want %v", modules, expected)
	}
	for name, path := range expected {
		if modules[name] != path {
			t.Errorf("ListModules()[%q] = %q, want %q", name, modules[name], path)
		}
	}
}

func TestListModulesMissingDir(t *testing.T) {
	modules := ListModules(filepath.Join(t.TempDir(), "nope"))
	if len(modules) != 0 {
		t.Errorf("ListModules() on a missing dir = %v, want empty", modules)
	}
}

func TestIgnorePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		match   bool
	}{
		{"*.py", "file.py", false, true},
		{"*.py", "dir/file.py", false, true},
		{"*.py", "file.txt", false, false},
		{"build/", "build/file.py", false, true},
		{"build/", "other/build/file.py", false, true},
		{"build/", "builder.py", false, false},
		{"build/", "build", false, false},
		{"build/", "build", true, true},
		{"/build/", "build/file.py", false, true},
		{"/build/", "other/build/file.py", false, false},
		{"docs/*.py", "docs/conf.py", false, true},
		{"docs/*.py", "docs/api/conf.py", false, false},
		{"docs/**/*.py", "docs/api/conf.py", false, true},
		{"!keep.py", "keep.py", false, true},
	}

	for _, tt := range tests {
		p, err := ParseIgnorePattern(tt.pattern)
		if err != nil {
			t.Fatalf("ParseIgnorePattern(%q) error = %v", tt.pattern, err)
		}
		if got := p.Match(tt.path, tt.isDir); got != tt.match {
			t.Errorf("Pattern(%q).Match(%q, %v) = %v, want %v", tt.pattern, tt.path, tt.isDir, got, tt.match)
		}
	}
}
