package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Python", cfg.Python, "python3"},
		{"MaxFixes", cfg.MaxFixes, 7},
		{"IntrospectTimeoutSec", cfg.IntrospectTimeoutSec, 10},
		{"IntrospectCacheSize", cfg.IntrospectCacheSize, 256},
		{"LogLevel", cfg.LogLevel, "info"},
		{"Verbose", cfg.Verbose, false},
		{"MetricsAddr", cfg.MetricsAddr, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "defaults",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:        "negative max fixes",
			mutate:      func(c *Config) { c.MaxFixes = -1 },
			wantErr:     true,
			errContains: "max_fixes",
		},
		{
			name:        "zero timeout",
			mutate:      func(c *Config) { c.IntrospectTimeoutSec = 0 },
			wantErr:     true,
			errContains: "introspect_timeout_sec",
		},
		{
			name:        "zero cache size",
			mutate:      func(c *Config) { c.IntrospectCacheSize = 0 },
			wantErr:     true,
			errContains: "introspect_cache_size",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.LogLevel = "loud" },
			wantErr:     true,
			errContains: "log_level",
		},
		{
			name:        "relative project root",
			mutate:      func(c *Config) { c.ProjectRoot = "proj" },
			wantErr:     true,
			errContains: "project_root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `import_dirs:
  - lib
  - /opt/shared
dir_unsafe_modules: [os, gi]
python: /usr/bin/python3
max_fixes: 3
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.ProjectRoot != dir {
		t.Errorf("ProjectRoot = %q, want %q", cfg.ProjectRoot, dir)
	}
	if len(cfg.ImportDirs) != 2 || cfg.ImportDirs[0] != filepath.Join(dir, "lib") || cfg.ImportDirs[1] != "/opt/shared" {
		t.Errorf("ImportDirs = %v", cfg.ImportDirs)
	}
	if cfg.Python != "/usr/bin/python3" {
		t.Errorf("Python = %q", cfg.Python)
	}
	if cfg.MaxFixes != 3 {
		t.Errorf("MaxFixes = %d, want 3", cfg.MaxFixes)
	}
	if !cfg.IsDirUnsafe("gi") || !cfg.IsDirUnsafe("os.path") || cfg.IsDirUnsafe("json") {
		t.Errorf("IsDirUnsafe gave unexpected results for %v", cfg.DirUnsafeModules)
	}
}

func TestLoadFromFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pyassist.toml")
	content := `project_root = "src"
import_dirs = ["vendor"]
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.ProjectRoot != filepath.Join(dir, "src") {
		t.Errorf("ProjectRoot = %q", cfg.ProjectRoot)
	}
	if len(cfg.ImportDirs) != 1 || cfg.ImportDirs[0] != filepath.Join(dir, "src", "vendor") {
		t.Errorf("ImportDirs = %v", cfg.ImportDirs)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("LoadFromFile() on a missing file should fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PYASSIST_PYTHON", "/custom/python")
	t.Setenv("PYASSIST_MAX_FIXES", "11")
	t.Setenv("PYASSIST_VERBOSE", "yes")
	t.Setenv("PYASSIST_IMPORT_DIRS", strings.Join([]string{"/a", "/b"}, string(os.PathListSeparator)))

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Python != "/custom/python" {
		t.Errorf("Python = %q", cfg.Python)
	}
	if cfg.MaxFixes != 11 {
		t.Errorf("MaxFixes = %d", cfg.MaxFixes)
	}
	if !cfg.Verbose {
		t.Error("Verbose should be true")
	}
	if len(cfg.ImportDirs) != 2 {
		t.Errorf("ImportDirs = %v", cfg.ImportDirs)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ImportDirs = []string{filepath.Join(dir, "lib")}
			cfg.MaxFixes = 2

			path := filepath.Join(dir, "nested", name)
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			loaded, err := LoadFromFile(path)
			if err != nil {
				t.Fatalf("LoadFromFile() error = %v", err)
			}
			if loaded.MaxFixes != 2 {
				t.Errorf("MaxFixes = %d, want 2", loaded.MaxFixes)
			}
			if len(loaded.ImportDirs) != 1 || loaded.ImportDirs[0] != cfg.ImportDirs[0] {
				t.Errorf("ImportDirs = %v, want %v", loaded.ImportDirs, cfg.ImportDirs)
			}
		})
	}
}
