package healthcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/l3aro/pyassist/internal/config"
	"github.com/l3aro/pyassist/pkg/introspect"
)

func TestCheckWithNilConfig(t *testing.T) {
	_, err := Check(context.Background(), nil, "", "")
	if err == nil {
		t.Error("Expected error for nil config, got nil")
	}
}

func TestCheckInterpreterDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Python = ""

	result, err := Check(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	if result.Interpreter.Status != StatusDisabled {
		t.Errorf("Interpreter.Status = %q, want %q", result.Interpreter.Status, StatusDisabled)
	}
	if result.HasErrors() {
		t.Error("a disabled interpreter should not count as an error")
	}
}

func TestCheckInterpreterMissing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Python = filepath.Join(t.TempDir(), "no-such-python")

	result, err := Check(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	if result.Interpreter.Status != StatusError {
		t.Errorf("Interpreter.Status = %q, want %q", result.Interpreter.Status, StatusError)
	}
	if result.Interpreter.Error == "" {
		t.Error("expected an error message for a missing interpreter")
	}
	if !result.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
}

func TestCheckSnapshot(t *testing.T) {
	dir := t.TempDir()
	saved := filepath.Join(dir, "snapshot.msgpack")
	snap := &introspect.Snapshot{
		Env:     introspect.SysInfo{Version: "3.12"},
		Modules: map[string][]string{"os": {"path"}, "sys": {"argv"}},
	}
	if err := snap.Save(saved); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	corrupt := filepath.Join(dir, "corrupt.msgpack")
	if err := os.WriteFile(corrupt, []byte("not msgpack"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		status  string
		modules int
	}{
		{"built-in table", "", StatusBuiltin, len(introspect.DefaultSnapshot().Modules)},
		{"saved snapshot", saved, StatusReady, 2},
		{"corrupt snapshot", corrupt, StatusError, 0},
		{"missing snapshot", filepath.Join(dir, "missing"), StatusError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkSnapshot(tt.path)
			if got.Status != tt.status {
				t.Errorf("Status = %q, want %q (%s)", got.Status, tt.status, got.Error)
			}
			if got.Modules != tt.modules {
				t.Errorf("Modules = %d, want %d", got.Modules, tt.modules)
			}
		})
	}
}

func TestCheckDirectories(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "setup.py")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Python = ""
	cfg.ProjectRoot = root
	cfg.ImportDirs = []string{root, filepath.Join(root, "missing"), file}

	result, err := Check(context.Background(), cfg, "", "")
	if err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	if result.ProjectRoot.Status != StatusReady {
		t.Errorf("ProjectRoot.Status = %q, want %q", result.ProjectRoot.Status, StatusReady)
	}
	want := []string{StatusReady, StatusMissing, StatusError}
	if len(result.ImportDirs) != len(want) {
		t.Fatalf("got %d import dirs, want %d", len(result.ImportDirs), len(want))
	}
	for i, status := range want {
		if result.ImportDirs[i].Status != status {
			t.Errorf("ImportDirs[%d].Status = %q, want %q", i, result.ImportDirs[i].Status, status)
		}
	}
	if !result.HasErrors() {
		t.Error("HasErrors() = false, want true")
	}
}

func TestScopeFromPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	globalPath := ""
	if home != "" {
		globalPath = filepath.Join(home, ".pyassist", "config.yaml")
	}

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"empty path", "", ""},
		{"global path", globalPath, "global"},
		{"project path", "/project/.pyassist/config.yaml", "project"},
		{"relative project path", ".pyassist/config.yaml", "project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.path == "" && tt.expected != "" {
				t.Skip("no home directory")
			}
			result := scopeFromPath(tt.path)
			if result != tt.expected {
				t.Errorf("scopeFromPath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}
