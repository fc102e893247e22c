package healthcheck

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/pyassist/internal/config"
	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/pkg/introspect"
)

// Status values reported by the individual checks.
const (
	StatusReady    = "ready"
	StatusDisabled = "disabled"
	StatusBuiltin  = "builtin"
	StatusMissing  = "missing"
	StatusError    = "error"
)

// InterpreterStatus describes the Python interpreter used for introspection.
type InterpreterStatus struct {
	Python   string
	Version  string
	Paths    int // sys.path entries
	Builtins int
	Status   string // "ready", "disabled" or "error"
	Error    string
}

// SnapshotStatus describes the fallback introspection table.
type SnapshotStatus struct {
	Path    string // empty for the built-in table
	Modules int
	Version string
	Status  string // "ready", "builtin" or "error"
	Error   string
}

// DirStatus describes a configured directory.
type DirStatus struct {
	Path   string
	Status string // "ready", "missing", "error" or "disabled"
	Error  string
}

// HealthCheckResult contains the full health check output for display.
type HealthCheckResult struct {
	SavedPath      string
	SavedScope     string // "global" or "project"
	EffectivePath  string
	EffectiveScope string // "global" or "project"
	ProjectRoot    DirStatus
	ImportDirs     []DirStatus
	Interpreter    InterpreterStatus
	Snapshot       SnapshotStatus
}

// HasErrors reports whether completion is degraded beyond the built-in
// fallbacks: the interpreter is configured but broken, the snapshot cannot
// be loaded or a configured directory is missing.
func (r *HealthCheckResult) HasErrors() bool {
	if r.Interpreter.Status == StatusError || r.Snapshot.Status == StatusError {
		return true
	}
	if r.ProjectRoot.Status == StatusError || r.ProjectRoot.Status == StatusMissing {
		return true
	}
	for _, dir := range r.ImportDirs {
		if dir.Status != StatusReady {
			return true
		}
	}
	return false
}

// Check performs a health check against the given config.
// savedPath is where the user saved config (may be empty outside init).
// effectivePath is the config file actually in use (considering priority).
func Check(ctx context.Context, cfg *config.Config, savedPath string, effectivePath string) (*HealthCheckResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &HealthCheckResult{
		SavedPath:      savedPath,
		SavedScope:     scopeFromPath(savedPath),
		EffectivePath:  effectivePath,
		EffectiveScope: scopeFromPath(effectivePath),
	}

	if cfg.ProjectRoot != "" {
		result.ProjectRoot = checkDir(cfg.ProjectRoot)
	} else {
		result.ProjectRoot = DirStatus{Status: StatusDisabled}
	}
	for _, dir := range cfg.ImportDirs {
		result.ImportDirs = append(result.ImportDirs, checkDir(dir))
	}

	result.Interpreter = checkInterpreter(ctx, cfg)
	result.Snapshot = checkSnapshot(cfg.SnapshotPath)

	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file path.
// Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".pyassist")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

func checkDir(path string) DirStatus {
	status := DirStatus{Path: path}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		status.Status = StatusMissing
	case err != nil:
		status.Status = StatusError
		status.Error = err.Error()
	case !info.IsDir():
		status.Status = StatusError
		status.Error = "not a directory"
	default:
		status.Status = StatusReady
	}
	return status
}

// checkInterpreter runs the interpreter once to read sys.path. It is bounded
// by the configured introspection timeout.
func checkInterpreter(ctx context.Context, cfg *config.Config) InterpreterStatus {
	status := InterpreterStatus{Python: cfg.Python}
	if cfg.Python == "" {
		status.Status = StatusDisabled
		return status
	}

	intro := introspect.NewInterpreter(cfg.Python, cfg.IntrospectTimeout(), log.Discard())
	info, err := intro.SysInfo(ctx)
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}

	status.Status = StatusReady
	status.Version = info.Version
	status.Paths = len(info.Path)
	status.Builtins = len(info.Builtins)
	return status
}

func checkSnapshot(path string) SnapshotStatus {
	if path == "" {
		snap := introspect.DefaultSnapshot()
		return SnapshotStatus{
			Modules: len(snap.Modules),
			Version: snap.Env.Version,
			Status:  StatusBuiltin,
		}
	}

	status := SnapshotStatus{Path: path}
	snap, err := introspect.LoadSnapshot(path)
	if err != nil {
		status.Status = StatusError
		status.Error = err.Error()
		return status
	}
	status.Status = StatusReady
	status.Modules = len(snap.Modules)
	status.Version = snap.Env.Version
	return status
}
