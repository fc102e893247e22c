package introspect

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/metrics"
)

//go:embed introspect.py
var script string

// DefaultTimeout bounds a single interpreter run.
const DefaultTimeout = 10 * time.Second

// Interpreter introspects modules by running a Python interpreter in a
// subprocess. Every run is bounded by Timeout.
type Interpreter struct {
	Python  string
	Timeout time.Duration
	Logger  log.Logger
}

// NewInterpreter creates an Interpreter for the given executable.
func NewInterpreter(python string, timeout time.Duration, logger log.Logger) *Interpreter {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Interpreter{Python: python, Timeout: timeout, Logger: logger}
}

// ModuleNames imports name with importlib and lists its attributes.
func (i *Interpreter) ModuleNames(ctx context.Context, name string) (Names, error) {
	var list []string
	if err := i.run(ctx, &list, "names", name); err != nil {
		return nil, err
	}
	return NewNames(list...), nil
}

// BinaryNames loads the extension module at path and lists its attributes.
func (i *Interpreter) BinaryNames(ctx context.Context, path string) (Names, error) {
	var list []string
	if err := i.run(ctx, &list, "binary", path); err != nil {
		return nil, err
	}
	return NewNames(list...), nil
}

// SysInfo reports sys.path (empty entries dropped) and built-in modules.
func (i *Interpreter) SysInfo(ctx context.Context) (SysInfo, error) {
	var info SysInfo
	err := i.run(ctx, &info, "sysinfo")
	return info, err
}

// Snapshot introspects every module in names and returns a static table of
// the results. Modules that fail to import are left out.
func (i *Interpreter) Snapshot(ctx context.Context, names []string) (*Snapshot, error) {
	info, err := i.SysInfo(ctx)
	if err != nil {
		return nil, err
	}
	var out struct {
		Modules map[string][]string `json:"modules"`
	}
	if err := i.run(ctx, &out, "snapshot", names...); err != nil {
		return nil, err
	}
	return &Snapshot{Env: info, Modules: out.Modules}, nil
}

func (i *Interpreter) run(ctx context.Context, out interface{}, mode string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, i.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.IntrospectionDuration.WithLabelValues("interpreter").Observe(time.Since(start).Seconds())
	}()

	argv := append([]string{"-c", script, mode}, args...)
	cmd := exec.CommandContext(ctx, i.Python, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	target := mode
	if len(args) == 1 {
		target = args[0]
	}

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("introspecting %s: timed out after %s", target, i.Timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			i.Logger.Debug("introspection failed", "target", target, "stderr", lastLine(stderr.String()))
			return fmt.Errorf("introspecting %s: %w", target, ErrUnknownModule)
		}
		return fmt.Errorf("running %s: %w", i.Python, err)
	}

	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return fmt.Errorf("decoding introspection output for %s: %w", target, err)
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
