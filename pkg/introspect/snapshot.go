package introspect

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/l3aro/pyassist/internal/metrics"
)

//go:embed defaults.yaml
var defaultSnapshot []byte

// snapshotFormatVersion is bumped whenever the persisted layout changes.
const snapshotFormatVersion = 1

// Snapshot is a static introspection table. It never runs code, so it cannot
// load native extension modules.
type Snapshot struct {
	Env     SysInfo             `yaml:",inline" msgpack:"env"`
	Modules map[string][]string `yaml:"modules" msgpack:"modules"`
}

// persistedSnapshot is the on-disk envelope.
type persistedSnapshot struct {
	Version   int       `msgpack:"version"`
	CreatedAt time.Time `msgpack:"created_at"`
	Snapshot  *Snapshot `msgpack:"snapshot"`
}

// DefaultSnapshot returns the table built into the binary.
func DefaultSnapshot() *Snapshot {
	var s Snapshot
	if err := yaml.Unmarshal(defaultSnapshot, &s); err != nil {
		panic(fmt.Sprintf("introspect: embedded snapshot is invalid: %v", err))
	}
	return &s
}

// LoadSnapshot reads a snapshot saved by Save.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var p persistedSnapshot
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", path, err)
	}
	if p.Version != snapshotFormatVersion {
		return nil, fmt.Errorf("snapshot %s has format version %d, want %d", path, p.Version, snapshotFormatVersion)
	}
	if p.Snapshot == nil {
		return nil, fmt.Errorf("snapshot %s is empty", path)
	}
	return p.Snapshot, nil
}

// Save writes the snapshot to path in msgpack form, creating parent
// directories as needed.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	data, err := msgpack.Marshal(&persistedSnapshot{
		Version:   snapshotFormatVersion,
		CreatedAt: time.Now().UTC(),
		Snapshot:  s,
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Merge copies modules from other that s does not have yet.
func (s *Snapshot) Merge(other *Snapshot) {
	if other == nil {
		return
	}
	if s.Modules == nil {
		s.Modules = make(map[string][]string)
	}
	for name, names := range other.Modules {
		if _, ok := s.Modules[name]; !ok {
			s.Modules[name] = names
		}
	}
	if len(s.Env.Builtins) == 0 {
		s.Env.Builtins = other.Env.Builtins
	}
	if len(s.Env.Path) == 0 {
		s.Env.Path = other.Env.Path
	}
	if s.Env.Version == "" {
		s.Env.Version = other.Env.Version
	}
}

// ModuleNames looks the module up in the table.
func (s *Snapshot) ModuleNames(_ context.Context, name string) (Names, error) {
	defer observeSince("snapshot", time.Now())
	list, ok := s.Modules[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownModule)
	}
	return NewNames(list...), nil
}

// BinaryNames always fails with ErrUnsupportedModuleKind.
func (s *Snapshot) BinaryNames(_ context.Context, path string) (Names, error) {
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedModuleKind)
}

// SysInfo returns the recorded interpreter environment.
func (s *Snapshot) SysInfo(context.Context) (SysInfo, error) {
	return s.Env, nil
}

func observeSince(label string, start time.Time) {
	metrics.IntrospectionDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}
