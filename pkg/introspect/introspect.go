// Package introspect lists the names a Python module exposes without parsing
// its source: by asking a live interpreter, or from a static snapshot taken
// earlier.
package introspect

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrUnsupportedModuleKind is returned by introspectors that cannot load
	// a module of the requested kind, e.g. native extensions from a snapshot.
	ErrUnsupportedModuleKind = errors.New("unsupported module kind")

	// ErrUnknownModule is returned when the introspector has no data for a
	// module or the import failed.
	ErrUnknownModule = errors.New("unknown module")
)

// Names is a set of attribute names.
type Names map[string]struct{}

// NewNames builds a set from a list.
func NewNames(list ...string) Names {
	n := make(Names, len(list))
	for _, s := range list {
		n[s] = struct{}{}
	}
	return n
}

// Sorted returns the names in lexical order.
func (n Names) Sorted() []string {
	out := make([]string, 0, len(n))
	for s := range n {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SysInfo describes the interpreter environment.
type SysInfo struct {
	Path     []string `json:"path" msgpack:"path" yaml:"path"`
	Builtins []string `json:"builtins" msgpack:"builtins" yaml:"builtins"`
	Version  string   `json:"version" msgpack:"version" yaml:"version"`
}

// Introspector lists names of modules.
type Introspector interface {
	// ModuleNames returns dir() of the module imported by dotted name.
	ModuleNames(ctx context.Context, name string) (Names, error)
	// BinaryNames returns dir() of the native extension module at path.
	BinaryNames(ctx context.Context, path string) (Names, error)
	// SysInfo returns sys.path and the built-in module names.
	SysInfo(ctx context.Context) (SysInfo, error)
}
