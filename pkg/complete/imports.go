// Package complete decides what to offer at a cursor position: names
// importable from a module, module names, code-assist proposals or plain
// buffer words, plus the calltip, definition and occurrence queries built on
// the same backend.
package complete

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/briefparser"
	"github.com/l3aro/pyassist/pkg/cache"
	"github.com/l3aro/pyassist/pkg/editor"
	"github.com/l3aro/pyassist/pkg/introspect"
	"github.com/l3aro/pyassist/pkg/modindex"
	"github.com/l3aro/pyassist/pkg/types"
)

// ImportOptions configures an ImportResolver.
type ImportOptions struct {
	Modules      *modindex.Builder
	Cache        *cache.ModuleInfoCache
	Introspector introspect.Introspector
	// Workspace provides open buffers, preferred over files on disk.
	Workspace *editor.Workspace
	// DirUnsafeModules are system modules always listed by introspection.
	DirUnsafeModules []string
	Logger           log.Logger
}

// ImportResolver lists the names a module makes importable.
type ImportResolver struct {
	modules      *modindex.Builder
	cache        *cache.ModuleInfoCache
	introspector introspect.Introspector
	workspace    *editor.Workspace
	dirUnsafe    map[string]bool
	logger       log.Logger
}

// NewImportResolver creates an ImportResolver. Modules is required.
func NewImportResolver(opts ImportOptions) *ImportResolver {
	r := &ImportResolver{
		modules:      opts.Modules,
		cache:        opts.Cache,
		introspector: opts.Introspector,
		workspace:    opts.Workspace,
		dirUnsafe:    make(map[string]bool, len(opts.DirUnsafeModules)),
		logger:       opts.Logger,
	}
	for _, m := range opts.DirUnsafeModules {
		r.dirUnsafe[m] = true
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.cache == nil {
		r.cache = cache.New(briefparser.New(), cache.Options{Logger: r.logger})
	}
	return r
}

// ModuleNames lists every module importable from fileName.
func (r *ImportResolver) ModuleNames(fileName string) []string {
	return r.modules.ModuleNames(fileName)
}

// IsSystemModule reports whether name is a system module by its full
// dotted name.
func (r *ImportResolver) IsSystemModule(name string) bool {
	return r.modules.System().Has(name)
}

// InSystemPackage reports whether name is dotted under a system package,
// like os.path. It may still be an attribute rather than a module.
func (r *ImportResolver) InSystemPackage(name string) bool {
	return r.modules.System().InPackage(name)
}

// ImportedNames returns the names "from moduleName import ..." can bring in
// when written in originFileName. Unresolvable modules give an empty set.
func (r *ImportResolver) ImportedNames(ctx context.Context, moduleName, originFileName string) introspect.Names {
	system := r.modules.System()
	system.Build()

	var modulePath string
	var found bool
	switch path, ok := system.Lookup(moduleName); {
	case ok:
		if path == "" || r.dirUnsafe[moduleName] {
			return r.introspect(ctx, moduleName)
		}
		modulePath, found = path, true

	case system.InPackage(moduleName):
		return r.introspect(ctx, moduleName)

	case briefparser.IsRelativeImport(moduleName):
		if originFileName == "" {
			r.logger.Debug("relative import without a file name", "module", moduleName)
			return introspect.Names{}
		}
		level := briefparser.RelativeLevel(moduleName)
		baseDir := filepath.Dir(originFileName)
		for i := 1; i < level; i++ {
			baseDir = filepath.Dir(baseDir)
		}
		modules := r.modules.ProjectModules(baseDir, true)
		rel := moduleName[level:]
		if rel == "" {
			return r.packageNames(baseDir, modules)
		}
		modulePath, found = modules[rel]

	default:
		modulePath, found = r.modules.ProjectModules(originFileName, false)[moduleName]
	}

	if !found || modulePath == "" {
		r.logger.Debug("unresolved import", "module", moduleName, "file", originFileName)
		return introspect.Names{}
	}

	if scanner.IsBinaryModule(modulePath) {
		if r.introspector == nil {
			return introspect.Names{}
		}
		names, err := r.introspector.BinaryNames(ctx, modulePath)
		if err != nil {
			r.logger.Debug("cannot load binary module", "path", modulePath, "unsupported", introspect.IsUnsupported(err), "error", err)
			return introspect.Names{}
		}
		return names
	}

	info, err := r.moduleInfo(modulePath)
	if err != nil {
		r.logger.Debug("cannot parse module", "path", modulePath, "error", err)
		return introspect.Names{}
	}
	return introspect.Names(info.TopLevelNames())
}

// packageNames serves "from . import": the modules next to the importing
// file and the names of the package's __init__.
func (r *ImportResolver) packageNames(dir string, modules map[string]string) introspect.Names {
	names := introspect.Names{}
	for name := range modules {
		if !strings.Contains(name, ".") && name != "__init__" {
			names[name] = struct{}{}
		}
	}
	if info, err := r.moduleInfo(filepath.Join(dir, "__init__.py")); err == nil {
		for name := range info.TopLevelNames() {
			names[name] = struct{}{}
		}
	}
	return names
}

func (r *ImportResolver) introspect(ctx context.Context, moduleName string) introspect.Names {
	if r.introspector == nil {
		return introspect.Names{}
	}
	names, err := r.introspector.ModuleNames(ctx, moduleName)
	if err != nil {
		r.logger.Debug("introspection failed", "module", moduleName, "error", err)
		return introspect.Names{}
	}
	return names
}

// moduleInfo parses a module, from its open buffer when there is one.
func (r *ImportResolver) moduleInfo(path string) (*types.ModuleInfo, error) {
	if r.workspace != nil {
		if ed, ok := r.workspace.EditorFor(path); ok {
			return briefparser.New().ParseMemory(ed.Text())
		}
	}
	return r.cache.Get(path)
}
