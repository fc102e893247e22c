package commands

import (
	"fmt"

	"github.com/l3aro/pyassist/internal/config"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/assist"
	"github.com/l3aro/pyassist/pkg/briefparser"
	"github.com/l3aro/pyassist/pkg/cache"
	"github.com/l3aro/pyassist/pkg/complete"
	"github.com/l3aro/pyassist/pkg/editor"
	"github.com/l3aro/pyassist/pkg/introspect"
	"github.com/l3aro/pyassist/pkg/modindex"
)

// app holds the engine assembled from a configuration.
type app struct {
	cfg          *config.Config
	introspector *introspect.Cached
	system       *modindex.SystemIndex
	modules      *modindex.Builder
	cache        *cache.ModuleInfoCache
	workspace    *editor.Workspace
	imports      *complete.ImportResolver
	resolver     *complete.Resolver
}

func newApp(cfg *config.Config) (*app, error) {
	opts := scanner.DefaultOptions()
	opts.Excludes = append(append([]string{}, opts.Excludes...), cfg.Exclude...)
	sc, err := scanner.New(opts)
	if err != nil {
		return nil, err
	}

	intro, err := newIntrospector(cfg)
	if err != nil {
		return nil, err
	}

	system := modindex.NewSystemIndex(modindex.InterpreterEnumerator(intro, sc, cfg.SystemPaths, logger))
	modules := modindex.NewBuilder(modindex.Project{
		ImportDirs: cfg.ImportDirs,
		Root:       cfg.ProjectRoot,
	}, system, sc)
	modCache := cache.New(briefparser.New(), cache.Options{Logger: logger})
	workspace := editor.NewWorkspace()

	imports := complete.NewImportResolver(complete.ImportOptions{
		Modules:          modules,
		Cache:            modCache,
		Introspector:     intro,
		Workspace:        workspace,
		DirUnsafeModules: cfg.DirUnsafeModules,
		Logger:           logger,
	})
	backend := assist.NewStatic(assist.Options{
		Cache:        modCache,
		Modules:      modules,
		Introspector: intro,
		Scanner:      sc,
		Root:         cfg.ProjectRoot,
		MaxFixes:     cfg.MaxFixes,
		Logger:       logger,
	})

	resolver := complete.NewResolver(complete.Options{
		Backend:              backend,
		Imports:              imports,
		Cache:                modCache,
		DocSignaturePrefixes: cfg.DocSignaturePrefixes,
		Logger:               logger,
	})

	return &app{
		cfg:          cfg,
		introspector: intro,
		system:       system,
		modules:      modules,
		cache:        modCache,
		workspace:    workspace,
		imports:      imports,
		resolver:     resolver,
	}, nil
}

// newIntrospector chains the interpreter, when configured, before the
// snapshot. A configured snapshot file is merged over the built-in table.
func newIntrospector(cfg *config.Config) (*introspect.Cached, error) {
	snap := introspect.DefaultSnapshot()
	if cfg.SnapshotPath != "" {
		loaded, err := introspect.LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			logger.Warn("ignoring introspection snapshot", "path", cfg.SnapshotPath, "error", err)
		} else {
			loaded.Merge(snap)
			snap = loaded
		}
	}

	var chain introspect.Chain
	if cfg.Python != "" {
		chain = append(chain, introspect.NewInterpreter(cfg.Python, cfg.IntrospectTimeout(), logger))
	}
	chain = append(chain, snap)

	cached, err := introspect.NewCached(chain, cfg.IntrospectCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating introspector: %w", err)
	}
	return cached, nil
}

// watchDirs returns the directories whose modules the project imports.
func (a *app) watchDirs() []string {
	dirs := append([]string{}, a.cfg.ImportDirs...)
	if a.cfg.ProjectRoot != "" {
		dirs = append(dirs, a.cfg.ProjectRoot)
	}
	return dirs
}
