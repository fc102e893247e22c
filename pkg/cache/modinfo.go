// Package cache keeps brief module information for files on disk and refreshes
// it when a file's modification time moves forward.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/metrics"
	"github.com/l3aro/pyassist/pkg/types"
)

// Parser builds brief module info for a file.
type Parser interface {
	ParseFile(path string) (*types.ModuleInfo, error)
}

// Options configures a ModuleInfoCache.
type Options struct {
	Logger log.Logger
}

type entry struct {
	info    *types.ModuleInfo
	modTime time.Time
}

// ModuleInfoCache maps absolute file paths to parsed module info. Entries are
// never evicted by size; they go away on Remove, Clear, or when the file is
// found missing.
type ModuleInfoCache struct {
	mu      sync.Mutex
	parser  Parser
	entries map[string]*entry
	logger  log.Logger
}

// New creates an empty cache that parses files with parser.
func New(parser Parser, opts Options) *ModuleInfoCache {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &ModuleInfoCache{
		parser:  parser,
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Get returns the module info for path. A cached entry is returned as is while
// the file's modification time is not newer than the one recorded at parse
// time. A missing file drops the entry and yields an error wrapping
// fs.ErrNotExist.
func (c *ModuleInfoCache) Get(path string) (*types.ModuleInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stat, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.removeLocked(absPath)
			return nil, fmt.Errorf("cannot find module %s: %w", absPath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("stat %s: %w", absPath, err)
	}
	modTime := stat.ModTime()

	cached, ok := c.entries[absPath]
	if ok && !modTime.After(cached.modTime) {
		metrics.CacheHits.Inc()
		return cached.info, nil
	}

	start := time.Now()
	info, err := c.parser.ParseFile(absPath)
	metrics.ParseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if ok {
		metrics.CacheReparses.Inc()
		c.logger.Debug("module changed on disk, re-parsed", "path", absPath)
	} else {
		metrics.CacheMisses.Inc()
	}
	c.entries[absPath] = &entry{info: info, modTime: modTime}
	metrics.CacheEntries.Set(float64(len(c.entries)))
	return info, nil
}

// Remove forgets path. Unknown paths are ignored.
func (c *ModuleInfoCache) Remove(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(absPath)
}

func (c *ModuleInfoCache) removeLocked(absPath string) {
	if _, ok := c.entries[absPath]; !ok {
		return
	}
	delete(c.entries, absPath)
	metrics.CacheEntries.Set(float64(len(c.entries)))
}

// Clear removes every entry.
func (c *ModuleInfoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	metrics.CacheEntries.Set(0)
}

// Len returns the number of cached modules.
func (c *ModuleInfoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
