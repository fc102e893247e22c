package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingParser returns a fresh ModuleInfo per call and records the paths.
type countingParser struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (p *countingParser) ParseFile(path string) (*types.ModuleInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, path)
	if p.err != nil {
		return nil, p.err
	}
	return &types.ModuleInfo{Path: path}, nil
}

func (p *countingParser) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func writeModule(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func newCache(p Parser) *ModuleInfoCache {
	return New(p, Options{Logger: log.Discard()})
}

func TestModuleInfoCache_FreshEntryIsReused(t *testing.T) {
	p := &countingParser{}
	c := newCache(p)
	path := writeModule(t, t.TempDir(), "a.py", time.Now().Add(-time.Hour))

	first, err := c.Get(path)
	require.NoError(t, err)
	second, err := c.Get(path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, p.count())
	assert.Equal(t, 1, c.Len())
}

func TestModuleInfoCache_NewerFileIsReparsed(t *testing.T) {
	p := &countingParser{}
	c := newCache(p)
	base := time.Now().Add(-time.Hour)
	path := writeModule(t, t.TempDir(), "a.py", base)

	first, err := c.Get(path)
	require.NoError(t, err)

	newer := base.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, newer, newer))

	second, err := c.Get(path)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, p.count())

	third, err := c.Get(path)
	require.NoError(t, err)
	assert.Same(t, second, third)
	assert.Equal(t, 2, p.count())
}

func TestModuleInfoCache_OlderFileIsNotReparsed(t *testing.T) {
	p := &countingParser{}
	c := newCache(p)
	base := time.Now().Add(-time.Hour)
	path := writeModule(t, t.TempDir(), "a.py", base)

	first, err := c.Get(path)
	require.NoError(t, err)

	older := base.Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, older, older))

	second, err := c.Get(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, p.count())
}

func TestModuleInfoCache_MissingFileDropsEntry(t *testing.T) {
	c := newCache(&countingParser{})
	path := writeModule(t, t.TempDir(), "gone.py", time.Now())

	_, err := c.Get(path)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	require.NoError(t, os.Remove(path))

	_, err = c.Get(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, 0, c.Len())
}

func TestModuleInfoCache_NeverSeenMissingFile(t *testing.T) {
	c := newCache(&countingParser{})
	_, err := c.Get(filepath.Join(t.TempDir(), "nope.py"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, 0, c.Len())
}

func TestModuleInfoCache_ParseErrorIsNotCached(t *testing.T) {
	p := &countingParser{err: errors.New("boom")}
	c := newCache(p)
	path := writeModule(t, t.TempDir(), "a.py", time.Now())

	_, err := c.Get(path)
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	p.err = nil
	_, err = c.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.count())
}

func TestModuleInfoCache_RemoveAndClear(t *testing.T) {
	p := &countingParser{}
	c := newCache(p)
	dir := t.TempDir()
	a := writeModule(t, dir, "a.py", time.Now())
	b := writeModule(t, dir, "b.py", time.Now())

	_, err := c.Get(a)
	require.NoError(t, err)
	_, err = c.Get(b)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Contains(t, c.entries, a)
	assert.Contains(t, c.entries, b)

	c.Remove(a)
	assert.Equal(t, 1, c.Len())

	// Removing an unknown key is a no-op.
	c.Remove(filepath.Join(dir, "unknown.py"))
	assert.Equal(t, 1, c.Len())

	// A removed path is parsed again on the next Get.
	_, err = c.Get(a)
	require.NoError(t, err)
	assert.Equal(t, 3, p.count())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestModuleInfoCache_RelativePathsShareEntries(t *testing.T) {
	p := &countingParser{}
	c := newCache(p)
	dir := t.TempDir()
	path := writeModule(t, dir, "a.py", time.Now())

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = c.Get("a.py")
	require.NoError(t, err)
	_, err = c.Get(path)
	require.NoError(t, err)
	assert.Equal(t, 1, p.count())
}

func TestModuleInfoCache_ConcurrentAccess(t *testing.T) {
	p := &countingParser{}
	c := newCache(p)
	path := writeModule(t, t.TempDir(), "a.py", time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Get(path)
			c.Remove(path)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 1)
}
