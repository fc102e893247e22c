package introspect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Chain asks each introspector in turn and returns the first success.
type Chain []Introspector

// ModuleNames implements Introspector.
func (c Chain) ModuleNames(ctx context.Context, name string) (Names, error) {
	return c.first(func(i Introspector) (Names, error) { return i.ModuleNames(ctx, name) })
}

// BinaryNames implements Introspector.
func (c Chain) BinaryNames(ctx context.Context, path string) (Names, error) {
	return c.first(func(i Introspector) (Names, error) { return i.BinaryNames(ctx, path) })
}

// SysInfo implements Introspector.
func (c Chain) SysInfo(ctx context.Context) (SysInfo, error) {
	var errs []error
	for _, i := range c {
		info, err := i.SysInfo(ctx)
		if err == nil {
			return info, nil
		}
		errs = append(errs, err)
	}
	return SysInfo{}, errors.Join(errs...)
}

func (c Chain) first(call func(Introspector) (Names, error)) (Names, error) {
	if len(c) == 0 {
		return nil, ErrUnknownModule
	}
	var errs []error
	for _, i := range c {
		names, err := call(i)
		if err == nil {
			return names, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Cached memoizes name lookups of another Introspector in a bounded LRU.
// Failures are not cached. SysInfo is remembered after the first success.
type Cached struct {
	inner Introspector
	names *lru.Cache[string, Names]

	sysMu sync.Mutex
	sys   *SysInfo
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner Introspector, size int) (*Cached, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	names, err := lru.New[string, Names](size)
	if err != nil {
		return nil, fmt.Errorf("creating introspection cache: %w", err)
	}
	return &Cached{inner: inner, names: names}, nil
}

// ModuleNames implements Introspector.
func (c *Cached) ModuleNames(ctx context.Context, name string) (Names, error) {
	return c.lookup("module:"+name, func() (Names, error) { return c.inner.ModuleNames(ctx, name) })
}

// BinaryNames implements Introspector.
func (c *Cached) BinaryNames(ctx context.Context, path string) (Names, error) {
	return c.lookup("binary:"+path, func() (Names, error) { return c.inner.BinaryNames(ctx, path) })
}

// SysInfo implements Introspector.
func (c *Cached) SysInfo(ctx context.Context) (SysInfo, error) {
	c.sysMu.Lock()
	defer c.sysMu.Unlock()

	if c.sys != nil {
		return *c.sys, nil
	}
	info, err := c.inner.SysInfo(ctx)
	if err != nil {
		return SysInfo{}, err
	}
	c.sys = &info
	return info, nil
}

// Purge drops every memoized result.
func (c *Cached) Purge() {
	c.names.Purge()
	c.sysMu.Lock()
	c.sys = nil
	c.sysMu.Unlock()
}

// Len returns the number of memoized name sets.
func (c *Cached) Len() int {
	return c.names.Len()
}

func (c *Cached) lookup(key string, load func() (Names, error)) (Names, error) {
	if names, ok := c.names.Get(key); ok {
		return names, nil
	}
	names, err := load()
	if err != nil {
		return nil, err
	}
	c.names.Add(key, names)
	return names, nil
}

// IsUnsupported reports whether err means the module kind cannot be handled.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedModuleKind)
}
