package briefparser

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/l3aro/pyassist/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `"""Sample module."""

import os
import os.path as osp, sys
from collections import OrderedDict, defaultdict as dd
from . import sibling
from ..pkg.mod import *

VERSION = "1.0"
a, b = 1, 2
x = y = None
VERSION = "1.1"

try:
    import json
except ImportError:
    json = None

def helper(first, second=2, *args, key: int = 0, **kwargs):
    """Help."""
    def inner():
        pass
    return first

async def fetch(url):
    pass

@dataclass
class Point(Base, metaclass=Meta):
    """A point."""
    __slots = ()
    dims = 2

    def __init__(self, x, y):
        self.x = x
        self.__y = y
        self.x = 0

    @staticmethod
    def origin(cls):
        cls.never = True

    @property
    def norm(self):
        return self._cache

    @norm.setter
    def norm(self, value):
        self._cache = value

    class Meta:
        pass
`

func parseSample(t *testing.T) *types.ModuleInfo {
	t.Helper()
	info, err := New().ParseMemory(sample)
	require.NoError(t, err)
	return info
}

func TestParseMemoryGlobals(t *testing.T) {
	info := parseSample(t)

	var names []string
	for _, g := range info.Globals {
		names = append(names, g.Name)
	}
	assert.Equal(t, []string{"VERSION", "a", "b", "x", "y", "json"}, names)
	assert.Equal(t, 9, info.Globals[0].Line)
	assert.Equal(t, "Sample module.", info.Docstring)
}

func TestParseMemoryFunctions(t *testing.T) {
	info := parseSample(t)
	require.Len(t, info.Functions, 2)

	helper := info.FindFunction("helper")
	require.NotNil(t, helper)
	assert.Equal(t, []string{"first", "second", "*args", "key", "**kwargs"}, helper.Arguments)
	assert.Equal(t, "Help.", helper.Docstring)
	require.Len(t, helper.Functions, 1)
	assert.Equal(t, "inner", helper.Functions[0].Name)
	assert.Greater(t, helper.Body.End, helper.Body.Start)
	assert.True(t, helper.Body.Contains(helper.Body.End))

	fetch := info.FindFunction("fetch")
	require.NotNil(t, fetch)
	assert.True(t, fetch.IsAsync)
}

func TestParseMemoryClasses(t *testing.T) {
	info := parseSample(t)
	require.Len(t, info.Classes, 1)

	cls := info.FindClass("Point")
	require.NotNil(t, cls)
	assert.Equal(t, []string{"Base"}, cls.Bases)
	assert.Equal(t, []string{"dataclass"}, cls.Decorators)
	assert.Equal(t, "A point.", cls.Docstring)

	var classAttrs, instanceAttrs, methods []string
	for _, g := range cls.ClassAttributes {
		classAttrs = append(classAttrs, g.Name)
	}
	for _, g := range cls.InstanceAttributes {
		instanceAttrs = append(instanceAttrs, g.Name)
	}
	for _, m := range cls.Functions {
		methods = append(methods, m.Name)
	}
	assert.Equal(t, []string{"__slots", "dims"}, classAttrs)
	assert.Equal(t, []string{"x", "__y", "_cache"}, instanceAttrs)
	assert.Equal(t, []string{"__init__", "origin", "norm", "norm"}, methods)

	origin := cls.FindMethod("origin")
	require.NotNil(t, origin)
	assert.True(t, origin.IsStaticMethod())

	require.Len(t, cls.Classes, 1)
	assert.Equal(t, "Meta", cls.Classes[0].Name)
}

func TestParseMemoryImports(t *testing.T) {
	info := parseSample(t)

	require.Len(t, info.Imports, 7)
	assert.Equal(t, types.Import{Module: "os", LineNumber: 3}, info.Imports[0])
	assert.Equal(t, types.Import{Module: "os.path", Alias: "osp", LineNumber: 4}, info.Imports[1])
	assert.Equal(t, "sys", info.Imports[2].Module)

	from := info.Imports[3]
	assert.True(t, from.IsFrom)
	assert.Equal(t, "collections", from.Module)
	assert.Equal(t, []types.ImportedName{{Name: "OrderedDict"}, {Name: "defaultdict", Alias: "dd"}}, from.Names)

	assert.Equal(t, ".", info.Imports[4].Module)
	assert.Equal(t, []types.ImportedName{{Name: "sibling"}}, info.Imports[4].Names)
	assert.Equal(t, "..pkg.mod", info.Imports[5].Module)
	assert.Equal(t, []types.ImportedName{{Name: "*"}}, info.Imports[5].Names)

	assert.Equal(t, "json", info.Imports[6].Module)

	require.NotNil(t, info.ImportAliasedAs("osp"))
	assert.Equal(t, "os.path", info.ImportAliasedAs("osp").Module)
	assert.Nil(t, info.ImportAliasedAs("dd"))
}

func TestParseMemoryCleanModule(t *testing.T) {
	info := parseSample(t)
	assert.Empty(t, info.Errors)
	assert.Empty(t, info.Warnings)
	assert.Equal(t, types.StatusOK, info.Status())
}

func TestParseMemorySyntaxErrors(t *testing.T) {
	info, err := New().ParseMemory("class Ok:\n    pass\n\ndef broken(:\n    pass\n")
	require.NoError(t, err)

	require.NotEmpty(t, info.Errors)
	assert.Equal(t, types.StatusBroken, info.Status())
	assert.Equal(t, 4, info.Errors[0].Line)
	assert.NotNil(t, info.FindClass("Ok"))
}

func TestParseMemoryRedefinitionWarnings(t *testing.T) {
	src := `def f():
    pass

class C:
    def m(self):
        pass
    def m(self):
        pass

def f():
    pass
`
	info, err := New().ParseMemory(src)
	require.NoError(t, err)
	require.Len(t, info.Warnings, 2)
	assert.Equal(t, 7, info.Warnings[0].Line)
	assert.Contains(t, info.Warnings[0].Message, `"m"`)
	assert.Equal(t, 10, info.Warnings[1].Line)
	assert.Contains(t, info.Warnings[1].Message, "line 1")
}

func TestParseMemoryEmpty(t *testing.T) {
	info, err := New().ParseMemory("")
	require.NoError(t, err)
	assert.Empty(t, info.Globals)
	assert.Empty(t, info.Functions)
	assert.Empty(t, info.Classes)
	assert.Empty(t, info.Imports)
	assert.Empty(t, info.Errors)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("A = 1\n"), 0644))

	info, err := New().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)
	require.Len(t, info.Globals, 1)
	assert.Equal(t, "A", info.Globals[0].Name)
}

func TestParseFileMissing(t *testing.T) {
	_, err := New().ParseFile(filepath.Join(t.TempDir(), "missing.py"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRelativeLevel(t *testing.T) {
	tests := []struct {
		module string
		level  int
	}{
		{"os", 0},
		{".", 1},
		{".sibling", 1},
		{"..pkg.mod", 2},
		{"...", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, RelativeLevel(tt.module), tt.module)
		assert.Equal(t, tt.level > 0, IsRelativeImport(tt.module), tt.module)
	}
}
