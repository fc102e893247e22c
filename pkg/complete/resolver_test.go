package complete

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/assist"
	"github.com/l3aro/pyassist/pkg/briefparser"
	"github.com/l3aro/pyassist/pkg/cache"
	"github.com/l3aro/pyassist/pkg/editor"
	"github.com/l3aro/pyassist/pkg/introspect"
	"github.com/l3aro/pyassist/pkg/modindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers from canned values and records what it was asked.
type fakeBackend struct {
	proposals []assist.Proposal
	calltip   string
	doc       string
	location  *assist.Location
	name      string
	found     []assist.Location
	err       error
	panics    bool

	requests  []assist.Request
	docCalls  int
	onFind    func(path string)
	findCalls int
}

func (f *fakeBackend) CodeAssist(_ context.Context, req assist.Request) ([]assist.Proposal, error) {
	f.requests = append(f.requests, req)
	if f.panics {
		panic("backend exploded")
	}
	return f.proposals, f.err
}

func (f *fakeBackend) Calltip(_ context.Context, req assist.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.calltip, f.err
}

func (f *fakeBackend) Doc(context.Context, assist.Request) (string, error) {
	f.docCalls++
	return f.doc, nil
}

func (f *fakeBackend) FindDefinition(_ context.Context, req assist.Request) (*assist.Location, error) {
	f.requests = append(f.requests, req)
	return f.location, f.err
}

func (f *fakeBackend) FindOccurrences(_ context.Context, path string, _ int) ([]assist.Location, error) {
	f.findCalls++
	if f.onFind != nil {
		f.onFind(path)
	}
	return f.found, f.err
}

func (f *fakeBackend) NameAt(string, int) (string, error) {
	return f.name, nil
}

// mapIntrospector serves module names from a map.
type mapIntrospector map[string][]string

func (m mapIntrospector) ModuleNames(_ context.Context, name string) (introspect.Names, error) {
	names, ok := m[name]
	if !ok {
		return nil, introspect.ErrUnknownModule
	}
	return introspect.NewNames(names...), nil
}

func (m mapIntrospector) BinaryNames(context.Context, string) (introspect.Names, error) {
	return nil, introspect.ErrUnsupportedModuleKind
}

func (m mapIntrospector) SysInfo(context.Context) (introspect.SysInfo, error) {
	return introspect.SysInfo{}, nil
}

type fixture struct {
	root     string
	main     string
	backend  *fakeBackend
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"pkg/__init__.py":     "VERSION = 1\n",
		"pkg/util.py":         "RATE = 1\n\ndef helper():\n    pass\n",
		"pkg/sub/__init__.py": "",
		"pkg/sub/mod.py":      "X = 1\n",
		"main.py":             "a = 1\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	sc, err := scanner.New(scanner.DefaultOptions())
	require.NoError(t, err)
	system := modindex.NewSystemIndex(func() map[string]string {
		return map[string]string{"os": "", "sys": ""}
	})
	modules := modindex.NewBuilder(modindex.Project{Root: root}, system, sc)
	modCache := cache.New(briefparser.New(), cache.Options{Logger: log.Discard()})
	imports := NewImportResolver(ImportOptions{
		Modules: modules,
		Cache:   modCache,
		Introspector: mapIntrospector{
			"os.path": {"join", "exists"},
			"sys":     {"argv", "path"},
		},
		Logger: log.Discard(),
	})
	backend := &fakeBackend{}
	return &fixture{
		root:    root,
		main:    filepath.Join(root, "main.py"),
		backend: backend,
		resolver: NewResolver(Options{
			Backend:              backend,
			Imports:              imports,
			Cache:                modCache,
			DocSignaturePrefixes: []string{"QtGui."},
			Logger:               log.Discard(),
		}),
	}
}

// complete runs CompletionList on text with the cursor at "|".
func (f *fixture) complete(t *testing.T, fileName, marked string) ([]string, bool) {
	t.Helper()
	pos := strings.Index(marked, "|")
	require.GreaterOrEqual(t, pos, 0)
	ed := editor.NewBuffer(marked[:pos] + marked[pos+1:])
	ed.SetCursor(pos)
	info, err := briefparser.New().ParseMemory(ed.Text())
	require.NoError(t, err)
	return f.resolver.CompletionList(context.Background(), NewContext(ed, info), ed, fileName, info)
}

func TestCompletionListImports(t *testing.T) {
	f := newFixture(t)
	nested := filepath.Join(f.root, "pkg", "sub", "mod.py")

	tests := []struct {
		name     string
		file     string
		text     string
		want     []string
		wantMods bool
	}{
		{"introspected submodule", f.main, "from os.path import jo|", []string{"exists", "join"}, false},
		{"project module", f.main, "from pkg.util import |", []string{"RATE", "helper"}, false},
		{"package init", f.main, "from pkg import V|", []string{"VERSION"}, false},
		{"relative sibling", nested, "from .mod import |", []string{"X"}, false},
		{"relative parent", nested, "from ..util import |", []string{"RATE", "helper"}, false},
		{"parenthesised list", f.main, "from pkg.util import (RATE,\n    x,\n    |", []string{"RATE", "helper"}, false},
		{"typing alias", f.main, "import os as o|", nil, false},
		{"unknown module", f.main, "from nowhere import |", []string{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isModules := f.complete(t, tt.file, tt.text)
			assert.Equal(t, tt.wantMods, isModules)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("CompletionList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
	assert.Empty(t, f.backend.requests)
}

func TestCompletionListModuleNames(t *testing.T) {
	f := newFixture(t)
	got, isModules := f.complete(t, f.main, "import p|")
	assert.True(t, isModules)
	assert.Subset(t, got, []string{"os", "sys", "pkg", "pkg.util", "pkg.sub.mod"})
}

func TestCompletionListTags(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"comment", "hello = 1\n# he|", []string{"hello"}},
		{"string", "hello = 1\nx = 'he|'", []string{"hello"}},
		{"nothing typed", "hello = 1\nworld = 2\n|", []string{"hello", "world"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, isModules := f.complete(t, f.main, tt.text)
			assert.False(t, isModules)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Empty(t, f.backend.requests)
}

const widget = `class Widget:
    __registry = {}

    def __init__(self):
        self.__secret = 1

    def __helper(self):
        pass

    def draw(self):
        self.dr|
        return 1
`

func TestCompletionListSelf(t *testing.T) {
	f := newFixture(t)
	f.backend.proposals = []assist.Proposal{
		{Name: "draw", Kind: assist.KindAttribute},
		{Name: "__class__", Kind: assist.KindAttribute},
		{Name: "__hidden", Kind: assist.KindAttribute},
		{Name: "__len__", Kind: assist.KindBuiltin},
	}

	got, isModules := f.complete(t, f.main, widget)
	assert.False(t, isModules)
	assert.Equal(t, []string{"__class__", "__helper", "__registry", "__secret", "draw"}, got)

	require.Len(t, f.backend.requests, 1)
	cursor := strings.Index(widget, "|")
	assert.Equal(t, cursor-len("dr"), f.backend.requests[0].Offset)
}

func TestCompletionListSelfEmptyPrefix(t *testing.T) {
	const head = `class Widget:
    __registry = {}

    def __init__(self):
        self.__secret = 1

    def __helper(self):
        pass

    def draw(self):
`
	tests := []struct {
		name string
		text string
	}{
		{"inside method", head + "        self.|\n        return 1\n"},
		{"end of file", head + "        self.|"},
		{"end of method before next one", head + "        self.|\n\n    def other(self):\n        pass\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.proposals = []assist.Proposal{
				{Name: "draw", Kind: assist.KindAttribute},
				{Name: "__hidden", Kind: assist.KindAttribute},
			}

			got, isModules := f.complete(t, f.main, tt.text)
			assert.False(t, isModules)
			assert.Equal(t, []string{"__helper", "__registry", "__secret", "draw"}, got)

			require.Len(t, f.backend.requests, 1)
			assert.Equal(t, strings.Index(tt.text, "|"), f.backend.requests[0].Offset)
		})
	}
}

func TestCompletionListSystemAlias(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"alias", "import sys as s\ns.ar|", []string{"argv", "path"}},
		{"direct", "import os.path\nos.path.|", []string{"exists", "join"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := f.complete(t, f.main, tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Empty(t, f.backend.requests)
}

func TestCompletionListSystemAttributeChain(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		object string
	}{
		{"module attribute", "import os\nos.environ.ge|", "os.environ"},
		{"attribute of builtin", "import sys\nsys.stdout.|", "sys.stdout"},
		{"aliased", "import sys as s\ns.path.ap|", "s.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.backend.proposals = []assist.Proposal{{Name: "get", Kind: assist.KindAttribute}}

			got, isModules := f.complete(t, f.main, tt.text)
			assert.False(t, isModules)
			assert.Equal(t, []string{"get"}, got)
			require.Len(t, f.backend.requests, 1)
			assert.Contains(t, f.backend.requests[0].Source, tt.object+".")
		})
	}
}

func TestCompletionListBackend(t *testing.T) {
	f := newFixture(t)
	f.backend.proposals = []assist.Proposal{
		{Name: "value", Kind: assist.KindLocal},
		{Name: "__private", Kind: assist.KindGlobal},
		{Name: "va=", Kind: assist.KindParameterKeyword},
	}
	got, _ := f.complete(t, f.main, "valx = 1\nva|")
	assert.Equal(t, []string{"valx", "value"}, got)

	// Attribute access does not mix in buffer words.
	got, _ = f.complete(t, f.main, "valx = 1\nobj.va|")
	assert.Equal(t, []string{"value"}, got)
}

func TestCompletionListBackendFallback(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeBackend)
	}{
		{"error", func(b *fakeBackend) { b.err = errors.New("boom") }},
		{"panic", func(b *fakeBackend) { b.panics = true }},
		{"empty", func(b *fakeBackend) {}},
		{"only private", func(b *fakeBackend) {
			b.proposals = []assist.Proposal{{Name: "__x", Kind: assist.KindGlobal}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.backend)
			got, _ := f.complete(t, f.main, "val = 1\nva|")
			assert.Equal(t, []string{"val"}, got)
		})
	}
}

func TestExcludePrivate(t *testing.T) {
	got := excludePrivate([]assist.Proposal{
		{Name: "plain", Kind: assist.KindGlobal},
		{Name: "__dict__", Kind: assist.KindAttribute},
		{Name: "__init__", Kind: assist.KindBuiltin},
		{Name: "__cache", Kind: assist.KindAttribute},
		{Name: "_single", Kind: assist.KindLocal},
	})
	assert.Equal(t, []string{"__dict__", "_single", "plain"}, sortedNames(got))
}
