package assist

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/scanner"
	"github.com/l3aro/pyassist/pkg/briefparser"
	"github.com/l3aro/pyassist/pkg/cache"
	"github.com/l3aro/pyassist/pkg/editor"
	"github.com/l3aro/pyassist/pkg/introspect"
	"github.com/l3aro/pyassist/pkg/modindex"
	"github.com/l3aro/pyassist/pkg/scope"
	"github.com/l3aro/pyassist/pkg/types"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// DefaultMaxFixes is the number of syntax errors tolerated when MaxFixes is
// not set.
const DefaultMaxFixes = 7

// Options configures a Static backend. Every field is optional.
type Options struct {
	// Cache holds parsed project modules. A private cache is created when nil.
	Cache *cache.ModuleInfoCache
	// Modules resolves module names to files.
	Modules *modindex.Builder
	// Introspector lists the names of modules that have no source.
	Introspector introspect.Introspector
	// Scanner walks the project for occurrences.
	Scanner *scanner.Scanner
	// Root is the project directory searched for occurrences. The directory
	// of the queried file is used when empty.
	Root string
	// MaxFixes is the number of syntax errors tolerated before ErrSyntax.
	MaxFixes int
	Logger   log.Logger
}

// Static is a Backend working from tree-sitter parses and brief module info.
// It never imports the code it analyzes.
type Static struct {
	cache        *cache.ModuleInfoCache
	modules      *modindex.Builder
	introspector introspect.Introspector
	scanner      *scanner.Scanner
	root         string
	maxFixes     int
	logger       log.Logger
}

var _ Backend = (*Static)(nil)

// NewStatic creates a Static backend.
func NewStatic(opts Options) *Static {
	s := &Static{
		cache:        opts.Cache,
		modules:      opts.Modules,
		introspector: opts.Introspector,
		scanner:      opts.Scanner,
		root:         opts.Root,
		maxFixes:     opts.MaxFixes,
		logger:       opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.cache == nil {
		s.cache = cache.New(briefparser.New(), cache.Options{Logger: s.logger})
	}
	if s.scanner == nil {
		if sc, err := scanner.New(scanner.DefaultOptions()); err == nil {
			s.scanner = sc
		}
	}
	if s.maxFixes <= 0 {
		s.maxFixes = DefaultMaxFixes
	}
	return s
}

// source is a parsed request.
type source struct {
	path    string
	content []byte
	tree    *sitter.Tree
	info    *types.ModuleInfo
	offset  int
	scope   scope.Scope
}

func (s *Static) analyze(req Request) (*source, error) {
	path := req.Path
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	content := []byte(req.Source)

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parsing %s: tree-sitter returned no tree", path)
	}
	if n := briefparser.CountErrors(tree.RootNode()); n > s.maxFixes {
		tree.Close()
		return nil, fmt.Errorf("%w: %d errors in %s", ErrSyntax, n, path)
	}

	info, err := briefparser.New().ParseMemory(req.Source)
	if err != nil {
		tree.Close()
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	info.Path = path

	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	return &source{
		path:    path,
		content: content,
		tree:    tree,
		info:    info,
		offset:  offset,
		scope:   scope.At(info, offset),
	}, nil
}

func (src *source) close() {
	src.tree.Close()
}

// context splits the text left of the cursor into object and prefix.
func (src *source) context() (object, prefix string) {
	buf := editor.NewBuffer(string(src.content))
	buf.SetCursor(src.offset)
	return editor.ContextAt(buf)
}

// expressionAt returns the dotted expression under the cursor, including the
// part of the word right of it.
func (src *source) expressionAt() string {
	object, prefix := src.context()
	end := src.offset
	for end < len(src.content) && isIdentByte(src.content[end]) {
		end++
	}
	word := prefix + string(src.content[src.offset:end])
	if word == "" {
		return ""
	}
	if object != "" {
		return object + "." + word
	}
	return word
}

// localBindings returns the parameters and local names of fn.
func (src *source) localBindings(fn *types.Function) []binding {
	block := findBlock(src.tree.RootNode(), fn.Body.Start, fn.Body.End)
	if block == nil {
		return nil
	}
	var out []binding
	if def := block.Parent(); def != nil && def.Type() == "function_definition" {
		out = parameterBindings(def, src.content)
	}
	return append(out, scopeBindings(block, src.content)...)
}

func (src *source) location(n *sitter.Node) *Location {
	pt := n.StartPoint()
	return &Location{
		Path:   src.path,
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column),
		Offset: int(n.StartByte()),
	}
}

// CodeAssist proposes names for the cursor position.
func (s *Static) CodeAssist(ctx context.Context, req Request) ([]Proposal, error) {
	src, err := s.analyze(req)
	if err != nil {
		return nil, err
	}
	defer src.close()

	object, prefix := src.context()
	set := newProposalSet()
	if object == "" {
		s.keywordArguments(ctx, src, set)
		s.scopeNames(ctx, src, set)
	} else {
		s.attributes(ctx, src, object, set)
	}
	return set.matching(prefix), nil
}

// Calltip returns the signature of the function being called at the
// cursor, or of the callable under it. It is empty when nothing resolves.
func (s *Static) Calltip(ctx context.Context, req Request) (string, error) {
	src, err := s.analyze(req)
	if err != nil {
		return "", err
	}
	defer src.close()

	sym := s.resolve(ctx, src, src.callableAt())
	switch {
	case sym == nil:
		return "", nil
	case sym.fn != nil:
		return sym.qualified + normalizeParams(sym.fn.Params), nil
	case sym.cls != nil:
		return sym.qualified + "()", nil
	}
	return "", nil
}

// Doc returns the docstring of the callable at the cursor.
func (s *Static) Doc(ctx context.Context, req Request) (string, error) {
	src, err := s.analyze(req)
	if err != nil {
		return "", err
	}
	defer src.close()

	if sym := s.resolve(ctx, src, src.callableAt()); sym != nil {
		return sym.doc, nil
	}
	return "", nil
}

// FindDefinition locates the definition of the name under the cursor.
func (s *Static) FindDefinition(ctx context.Context, req Request) (*Location, error) {
	src, err := s.analyze(req)
	if err != nil {
		return nil, err
	}
	defer src.close()

	sym := s.resolve(ctx, src, src.expressionAt())
	if sym == nil {
		return nil, nil
	}
	return sym.loc, nil
}

// callableAt prefers the call around the cursor over the word under it.
func (src *source) callableAt() string {
	if callee, ok := calleeAt(string(src.content), src.offset); ok {
		return callee
	}
	return src.expressionAt()
}

// NameAt returns the identifier at offset in the file at path.
func (s *Static) NameAt(path string, offset int) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	buf := editor.NewBuffer(string(content))
	buf.SetCursor(offset)
	name := buf.CurrentWord()
	if !scanner.IsIdentifier(name) || IsKeyword(name) {
		return "", fmt.Errorf("%w: %s:%d", ErrNoName, path, offset)
	}
	return name, nil
}

// FindOccurrences lists every identifier in the project spelled like the
// one at offset in path. The match is by name only.
func (s *Static) FindOccurrences(ctx context.Context, path string, offset int) ([]Location, error) {
	name, err := s.NameAt(path, offset)
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", path, err)
	}
	root := s.root
	if root == "" {
		root = filepath.Dir(absPath)
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	files := []string{absPath}
	if s.scanner != nil {
		found, err := s.scanner.Scan(root)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
		for _, f := range found {
			if f.FullPath != absPath {
				files = append(files, f.FullPath)
			}
		}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	needle := []byte(name)

	var locs []Location
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(file)
		if err != nil {
			s.logger.Debug("skipping unreadable file", "path", file, "error", err)
			continue
		}
		if !bytes.Contains(content, needle) {
			continue
		}
		tree := parser.Parse(nil, content)
		if tree == nil {
			continue
		}
		src := &source{path: file, content: content}
		identifiers(tree.RootNode(), func(n *sitter.Node) {
			if nodeText(n, content) == name {
				locs = append(locs, *src.location(n))
			}
		})
		tree.Close()
	}

	sort.Slice(locs, func(i, j int) bool {
		if locs[i].Path != locs[j].Path {
			return locs[i].Path < locs[j].Path
		}
		return locs[i].Offset < locs[j].Offset
	})
	return locs, nil
}

// scopeNames proposes every name visible without a dot.
func (s *Static) scopeNames(ctx context.Context, src *source, set *proposalSet) {
	sc := src.scope
	if sc.Kind == scope.KindClass && sc.Class != nil {
		addClassBody(sc.Class, set, KindLocal)
	}
	for i := len(sc.Functions) - 1; i >= 0; i-- {
		for _, b := range src.localBindings(sc.Functions[i]) {
			set.add(b.name, KindLocal)
		}
	}

	info := src.info
	for _, g := range info.Globals {
		set.add(g.Name, KindGlobal)
	}
	for _, fn := range info.Functions {
		set.add(fn.Name, KindGlobal)
	}
	for _, cls := range info.Classes {
		set.add(cls.Name, KindGlobal)
	}
	for _, imp := range info.Imports {
		if imp.IsFrom && len(imp.Names) == 1 && imp.Names[0].Name == "*" {
			s.addModuleNames(ctx, src, imp.Module, set, KindImported)
			continue
		}
		for _, name := range boundNames(imp) {
			set.add(name, KindImported)
		}
	}

	for _, name := range s.builtinNames(ctx) {
		set.add(name, KindBuiltin)
	}
	for _, kw := range pythonKeywords {
		set.add(kw, KindKeyword)
	}
}

// keywordArguments proposes "name=" for the parameters of the function
// being called at the cursor.
func (s *Static) keywordArguments(ctx context.Context, src *source, set *proposalSet) {
	callee, ok := calleeAt(string(src.content), src.offset)
	if !ok {
		return
	}
	sym := s.resolve(ctx, src, callee)
	if sym == nil || sym.fn == nil {
		return
	}
	args := sym.fn.Arguments
	if sym.bound && len(args) > 0 {
		args = args[1:]
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "*") {
			continue
		}
		set.add(arg+"=", KindParameterKeyword)
	}
}

// attributes proposes the members of object.
func (s *Static) attributes(ctx context.Context, src *source, object string, set *proposalSet) {
	parts := strings.Split(object, ".")
	if len(parts) == 1 {
		if self := src.scope.FirstParameter(); self != "" && parts[0] == self && src.scope.Class != nil {
			addClassMembers(src.info, src.scope.Class, true, set)
			addObjectAttributes(set)
			return
		}
		if cls := src.info.FindClass(parts[0]); cls != nil {
			addClassMembers(src.info, cls, false, set)
			addObjectAttributes(set)
			return
		}
	}
	if module, ok := moduleFor(src.info, parts); ok {
		s.addModuleNames(ctx, src, module, set, KindAttribute)
	}
}

// addModuleNames proposes the names a module exposes.
func (s *Static) addModuleNames(ctx context.Context, src *source, module string, set *proposalSet, kind Kind) {
	path, ok := s.lookupModule(src.path, module)
	if !ok {
		// "from pkg import Widget" makes pkg.Widget a class, not a module.
		if i := strings.LastIndexByte(module, '.'); i > 0 {
			if info, _ := s.moduleInfo(src.path, module[:i]); info != nil {
				if cls := info.FindClass(module[i+1:]); cls != nil {
					addClassMembers(info, cls, false, set)
					addObjectAttributes(set)
				}
			}
		}
		return
	}

	if path == "" || scanner.IsBinaryModule(path) {
		if s.introspector == nil {
			return
		}
		names, err := s.introspector.ModuleNames(ctx, module)
		if err != nil {
			s.logger.Debug("introspection failed", "module", module, "error", err)
			return
		}
		for name := range names {
			set.add(name, kind)
		}
		return
	}

	info, err := s.cache.Get(path)
	if err != nil {
		s.logger.Debug("cannot parse module", "module", module, "path", path, "error", err)
		return
	}
	for name := range info.TopLevelNames() {
		set.add(name, kind)
	}
	for _, imp := range info.Imports {
		for _, name := range boundNames(imp) {
			set.add(name, KindImported)
		}
	}
	if strings.HasPrefix(filepath.Base(path), "__init__.") && s.scanner != nil {
		for sub := range s.scanner.ListModules(filepath.Dir(path)) {
			if !strings.Contains(sub, ".") {
				set.add(sub, KindImported)
			}
		}
	}
}

// lookupModule resolves a module name, relative ones against fileName.
func (s *Static) lookupModule(fileName, name string) (string, bool) {
	if s.modules == nil {
		return "", false
	}
	if !briefparser.IsRelativeImport(name) {
		return s.modules.Lookup(name, fileName)
	}
	if fileName == "" {
		return "", false
	}
	level := briefparser.RelativeLevel(name)
	base := filepath.Dir(fileName)
	for i := 1; i < level; i++ {
		base = filepath.Dir(base)
	}
	rel := name[level:]
	if rel == "" {
		init := filepath.Join(base, "__init__.py")
		if _, err := os.Stat(init); err == nil {
			return init, true
		}
		return "", false
	}
	path, ok := s.modules.ProjectModules(base, true)[rel]
	return path, ok
}

// moduleInfo returns the parsed source of a module.
func (s *Static) moduleInfo(fileName, module string) (*types.ModuleInfo, string) {
	path, ok := s.lookupModule(fileName, module)
	if !ok || path == "" || !scanner.IsSourceFile(path) {
		return nil, ""
	}
	info, err := s.cache.Get(path)
	if err != nil {
		s.logger.Debug("cannot parse module", "module", module, "path", path, "error", err)
		return nil, ""
	}
	return info, path
}

func (s *Static) builtinNames(ctx context.Context) []string {
	if s.introspector != nil {
		if names, err := s.introspector.ModuleNames(ctx, "builtins"); err == nil && len(names) > 0 {
			return names.Sorted()
		}
	}
	return pythonBuiltins
}

// boundNames returns the local names an import binds.
func boundNames(imp types.Import) []string {
	if !imp.IsFrom {
		if imp.Alias != "" {
			return []string{imp.Alias}
		}
		first, _, _ := strings.Cut(imp.Module, ".")
		return []string{first}
	}
	var names []string
	for _, n := range imp.Names {
		switch {
		case n.Name == "*":
		case n.Alias != "":
			names = append(names, n.Alias)
		default:
			names = append(names, n.Name)
		}
	}
	return names
}

// moduleFor maps a dotted expression to the module it names through the
// imports of info: with "import os.path as osp", ["osp", "sep"] gives
// "os.path.sep".
func moduleFor(info *types.ModuleInfo, parts []string) (string, bool) {
	head, rest := parts[0], parts[1:]
	tail := ""
	if len(rest) > 0 {
		tail = "." + strings.Join(rest, ".")
	}
	for _, imp := range info.Imports {
		if !imp.IsFrom {
			switch {
			case imp.Alias != "" && imp.Alias == head:
				return imp.Module + tail, true
			case imp.Alias == "" && (imp.Module == head || strings.HasPrefix(imp.Module, head+".")):
				return strings.Join(parts, "."), true
			}
			continue
		}
		for _, n := range imp.Names {
			local := n.Alias
			if local == "" {
				local = n.Name
			}
			if local == head {
				return joinModule(imp.Module, n.Name) + tail, true
			}
		}
	}
	return "", false
}

// joinModule appends a name to a possibly relative module: "." + "a" is
// ".a", "pkg" + "a" is "pkg.a".
func joinModule(module, name string) string {
	if module == "" || strings.HasSuffix(module, ".") {
		return module + name
	}
	return module + "." + name
}

// addClassBody proposes the names defined directly in a class body.
func addClassBody(cls *types.Class, set *proposalSet, kind Kind) {
	for _, g := range cls.ClassAttributes {
		set.add(g.Name, kind)
	}
	for _, fn := range cls.Functions {
		set.add(fn.Name, kind)
	}
	for _, nested := range cls.Classes {
		set.add(nested.Name, kind)
	}
}

// addClassMembers proposes the members of cls and of its bases defined in
// the same module. Instance attributes are included for instance access.
func addClassMembers(info *types.ModuleInfo, cls *types.Class, instance bool, set *proposalSet) {
	eachClass(info, cls, func(c *types.Class) bool {
		addClassBody(c, set, KindAttribute)
		if instance {
			for _, g := range c.InstanceAttributes {
				set.add(g.Name, KindAttribute)
			}
		}
		return false
	})
}

// eachClass calls fn for cls and then its bases found in info, depth first,
// until fn returns true.
func eachClass(info *types.ModuleInfo, cls *types.Class, fn func(*types.Class) bool) {
	seen := make(map[string]bool)
	var walk func(c *types.Class) bool
	walk = func(c *types.Class) bool {
		if seen[c.Name] {
			return false
		}
		seen[c.Name] = true
		if fn(c) {
			return true
		}
		for _, base := range c.Bases {
			if b := info.FindClass(base); b != nil && walk(b) {
				return true
			}
		}
		return false
	}
	walk(cls)
}

func addObjectAttributes(set *proposalSet) {
	for _, name := range objectAttributes {
		set.add(name, KindAttribute)
	}
}

// calleeAt finds the call whose open parenthesis precedes offset and
// returns the dotted name being called.
func calleeAt(text string, offset int) (string, bool) {
	if offset > len(text) {
		offset = len(text)
	}
	depth := 0
	for i := offset - 1; i >= 0; i-- {
		switch text[i] {
		case ')', ']', '}':
			depth++
		case '[', '{':
			if depth == 0 {
				return "", false
			}
			depth--
		case '(':
			if depth > 0 {
				depth--
				continue
			}
			end := i
			for end > 0 && (text[end-1] == ' ' || text[end-1] == '\t') {
				end--
			}
			start := end
			for start > 0 && (isIdentByte(text[start-1]) || text[start-1] == '.') {
				start--
			}
			name := strings.Trim(text[start:end], ".")
			if name == "" || (name[0] >= '0' && name[0] <= '9') {
				return "", false
			}
			before := strings.TrimRight(text[:start], " \t")
			if strings.HasSuffix(before, "def") || strings.HasSuffix(before, "class") {
				kwStart := strings.LastIndexAny(before, " \t\n") + 1
				if kw := before[kwStart:]; kw == "def" || kw == "class" {
					return "", false
				}
			}
			return name, true
		}
	}
	return "", false
}

// normalizeParams collapses the whitespace of a parameter list.
func normalizeParams(params string) string {
	if params == "" {
		return "()"
	}
	params = strings.Join(strings.Fields(params), " ")
	params = strings.ReplaceAll(params, "( ", "(")
	params = strings.ReplaceAll(params, " )", ")")
	return strings.ReplaceAll(params, ",)", ")")
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// proposalSet collects proposals; the first kind recorded for a name wins.
type proposalSet struct {
	kinds map[string]Kind
}

func newProposalSet() *proposalSet {
	return &proposalSet{kinds: make(map[string]Kind)}
}

func (p *proposalSet) add(name string, kind Kind) {
	if name == "" {
		return
	}
	if _, ok := p.kinds[name]; ok {
		return
	}
	p.kinds[name] = kind
}

// matching returns the proposals starting with prefix, sorted by name.
func (p *proposalSet) matching(prefix string) []Proposal {
	out := make([]Proposal, 0, len(p.kinds))
	for name, kind := range p.kinds {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Proposal{Name: name, Kind: kind})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
