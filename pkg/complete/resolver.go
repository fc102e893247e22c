package complete

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/metrics"
	"github.com/l3aro/pyassist/pkg/assist"
	"github.com/l3aro/pyassist/pkg/briefparser"
	"github.com/l3aro/pyassist/pkg/cache"
	"github.com/l3aro/pyassist/pkg/editor"
	"github.com/l3aro/pyassist/pkg/scope"
	"github.com/l3aro/pyassist/pkg/types"
)

// Context is what surrounds the cursor.
type Context struct {
	Text   string
	Cursor int
	// Object is the expression left of the last dot, "" when there is none.
	Object string
	// Prefix is the part of the name typed so far.
	Prefix string
	Scope  scope.Scope
}

// NewContext builds the completion context for the editor cursor. info is
// the brief info of the editor text and may be nil.
func NewContext(ed editor.Editor, info *types.ModuleInfo) Context {
	object, prefix := editor.ContextAt(ed)
	cursor := ed.CursorPosition()
	text := ed.Text()
	return Context{
		Text:   text,
		Cursor: cursor,
		Object: object,
		Prefix: prefix,
		Scope:  scopeAt(text, cursor, object, prefix, info),
	}
}

// scopeAt finds the definitions around the cursor. A dangling "obj." leaves
// the buffer broken, and the parser may lose the enclosing method; the
// scope then comes from the text with a placeholder name typed at the cursor.
func scopeAt(text string, cursor int, object, prefix string, info *types.ModuleInfo) scope.Scope {
	if object == "" || prefix != "" || cursor < 0 || cursor > len(text) {
		return scope.At(info, cursor)
	}
	if info != nil && len(info.Errors) == 0 {
		return scope.At(info, cursor)
	}
	fixed, err := briefparser.New().ParseMemory(text[:cursor] + "_" + text[cursor:])
	if err != nil || len(fixed.Errors) > 0 {
		return scope.At(info, cursor)
	}
	return scope.At(fixed, cursor)
}

// Options configures a Resolver.
type Options struct {
	Backend assist.Backend
	Imports *ImportResolver
	// Cache, when set, drops entries for files rewritten by Occurrences.
	Cache *cache.ModuleInfoCache
	// DocSignaturePrefixes lists calltip prefixes whose signatures are taken
	// from the docstring instead.
	DocSignaturePrefixes []string
	Logger               log.Logger
}

// Resolver answers completion, calltip, definition and occurrence queries.
// Backend failures never reach the caller; they fall back to buffer words
// or empty results.
type Resolver struct {
	backend     assist.Backend
	imports     *ImportResolver
	cache       *cache.ModuleInfoCache
	docPrefixes []string
	logger      log.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		backend:     opts.Backend,
		imports:     opts.Imports,
		cache:       opts.Cache,
		docPrefixes: opts.DocSignaturePrefixes,
		logger:      opts.Logger,
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	return r
}

// CompletionList returns the candidates for the cursor. The flag is true
// when the list holds module names.
func (r *Resolver) CompletionList(ctx context.Context, cc Context, ed editor.Editor, fileName string, info *types.ModuleInfo) ([]string, bool) {
	if onImport, needToComplete, moduleName := editor.IsOnSomeImport(ed); onImport {
		switch {
		case !needToComplete:
			metrics.CompletionRequests.WithLabelValues("none").Inc()
			return nil, false
		case moduleName != "":
			metrics.CompletionRequests.WithLabelValues("import").Inc()
			return r.imports.ImportedNames(ctx, moduleName, fileName).Sorted(), false
		default:
			metrics.CompletionRequests.WithLabelValues("module_names").Inc()
			return r.imports.ModuleNames(fileName), true
		}
	}

	if editor.IsRemarkLine(ed) || editor.IsStringLiteral(ed) {
		return r.tags(ed, cc.Prefix), false
	}
	if cc.Object == "" && cc.Prefix == "" {
		return r.tags(ed, cc.Prefix), false
	}

	if first := cc.Scope.FirstParameter(); first != "" && first == cc.Object {
		proposals, err := r.codeAssist(ctx, cc, fileName)
		if err != nil {
			return r.tags(ed, cc.Prefix), false
		}
		result := excludePrivate(proposals)
		delete(result, strings.TrimSpace(ed.CurrentWord())+"=")
		addClassPrivateNames(cc.Scope.Class, result)
		metrics.CompletionRequests.WithLabelValues("self").Inc()
		return sortedNames(result), false
	}

	if cc.Object != "" {
		if isSystem, realName := r.systemImportOrAlias(cc.Object, cc.Text, info); isSystem {
			// Attribute chains such as os.environ introspect to nothing
			// and go to the backend.
			if names := r.imports.ImportedNames(ctx, realName, ""); len(names) > 0 {
				metrics.CompletionRequests.WithLabelValues("system").Inc()
				return names.Sorted(), false
			}
		}
	}

	proposals, err := r.codeAssist(ctx, cc, fileName)
	if err != nil {
		return r.tags(ed, cc.Prefix), false
	}
	result := excludePrivate(proposals)
	delete(result, strings.TrimSpace(ed.CurrentWord())+"=")
	if len(result) == 0 {
		return r.tags(ed, cc.Prefix), false
	}
	if cc.Object == "" {
		// Words from other scopes are worth offering too.
		for _, tag := range editor.Tags(ed, cc.Prefix, true) {
			result[tag] = struct{}{}
		}
	}
	metrics.CompletionRequests.WithLabelValues("backend").Inc()
	return sortedNames(result), false
}

func (r *Resolver) tags(ed editor.Editor, prefix string) []string {
	metrics.CompletionRequests.WithLabelValues("tags").Inc()
	return editor.Tags(ed, prefix, true)
}

// codeAssist asks the backend for every member at the start of the typed
// prefix; the caller filters by prefix.
func (r *Resolver) codeAssist(ctx context.Context, cc Context, fileName string) ([]assist.Proposal, error) {
	var proposals []assist.Proposal
	err := r.guard("code_assist", func() error {
		var err error
		proposals, err = r.backend.CodeAssist(ctx, assist.Request{
			Path:   fileName,
			Source: cc.Text,
			Offset: cc.Cursor - len(cc.Prefix),
		})
		return err
	})
	return proposals, err
}

// guard runs a backend call, turning a panic into an error and counting
// failures.
func (r *Resolver) guard(operation string, call func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: backend panic: %v", operation, p)
		}
		if err != nil {
			metrics.BackendFailures.WithLabelValues(operation).Inc()
			r.logger.Debug("code-assist backend failed", "operation", operation, "error", err)
		}
	}()
	return call()
}

// systemImportOrAlias reports whether obj may name a system module, directly
// or through "import module as obj", and returns the module's real name.
// The first import aliased as obj decides.
func (r *Resolver) systemImportOrAlias(obj, text string, info *types.ModuleInfo) (bool, string) {
	if r.maybeSystemModule(obj) {
		return true, obj
	}
	if info == nil {
		parsed, err := briefparser.New().ParseMemory(text)
		if err != nil {
			return false, obj
		}
		info = parsed
	}
	if imp := info.ImportAliasedAs(obj); imp != nil && r.maybeSystemModule(imp.Module) {
		return true, imp.Module
	}
	return false, obj
}

func (r *Resolver) maybeSystemModule(name string) bool {
	return r.imports.IsSystemModule(name) || r.imports.InSystemPackage(name)
}

// excludePrivate drops names starting with "__" except dunder attributes.
func excludePrivate(proposals []assist.Proposal) map[string]struct{} {
	result := make(map[string]struct{}, len(proposals))
	for _, p := range proposals {
		if !strings.HasPrefix(p.Name, "__") {
			result[p.Name] = struct{}{}
			continue
		}
		if p.Kind == assist.KindAttribute && strings.HasSuffix(p.Name, "__") {
			result[p.Name] = struct{}{}
		}
	}
	return result
}

// addClassPrivateNames adds the class's own "__name" members.
func addClassPrivateNames(cls *types.Class, names map[string]struct{}) {
	if cls == nil {
		return
	}
	add := func(name string) {
		if isPrivate(name) {
			names[name] = struct{}{}
		}
	}
	for _, g := range cls.ClassAttributes {
		add(g.Name)
	}
	for _, g := range cls.InstanceAttributes {
		add(g.Name)
	}
	for _, fn := range cls.Functions {
		add(fn.Name)
	}
	for _, c := range cls.Classes {
		add(c.Name)
	}
}

func isPrivate(name string) bool {
	return strings.HasPrefix(name, "__") && !strings.HasSuffix(name, "__")
}

func sortedNames(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
