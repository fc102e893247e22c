package briefparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/l3aro/pyassist/pkg/types"
	sitter "github.com/smacker/go-tree-sitter"
)

// collectErrors turns ERROR and missing nodes into diagnostics. Children of an
// ERROR node are not reported again.
func collectErrors(root *sitter.Node) []types.Diagnostic {
	var diags []types.Diagnostic
	if !root.HasError() {
		return diags
	}

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		pt := n.StartPoint()
		switch {
		case n.Type() == "ERROR":
			diags = append(diags, types.Diagnostic{
				Line:    int(pt.Row) + 1,
				Column:  int(pt.Column),
				Message: "invalid syntax",
			})
			return
		case n.IsMissing():
			diags = append(diags, types.Diagnostic{
				Line:    int(pt.Row) + 1,
				Column:  int(pt.Column),
				Message: fmt.Sprintf("missing %q", n.Type()),
			})
			return
		}
		if !n.HasError() {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return diags
}

// CountErrors returns the number of syntax errors in a parsed tree.
func CountErrors(root *sitter.Node) int {
	return len(collectErrors(root))
}

// redefinitions warns about top level functions and classes, and class
// methods, that are defined more than once.
func (w *walker) redefinitions() []types.Diagnostic {
	var warnings []types.Diagnostic

	type def struct {
		kind string
		line int
	}
	check := func(seen map[string]def, name, kind string, pos types.Position) {
		if prev, ok := seen[name]; ok {
			warnings = append(warnings, types.Diagnostic{
				Line:    pos.Line,
				Column:  pos.Column,
				Message: fmt.Sprintf("%s %q redefines the %s defined at line %d",
					kind, name, prev.kind, prev.line),
			})
		}
		seen[name] = def{kind: kind, line: pos.Line}
	}

	type named struct {
		name, kind string
		pos        types.Position
		decorators []string
	}
	var defs []named
	for _, fn := range w.info.Functions {
		defs = append(defs, named{fn.Name, "function", fn.Position, fn.Decorators})
	}
	for _, cls := range w.info.Classes {
		defs = append(defs, named{cls.Name, "class", cls.Position, nil})

		methods := make(map[string]def)
		for _, m := range cls.Functions {
			if isOverloadLike(m.Decorators) {
				continue
			}
			check(methods, m.Name, "method", m.Position)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].pos.Offset < defs[j].pos.Offset })

	topLevel := make(map[string]def)
	for _, d := range defs {
		if isOverloadLike(d.decorators) {
			continue
		}
		check(topLevel, d.name, d.kind, d.pos)
	}
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Line < warnings[j].Line })
	return warnings
}

// isOverloadLike reports decorators that legitimately define a name twice:
// property setters/deleters and typing overloads.
func isOverloadLike(decorators []string) bool {
	for _, d := range decorators {
		if d == "overload" || d == "typing.overload" {
			return true
		}
		if strings.HasSuffix(d, ".setter") || strings.HasSuffix(d, ".deleter") {
			return true
		}
	}
	return false
}
