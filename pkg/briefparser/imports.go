package briefparser

import (
	"strings"

	"github.com/l3aro/pyassist/pkg/types"
	sitter "github.com/smacker/go-tree-sitter"
)

// parseImport parses "import a, b.c as d". Each imported module becomes its
// own Import.
// import_statement: "import" (dotted_name | aliased_import) ("," ...)*
func (w *walker) parseImport(node *sitter.Node) []types.Import {
	var imports []types.Import
	line := int(node.StartPoint().Row) + 1

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			imports = append(imports, types.Import{
				Module:     normalizeModuleName(w.text(child)),
				LineNumber: line,
			})
		case "aliased_import":
			name, alias := w.parseAliased(child)
			if name == "" {
				continue
			}
			imports = append(imports, types.Import{
				Module:     name,
				Alias:      alias,
				LineNumber: line,
			})
		}
	}
	return imports
}

// parseFromImport parses "from m import x, y as z" and "from . import *".
func (w *walker) parseFromImport(node *sitter.Node) *types.Import {
	imp := &types.Import{
		IsFrom:     true,
		LineNumber: int(node.StartPoint().Row) + 1,
	}

	if node.Type() == "future_import_statement" {
		imp.Module = "__future__"
	} else if module := node.ChildByFieldName("module_name"); module != nil {
		switch module.Type() {
		case "relative_import":
			imp.Module = w.parseRelative(module)
		default:
			imp.Module = normalizeModuleName(w.text(module))
		}
	}

	moduleNode := node.ChildByFieldName("module_name")
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			imp.Names = append(imp.Names, types.ImportedName{Name: normalizeModuleName(w.text(child))})
		case "aliased_import":
			name, alias := w.parseAliased(child)
			if name != "" {
				imp.Names = append(imp.Names, types.ImportedName{Name: name, Alias: alias})
			}
		case "wildcard_import":
			imp.Names = append(imp.Names, types.ImportedName{Name: "*"})
		}
	}

	if imp.Module == "" && len(imp.Names) == 0 {
		return nil
	}
	return imp
}

// parseAliased extracts both name and alias from "name as alias".
func (w *walker) parseAliased(node *sitter.Node) (name, alias string) {
	if n := node.ChildByFieldName("name"); n != nil {
		name = normalizeModuleName(w.text(n))
	}
	if a := node.ChildByFieldName("alias"); a != nil {
		alias = w.text(a)
	}
	return name, alias
}

// parseRelative returns the dotted text of a relative import: ".", "..pkg".
func (w *walker) parseRelative(node *sitter.Node) string {
	var prefix, module string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "import_prefix":
			prefix = strings.TrimSpace(w.text(child))
		case "dotted_name":
			module = normalizeModuleName(w.text(child))
		}
	}
	return prefix + module
}

// normalizeModuleName removes whitespace inside dotted names ("os . path").
func normalizeModuleName(name string) string {
	return strings.Join(strings.Fields(name), "")
}

// IsRelativeImport checks if an import is relative (starts with dot).
func IsRelativeImport(module string) bool {
	return strings.HasPrefix(module, ".")
}

// RelativeLevel returns the number of leading dots of a module name.
func RelativeLevel(module string) int {
	level := 0
	for _, ch := range module {
		if ch != '.' {
			break
		}
		level++
	}
	return level
}
