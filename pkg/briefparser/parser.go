// Package briefparser builds brief module information from Python source:
// top level globals, functions, classes and imports along with syntax errors.
// It does no semantic analysis.
package briefparser

import (
	"fmt"
	"os"
	"strings"

	"github.com/l3aro/pyassist/pkg/types"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser parses Python source with tree-sitter.
// A Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// New creates a new Parser.
func New() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Parser{parser: parser}
}

// ParseFile reads and parses a file. Read errors are returned wrapped so that
// errors.Is(err, fs.ErrNotExist) works for missing files.
func (p *Parser) ParseFile(path string) (*types.ModuleInfo, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	info, err := p.parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing file %s: %w", path, err)
	}
	info.Path = path
	return info, nil
}

// ParseMemory parses source text that is not necessarily saved anywhere.
// Syntax errors never fail the parse, they are reported in Errors.
func (p *Parser) ParseMemory(text string) (*types.ModuleInfo, error) {
	return p.parse([]byte(text))
}

func (p *Parser) parse(content []byte) (*types.ModuleInfo, error) {
	tree := p.parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned no tree")
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &walker{content: content, info: &types.ModuleInfo{
		Globals:   []types.Global{},
		Functions: []types.Function{},
		Classes:   []types.Class{},
		Imports:   []types.Import{},
	}}

	w.info.Docstring = w.docstring(root)
	w.walkModule(root)
	w.info.Errors = collectErrors(root)
	w.info.Warnings = w.redefinitions()

	return w.info, nil
}

// walker accumulates module information for a single parse.
type walker struct {
	content []byte
	info    *types.ModuleInfo
	seen    map[string]struct{}
}

// compound statements whose bodies still belong to the module scope.
var transparentStatements = map[string]bool{
	"if_statement":        true,
	"elif_clause":         true,
	"else_clause":         true,
	"try_statement":       true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"with_statement":      true,
	"for_statement":       true,
	"while_statement":     true,
	"block":               true,
}

func (w *walker) walkModule(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}

		switch child.Type() {
		case "expression_statement":
			for _, g := range w.assignedNames(child) {
				w.addGlobal(g)
			}
		case "function_definition":
			w.info.Functions = append(w.info.Functions, w.parseFunction(child, nil))
		case "class_definition":
			w.info.Classes = append(w.info.Classes, w.parseClass(child, nil))
		case "decorated_definition":
			def, decorators := w.unwrapDecorated(child)
			if def == nil {
				continue
			}
			switch def.Type() {
			case "function_definition":
				w.info.Functions = append(w.info.Functions, w.parseFunction(def, decorators))
			case "class_definition":
				w.info.Classes = append(w.info.Classes, w.parseClass(def, decorators))
			}
		case "import_statement":
			w.info.Imports = append(w.info.Imports, w.parseImport(child)...)
		case "import_from_statement", "future_import_statement":
			if imp := w.parseFromImport(child); imp != nil {
				w.info.Imports = append(w.info.Imports, *imp)
			}
		default:
			if transparentStatements[child.Type()] {
				w.walkModule(child)
			}
		}
	}
}

func (w *walker) addGlobal(g types.Global) {
	if w.seen == nil {
		w.seen = make(map[string]struct{})
	}
	if _, ok := w.seen[g.Name]; ok {
		return
	}
	w.seen[g.Name] = struct{}{}
	w.info.Globals = append(w.info.Globals, g)
}

// assignedNames returns the plain names bound by an assignment statement.
// Attribute and subscript targets are skipped.
func (w *walker) assignedNames(stmt *sitter.Node) []types.Global {
	var out []types.Global
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		expr := stmt.NamedChild(i)
		for expr != nil && expr.Type() == "assignment" {
			w.targetNames(expr.ChildByFieldName("left"), &out)
			// Chained assignment: a = b = 1
			right := expr.ChildByFieldName("right")
			if right == nil || right.Type() != "assignment" {
				break
			}
			expr = right
		}
	}
	return out
}

func (w *walker) targetNames(node *sitter.Node, out *[]types.Global) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "identifier":
		*out = append(*out, types.Global{Name: w.text(node), Position: position(node)})
	case "pattern_list", "tuple_pattern", "list_pattern", "parenthesized_expression",
		"expression_list", "list_splat_pattern":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			w.targetNames(node.NamedChild(i), out)
		}
	}
}

// unwrapDecorated returns the definition inside a decorated_definition and
// its decorators in source order, without the leading "@".
func (w *walker) unwrapDecorated(node *sitter.Node) (*sitter.Node, []string) {
	var decorators []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() == "decorator" {
			text := strings.TrimSpace(strings.TrimPrefix(w.text(child), "@"))
			if text != "" {
				decorators = append(decorators, text)
			}
		}
	}
	def := node.ChildByFieldName("definition")
	if def == nil {
		def = node.NamedChild(int(node.NamedChildCount()) - 1)
	}
	return def, decorators
}

// parseFunction extracts a function_definition node.
func (w *walker) parseFunction(node *sitter.Node, decorators []string) types.Function {
	fn := types.Function{
		Decorators: decorators,
		Arguments:  []string{},
		Position:   position(node),
	}

	if name := node.ChildByFieldName("name"); name != nil {
		fn.Name = w.text(name)
		fn.Position = position(name)
	}
	if node.ChildCount() > 0 && node.Child(0).Type() == "async" {
		fn.IsAsync = true
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		fn.Params = w.text(params)
		fn.Arguments = w.parameterNames(params)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Body = types.Span{Start: int(body.StartByte()), End: int(body.EndByte())}
		fn.Docstring = w.docstring(body)
		fn.Functions, fn.Classes, _ = w.nestedDefinitions(body)
	}
	return fn
}

// parameterNames lists the parameters of a function. Variadic parameters keep
// their "*" or "**" prefix; bare "*" and "/" separators are skipped.
func (w *walker) parameterNames(params *sitter.Node) []string {
	names := []string{}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		if param == nil {
			continue
		}
		if name := w.parameterName(param); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (w *walker) parameterName(param *sitter.Node) string {
	switch param.Type() {
	case "identifier":
		return w.text(param)
	case "default_parameter", "typed_default_parameter":
		if name := param.ChildByFieldName("name"); name != nil {
			return w.text(name)
		}
	case "typed_parameter":
		for i := 0; i < int(param.NamedChildCount()); i++ {
			child := param.NamedChild(i)
			switch child.Type() {
			case "identifier":
				return w.text(child)
			case "list_splat_pattern", "dictionary_splat_pattern":
				return w.parameterName(child)
			}
		}
	case "list_splat_pattern":
		return "*" + w.firstIdentifier(param)
	case "dictionary_splat_pattern":
		return "**" + w.firstIdentifier(param)
	}
	return ""
}

func (w *walker) firstIdentifier(node *sitter.Node) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "identifier" {
			return w.text(child)
		}
	}
	return ""
}

// nestedDefinitions collects functions and classes defined directly in a body.
// The function nodes are returned alongside, in the same order.
func (w *walker) nestedDefinitions(body *sitter.Node) ([]types.Function, []types.Class, []*sitter.Node) {
	var functions []types.Function
	var classes []types.Class
	var nodes []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		var decorators []string
		if child.Type() == "decorated_definition" {
			child, decorators = w.unwrapDecorated(child)
		}
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_definition":
			functions = append(functions, w.parseFunction(child, decorators))
			nodes = append(nodes, child)
		case "class_definition":
			classes = append(classes, w.parseClass(child, decorators))
		}
	}
	return functions, classes, nodes
}

// parseClass extracts a class_definition node.
func (w *walker) parseClass(node *sitter.Node, decorators []string) types.Class {
	cls := types.Class{
		Decorators: decorators,
		Position:   position(node),
	}

	if name := node.ChildByFieldName("name"); name != nil {
		cls.Name = w.text(name)
		cls.Position = position(name)
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			base := supers.NamedChild(i)
			// metaclass=... and other keyword arguments are not bases
			if base.Type() == "keyword_argument" {
				continue
			}
			cls.Bases = append(cls.Bases, w.text(base))
		}
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return cls
	}
	cls.Body = types.Span{Start: int(body.StartByte()), End: int(body.EndByte())}
	cls.Docstring = w.docstring(body)
	var methodNodes []*sitter.Node
	cls.Functions, cls.Classes, methodNodes = w.nestedDefinitions(body)

	seen := make(map[string]struct{})
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() != "expression_statement" {
			continue
		}
		for _, g := range w.assignedNames(child) {
			if _, ok := seen[g.Name]; ok {
				continue
			}
			seen[g.Name] = struct{}{}
			cls.ClassAttributes = append(cls.ClassAttributes, g)
		}
	}

	seen = make(map[string]struct{})
	for i := range cls.Functions {
		method := &cls.Functions[i]
		if method.IsStaticMethod() || len(method.Arguments) == 0 {
			continue
		}
		self := method.Arguments[0]
		if strings.HasPrefix(self, "*") {
			continue
		}
		methodBody := methodNodes[i].ChildByFieldName("body")
		if methodBody == nil {
			continue
		}
		for _, attr := range w.instanceAttributes(methodBody, self) {
			if _, ok := seen[attr.Name]; ok {
				continue
			}
			seen[attr.Name] = struct{}{}
			cls.InstanceAttributes = append(cls.InstanceAttributes, attr)
		}
	}

	return cls
}

// instanceAttributes finds "<self>.name = ..." targets anywhere in a method body.
func (w *walker) instanceAttributes(node *sitter.Node, self string) []types.Global {
	var out []types.Global
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_definition", "class_definition", "lambda":
			// A nested scope has its own first parameter.
			return
		case "assignment", "augmented_assignment":
			w.selfTargets(n.ChildByFieldName("left"), self, &out)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		visit(node.NamedChild(i))
	}
	return out
}

func (w *walker) selfTargets(target *sitter.Node, self string, out *[]types.Global) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "attribute":
		obj := target.ChildByFieldName("object")
		attr := target.ChildByFieldName("attribute")
		if obj != nil && attr != nil && obj.Type() == "identifier" && w.text(obj) == self {
			*out = append(*out, types.Global{Name: w.text(attr), Position: position(attr)})
		}
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list":
		for i := 0; i < int(target.NamedChildCount()); i++ {
			w.selfTargets(target.NamedChild(i), self, out)
		}
	}
}

// docstring returns the cleaned first string statement of a block or module.
func (w *walker) docstring(block *sitter.Node) string {
	if block == nil || block.NamedChildCount() == 0 {
		return ""
	}
	first := block.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	switch str.Type() {
	case "string":
		return cleanDocstring(w.text(str))
	case "concatenated_string":
		var parts []string
		for i := 0; i < int(str.NamedChildCount()); i++ {
			parts = append(parts, cleanDocstring(w.text(str.NamedChild(i))))
		}
		return strings.Join(parts, "")
	}
	return ""
}

// cleanDocstring strips string prefixes and quotes.
func cleanDocstring(literal string) string {
	s := strings.TrimLeft(literal, "rRuUbBfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}

// text extracts the source text of a node.
func (w *walker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if int(end) > len(w.content) || start > end {
		return ""
	}
	return string(w.content[start:end])
}

func position(node *sitter.Node) types.Position {
	pt := node.StartPoint()
	return types.Position{
		Line:   int(pt.Row) + 1,
		Column: int(pt.Column),
		Offset: int(node.StartByte()),
	}
}
