package assist

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// binding is a name bound inside a scope.
type binding struct {
	name string
	node *sitter.Node
}

// nodeText returns the source text of node.
func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start >= uint32(len(content)) || end > uint32(len(content)) {
		return ""
	}
	return string(content[start:end])
}

// findBlock returns the outermost block spanning exactly [start, end).
func findBlock(node *sitter.Node, start, end int) *sitter.Node {
	for node != nil {
		if node.Type() == "block" && int(node.StartByte()) == start && int(node.EndByte()) == end {
			return node
		}
		var next *sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child != nil && int(child.StartByte()) <= start && int(child.EndByte()) >= end {
				next = child
				break
			}
		}
		node = next
	}
	return nil
}

// scopeBindings lists the names a function body binds: assignments, loop
// and with targets, exception names, imports and nested definitions. Nested
// function and class bodies are not entered.
func scopeBindings(block *sitter.Node, content []byte) []binding {
	var out []binding
	add := func(n *sitter.Node) {
		if n != nil && n.Type() == "identifier" {
			out = append(out, binding{name: nodeText(n, content), node: n})
		}
	}

	var targets func(n *sitter.Node)
	targets = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "identifier":
			add(n)
		case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list",
			"expression_list", "parenthesized_expression", "list_splat_pattern",
			"list_splat", "as_pattern_target":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				targets(n.NamedChild(i))
			}
		}
	}

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "function_definition", "class_definition":
			add(n.ChildByFieldName("name"))
			return
		case "decorated_definition":
			if def := n.ChildByFieldName("definition"); def != nil {
				add(def.ChildByFieldName("name"))
			}
			return
		case "lambda":
			return
		case "assignment", "augmented_assignment":
			targets(n.ChildByFieldName("left"))
			visit(n.ChildByFieldName("right"))
			return
		case "for_statement", "for_in_clause":
			targets(n.ChildByFieldName("left"))
		case "named_expression":
			add(n.ChildByFieldName("name"))
		case "as_pattern_target":
			targets(n)
			return
		case "except_clause":
			for i := 0; i+1 < int(n.ChildCount()); i++ {
				if n.Child(i).Type() == "as" {
					add(n.Child(i + 1))
				}
			}
		case "import_statement", "import_from_statement":
			out = append(out, importBindings(n, content)...)
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}

	for i := 0; i < int(block.NamedChildCount()); i++ {
		visit(block.NamedChild(i))
	}
	return out
}

// importBindings returns the local names an import statement binds.
func importBindings(n *sitter.Node, content []byte) []binding {
	var out []binding
	module := n.ChildByFieldName("module_name")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if module != nil && child.StartByte() == module.StartByte() && child.EndByte() == module.EndByte() {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			// "import a.b" binds a, "from m import a" binds a.
			if first := child.NamedChild(0); first != nil {
				out = append(out, binding{name: nodeText(first, content), node: first})
			}
		case "aliased_import":
			if alias := child.ChildByFieldName("alias"); alias != nil {
				out = append(out, binding{name: nodeText(alias, content), node: alias})
			}
		}
	}
	return out
}

// parameterBindings returns the parameter names of a function_definition.
func parameterBindings(fn *sitter.Node, content []byte) []binding {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []binding
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if id := firstIdentifier(params.NamedChild(i)); id != nil {
			out = append(out, binding{name: nodeText(id, content), node: id})
		}
	}
	return out
}

// firstIdentifier descends along first named children to an identifier.
func firstIdentifier(n *sitter.Node) *sitter.Node {
	for n != nil {
		if n.Type() == "identifier" {
			return n
		}
		if name := n.ChildByFieldName("name"); name != nil {
			n = name
			continue
		}
		if n.NamedChildCount() == 0 {
			return nil
		}
		n = n.NamedChild(0)
	}
	return nil
}

// identifiers calls fn for every identifier node below root.
func identifiers(root *sitter.Node, fn func(n *sitter.Node)) {
	if root == nil {
		return
	}
	if root.Type() == "identifier" {
		fn(root)
		return
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		identifiers(root.NamedChild(i), fn)
	}
}
