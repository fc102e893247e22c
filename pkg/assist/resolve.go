package assist

import (
	"context"
	"strings"

	"github.com/l3aro/pyassist/pkg/types"
)

// symbol is what a dotted expression resolves to.
type symbol struct {
	qualified string          // "Widget.draw", "pkg.util.helper"
	fn        *types.Function // the callable, for functions, methods and __init__
	cls       *types.Class
	doc       string
	bound     bool // the first parameter is supplied implicitly
	loc       *Location
}

// resolve finds the definition an expression refers to, or nil.
func (s *Static) resolve(ctx context.Context, src *source, expr string) *symbol {
	if expr == "" {
		return nil
	}
	parts := strings.Split(expr, ".")
	if len(parts) == 1 {
		return s.resolveName(ctx, src, parts[0])
	}

	head, last := parts[0], parts[len(parts)-1]
	if len(parts) == 2 {
		if self := src.scope.FirstParameter(); self != "" && head == self && src.scope.Class != nil {
			return memberSymbol(src.info, src.scope.Class, last, src.path, true)
		}
		if cls := src.info.FindClass(head); cls != nil {
			return memberSymbol(src.info, cls, last, src.path, false)
		}
	}
	module, ok := moduleFor(src.info, parts[:len(parts)-1])
	if !ok {
		return nil
	}
	return s.moduleMember(ctx, src, module, last)
}

func (s *Static) resolveName(ctx context.Context, src *source, name string) *symbol {
	if IsKeyword(name) {
		return nil
	}

	// Innermost function first.
	fns := src.scope.Functions
	for i := len(fns) - 1; i >= 0; i-- {
		fn := fns[i]
		for j := range fn.Functions {
			if fn.Functions[j].Name == name {
				return funcSymbol(&fn.Functions[j], src.path, "")
			}
		}
		for j := range fn.Classes {
			if fn.Classes[j].Name == name {
				return classSymbol(src.info, &fn.Classes[j], src.path, "")
			}
		}
		for _, b := range src.localBindings(fn) {
			if b.name == name {
				return &symbol{qualified: name, loc: src.location(b.node)}
			}
		}
	}

	info := src.info
	if fn := info.FindFunction(name); fn != nil {
		return funcSymbol(fn, src.path, "")
	}
	if cls := info.FindClass(name); cls != nil {
		return classSymbol(info, cls, src.path, "")
	}
	for _, g := range info.Globals {
		if g.Name == name {
			return &symbol{qualified: name, loc: positionLocation(src.path, g.Position)}
		}
	}
	return s.importedSymbol(ctx, src, name)
}

// importedSymbol resolves a name bound by an import statement.
func (s *Static) importedSymbol(ctx context.Context, src *source, name string) *symbol {
	for _, imp := range src.info.Imports {
		if !imp.IsFrom {
			switch {
			case imp.Alias != "" && imp.Alias == name:
				return s.moduleSymbol(src.path, imp.Module)
			case imp.Alias == "" && (imp.Module == name || strings.HasPrefix(imp.Module, name+".")):
				return s.moduleSymbol(src.path, name)
			}
			continue
		}
		for _, n := range imp.Names {
			local := n.Alias
			if local == "" {
				local = n.Name
			}
			if local != name {
				continue
			}
			if sym := s.moduleMember(ctx, src, imp.Module, n.Name); sym != nil {
				return sym
			}
			return s.moduleSymbol(src.path, joinModule(imp.Module, n.Name))
		}
	}
	return nil
}

// moduleSymbol points at the first line of a module's source.
func (s *Static) moduleSymbol(fileName, module string) *symbol {
	info, path := s.moduleInfo(fileName, module)
	if info == nil {
		return nil
	}
	return &symbol{
		qualified: strings.TrimLeft(module, "."),
		doc:       info.Docstring,
		loc:       &Location{Path: path, Line: 1},
	}
}

// moduleMember resolves module.member to a definition in the module's
// source, a submodule, or a class member when module names a class.
func (s *Static) moduleMember(ctx context.Context, src *source, module, member string) *symbol {
	info, path := s.moduleInfo(src.path, module)
	if info == nil {
		if i := strings.LastIndexByte(module, '.'); i > 0 {
			if parent, parentPath := s.moduleInfo(src.path, module[:i]); parent != nil {
				if cls := parent.FindClass(module[i+1:]); cls != nil {
					return memberSymbol(parent, cls, member, parentPath, false)
				}
			}
		}
		return nil
	}

	qualifier := strings.TrimLeft(module, ".")
	if fn := info.FindFunction(member); fn != nil {
		return funcSymbol(fn, path, qualifier)
	}
	if cls := info.FindClass(member); cls != nil {
		return classSymbol(info, cls, path, qualifier)
	}
	for _, g := range info.Globals {
		if g.Name == member {
			return &symbol{qualified: qualify(qualifier, member), loc: positionLocation(path, g.Position)}
		}
	}
	return s.moduleSymbol(src.path, joinModule(module, member))
}

// memberSymbol resolves an attribute of a class, searching bases defined in
// the same module.
func memberSymbol(info *types.ModuleInfo, cls *types.Class, member, path string, instance bool) *symbol {
	var found *symbol
	eachClass(info, cls, func(c *types.Class) bool {
		if m := c.FindMethod(member); m != nil {
			found = funcSymbol(m, path, c.Name)
			found.bound = !m.IsStaticMethod() && (instance || hasDecorator(m, "classmethod"))
			return true
		}
		for i := range c.Classes {
			if c.Classes[i].Name == member {
				found = classSymbol(info, &c.Classes[i], path, c.Name)
				return true
			}
		}
		attrs := c.ClassAttributes
		if instance {
			attrs = append(attrs[:len(attrs):len(attrs)], c.InstanceAttributes...)
		}
		for _, g := range attrs {
			if g.Name == member {
				found = &symbol{qualified: qualify(c.Name, member), loc: positionLocation(path, g.Position)}
				return true
			}
		}
		return false
	})
	return found
}

func funcSymbol(fn *types.Function, path, qualifier string) *symbol {
	return &symbol{
		qualified: qualify(qualifier, fn.Name),
		fn:        fn,
		doc:       fn.Docstring,
		loc:       positionLocation(path, fn.Position),
	}
}

// classSymbol describes a class; calling it runs __init__, looked up in the
// class and its same-module bases.
func classSymbol(info *types.ModuleInfo, cls *types.Class, path, qualifier string) *symbol {
	sym := &symbol{
		qualified: qualify(qualifier, cls.Name),
		cls:       cls,
		doc:       cls.Docstring,
		loc:       positionLocation(path, cls.Position),
	}
	eachClass(info, cls, func(c *types.Class) bool {
		if init := c.FindMethod("__init__"); init != nil {
			sym.fn = init
			sym.bound = true
			sym.qualified += ".__init__"
			return true
		}
		return false
	})
	return sym
}

func hasDecorator(fn *types.Function, name string) bool {
	for _, d := range fn.Decorators {
		if d == name {
			return true
		}
	}
	return false
}

func qualify(qualifier, name string) string {
	if qualifier == "" {
		return name
	}
	return qualifier + "." + name
}

func positionLocation(path string, pos types.Position) *Location {
	return &Location{Path: path, Line: pos.Line, Column: pos.Column, Offset: pos.Offset}
}
