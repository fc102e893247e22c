// Package scope finds the definition enclosing a cursor offset using the
// body spans recorded in brief module info.
package scope

import (
	"strings"

	"github.com/l3aro/pyassist/pkg/types"
)

// Kind is the kind of the innermost scope.
type Kind int

const (
	KindModule Kind = iota
	KindFunction
	KindClass
	KindClassMethod
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindClassMethod:
		return "class method"
	default:
		return "module"
	}
}

// Scope is the chain of definitions around an offset.
type Scope struct {
	Kind Kind
	// Function is the innermost function, nil at module or class level.
	Function *types.Function
	// Class is the innermost class: the class whose body holds the offset,
	// or the class owning the method for KindClassMethod.
	Class *types.Class
	// Functions lists the enclosing functions, outermost first.
	Functions []*types.Function
}

// At returns the scope of offset inside info.
func At(info *types.ModuleInfo, offset int) Scope {
	var s Scope
	if info == nil {
		return s
	}

	functions := info.Functions
	classes := info.Classes
	var owner *types.Class // class whose methods are being searched

	for {
		if fn := findFunction(functions, offset); fn != nil {
			s.Function = fn
			s.Functions = append(s.Functions, fn)
			if owner != nil {
				s.Kind = KindClassMethod
				s.Class = owner
			} else {
				s.Kind = KindFunction
			}
			owner = nil
			functions, classes = fn.Functions, fn.Classes
			continue
		}
		if cls := findClass(classes, offset); cls != nil {
			s.Kind = KindClass
			s.Class = cls
			s.Function = nil
			owner = cls
			functions, classes = cls.Functions, cls.Classes
			continue
		}
		return s
	}
}

func findFunction(functions []types.Function, offset int) *types.Function {
	for i := range functions {
		if functions[i].Body.End > functions[i].Body.Start && functions[i].Body.Contains(offset) {
			return &functions[i]
		}
	}
	return nil
}

func findClass(classes []types.Class, offset int) *types.Class {
	for i := range classes {
		if classes[i].Body.End > classes[i].Body.Start && classes[i].Body.Contains(offset) {
			return &classes[i]
		}
	}
	return nil
}

// FirstParameter returns the name bound to the instance inside a non-static
// method ("self" by convention), or "" outside of one.
func (s Scope) FirstParameter() string {
	if s.Kind != KindClassMethod || s.Function == nil || s.Function.IsStaticMethod() {
		return ""
	}
	if len(s.Function.Arguments) == 0 {
		return ""
	}
	first := s.Function.Arguments[0]
	if strings.HasPrefix(first, "*") {
		return ""
	}
	return first
}
