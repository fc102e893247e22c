// Package types defines the brief module information produced by the parser
// and consumed by the cache, the resolvers and the code-assist backend.
package types

// Position locates a definition inside a source file.
type Position struct {
	Line   int `json:"line" msgpack:"line"`     // 1-based
	Column int `json:"column" msgpack:"column"` // 0-based, in bytes
	Offset int `json:"offset" msgpack:"offset"` // absolute byte offset
}

// Span is a half-open byte range [Start, End) inside the source.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Contains reports whether offset falls inside the span. The end offset is
// included so that a cursor placed right after the last character of a body
// still counts as being inside it.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// Global represents a module-level or class-level variable.
type Global struct {
	Name string `json:"name"`
	Position
}

// Function represents a function or method definition.
type Function struct {
	Name       string     `json:"name"`
	Arguments  []string   `json:"arguments"`
	Params     string     `json:"params"`
	Decorators []string   `json:"decorators,omitempty"`
	Docstring  string     `json:"docstring,omitempty"`
	IsAsync    bool       `json:"is_async,omitempty"`
	Functions  []Function `json:"functions,omitempty"`
	Classes    []Class    `json:"classes,omitempty"`
	Body       Span       `json:"body"`
	Position
}

// IsStaticMethod reports whether the function carries a @staticmethod decorator.
func (f *Function) IsStaticMethod() bool {
	for _, d := range f.Decorators {
		if d == "staticmethod" {
			return true
		}
	}
	return false
}

// Class represents a class definition.
type Class struct {
	Name               string     `json:"name"`
	Bases              []string   `json:"bases,omitempty"`
	Decorators         []string   `json:"decorators,omitempty"`
	Docstring          string     `json:"docstring,omitempty"`
	ClassAttributes    []Global   `json:"class_attributes,omitempty"`
	InstanceAttributes []Global   `json:"instance_attributes,omitempty"`
	Functions          []Function `json:"functions,omitempty"`
	Classes            []Class    `json:"classes,omitempty"`
	Body               Span       `json:"body"`
	Position
}

// ImportedName is one entry of a "from X import a as b, c" list.
type ImportedName struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// Import represents a single imported module. "import a, b as c" yields two
// Import values; "from m import x, y" yields one with two Names.
type Import struct {
	Module     string         `json:"module"`
	Alias      string         `json:"alias,omitempty"`
	Names      []ImportedName `json:"names,omitempty"`
	IsFrom     bool           `json:"is_from"`
	LineNumber int            `json:"line_number"`
}

// Diagnostic is a parser error or warning.
type Diagnostic struct {
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Message string `json:"message"`
}

// Status is the health of a parsed module as shown by status indicators.
type Status string

const (
	StatusOK     Status = "ok"
	StatusBroken Status = "broken"
)

// ModuleInfo is the brief module information: top level definitions and
// imports without any semantic analysis.
type ModuleInfo struct {
	Path      string       `json:"path,omitempty"`
	Docstring string       `json:"docstring,omitempty"`
	Globals   []Global     `json:"globals"`
	Functions []Function   `json:"functions"`
	Classes   []Class      `json:"classes"`
	Imports   []Import     `json:"imports"`
	Errors    []Diagnostic `json:"errors,omitempty"`
	Warnings  []Diagnostic `json:"warnings,omitempty"`
}

// Status returns StatusBroken when the parser reported errors.
func (m *ModuleInfo) Status() Status {
	if len(m.Errors) > 0 {
		return StatusBroken
	}
	return StatusOK
}

// TopLevelNames returns the names importable from the module: globals,
// functions and classes.
func (m *ModuleInfo) TopLevelNames() map[string]struct{} {
	names := make(map[string]struct{}, len(m.Globals)+len(m.Functions)+len(m.Classes))
	for _, g := range m.Globals {
		names[g.Name] = struct{}{}
	}
	for _, f := range m.Functions {
		names[f.Name] = struct{}{}
	}
	for _, c := range m.Classes {
		names[c.Name] = struct{}{}
	}
	return names
}

// FindClass returns the top-level class with the given name.
func (m *ModuleInfo) FindClass(name string) *Class {
	for i := range m.Classes {
		if m.Classes[i].Name == name {
			return &m.Classes[i]
		}
	}
	return nil
}

// FindFunction returns the top-level function with the given name.
func (m *ModuleInfo) FindFunction(name string) *Function {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}

// FindMethod returns the method with the given name.
func (c *Class) FindMethod(name string) *Function {
	for i := range c.Functions {
		if c.Functions[i].Name == name {
			return &c.Functions[i]
		}
	}
	return nil
}

// ImportAliasedAs returns the first "import X as local" statement.
func (m *ModuleInfo) ImportAliasedAs(local string) *Import {
	for i := range m.Imports {
		imp := &m.Imports[i]
		if imp.IsFrom {
			continue
		}
		if imp.Alias == local {
			return imp
		}
	}
	return nil
}
