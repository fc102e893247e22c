package scanner

import (
	"strings"
	"unicode"
)

// ModuleKind classifies an importable file.
type ModuleKind int

const (
	KindUnknown ModuleKind = iota
	KindSource             // .py, .pyw, .pyi
	KindPackage            // directory with __init__.py
	KindBinary             // native extension module
)

func (k ModuleKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindPackage:
		return "package"
	case KindBinary:
		return "binary"
	default:
		return "unknown"
	}
}

var sourceSuffixes = []string{".py", ".pyw", ".pyi"}

var binarySuffixes = []string{".so", ".pyd", ".dylib"}

// IsBinaryModule reports whether path names a native extension module.
func IsBinaryModule(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range binarySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// IsSourceFile reports whether path names a Python source file.
func IsSourceFile(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range sourceSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// ModuleNameFromFile derives the importable module name from a file's base
// name. Extension ABI tags are stripped: "_json.cpython-311-x86_64-linux-gnu.so"
// and "_json.abi3.so" both give "_json".
func ModuleNameFromFile(base string) (string, ModuleKind, bool) {
	var kind ModuleKind
	var stem string

	lower := strings.ToLower(base)
	for _, suffix := range sourceSuffixes {
		if strings.HasSuffix(lower, suffix) {
			kind = KindSource
			stem = base[:len(base)-len(suffix)]
			break
		}
	}
	if kind == KindUnknown {
		for _, suffix := range binarySuffixes {
			if strings.HasSuffix(lower, suffix) {
				kind = KindBinary
				stem = base[:len(base)-len(suffix)]
				break
			}
		}
	}
	if kind == KindUnknown {
		return "", KindUnknown, false
	}

	if kind == KindBinary {
		if i := strings.IndexByte(stem, '.'); i > 0 {
			stem = stem[:i]
		}
	}

	if !IsIdentifier(stem) {
		return "", KindUnknown, false
	}
	return stem, kind, true
}

// IsIdentifier reports whether s is a valid Python identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
