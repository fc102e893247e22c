package assist

// pythonKeywords are the reserved words of Python 3.
var pythonKeywords = []string{
	"False", "None", "True", "and", "as", "assert", "async", "await",
	"break", "class", "continue", "def", "del", "elif", "else", "except",
	"finally", "for", "from", "global", "if", "import", "in", "is",
	"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
	"while", "with", "yield",
}

// pythonBuiltins is used when no interpreter can list the builtins module.
var pythonBuiltins = []string{
	// functions
	"abs", "aiter", "all", "anext", "any", "ascii", "bin", "breakpoint",
	"callable", "chr", "compile", "delattr", "dir", "divmod", "eval",
	"exec", "format", "getattr", "globals", "hasattr", "hash", "help", "hex",
	"id", "input", "isinstance", "issubclass", "iter", "len", "locals",
	"max", "min", "next", "oct", "open", "ord", "pow", "print", "repr",
	"round", "setattr", "sorted", "sum", "vars", "__import__",
	// types
	"bool", "bytearray", "bytes", "classmethod", "complex", "dict",
	"enumerate", "filter", "float", "frozenset", "int", "list", "map",
	"memoryview", "object", "property", "range", "reversed", "set",
	"slice", "staticmethod", "str", "super", "tuple", "type", "zip",
	// constants
	"Ellipsis", "NotImplemented", "__debug__",
	// exceptions
	"ArithmeticError", "AssertionError", "AttributeError", "BaseException",
	"BaseExceptionGroup", "BlockingIOError", "BrokenPipeError",
	"BufferError", "ChildProcessError", "ConnectionAbortedError",
	"ConnectionError", "ConnectionRefusedError", "ConnectionResetError",
	"EOFError", "EnvironmentError", "Exception", "ExceptionGroup",
	"FileExistsError", "FileNotFoundError", "FloatingPointError",
	"GeneratorExit", "IOError", "ImportError", "IndentationError",
	"IndexError", "InterruptedError", "IsADirectoryError", "KeyError",
	"KeyboardInterrupt", "LookupError", "MemoryError",
	"ModuleNotFoundError", "NameError", "NotADirectoryError",
	"NotImplementedError", "OSError", "OverflowError", "PermissionError",
	"ProcessLookupError", "RecursionError", "ReferenceError",
	"RuntimeError", "StopAsyncIteration", "StopIteration", "SyntaxError",
	"SystemError", "SystemExit", "TabError", "TimeoutError", "TypeError",
	"UnboundLocalError", "UnicodeDecodeError", "UnicodeEncodeError",
	"UnicodeError", "UnicodeTranslateError", "ValueError",
	"ZeroDivisionError",
	// warnings
	"BytesWarning", "DeprecationWarning", "EncodingWarning",
	"FutureWarning", "ImportWarning", "PendingDeprecationWarning",
	"ResourceWarning", "RuntimeWarning", "SyntaxWarning", "UnicodeWarning",
	"UserWarning", "Warning",
}

// objectAttributes are the attributes every instance inherits from object.
var objectAttributes = []string{
	"__class__", "__delattr__", "__dict__", "__dir__", "__doc__", "__eq__",
	"__format__", "__ge__", "__getattribute__", "__gt__", "__hash__",
	"__init__", "__init_subclass__", "__le__", "__lt__", "__module__",
	"__ne__", "__new__", "__reduce__", "__reduce_ex__", "__repr__",
	"__setattr__", "__sizeof__", "__str__", "__subclasshook__",
}

var keywordSet = func() map[string]bool {
	m := make(map[string]bool, len(pythonKeywords))
	for _, k := range pythonKeywords {
		m[k] = true
	}
	return m
}()

// IsKeyword reports whether name is a Python keyword.
func IsKeyword(name string) bool {
	return keywordSet[name]
}
