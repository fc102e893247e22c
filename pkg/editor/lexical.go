package editor

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

type lexKind int

const (
	lexCode lexKind = iota
	lexComment
	lexString
)

// stateAt reports whether pos sits in code, in a comment or inside a string
// literal. Clean buffers are answered from the syntax tree. Broken ones go
// through lexStateAt, since an unterminated string turns the rest of the
// statement into an ERROR node.
func stateAt(text string, pos int) lexKind {
	pos = clamp(pos, 0, len(text))
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree := parser.Parse(nil, []byte(text))
	if tree == nil {
		return lexStateAt(text, pos)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		state := lexStateAt(text, pos)
		if state == lexString && inInterpolation(root, text, pos) {
			return lexCode
		}
		return state
	}

	for n := nodeAt(root, text, pos); n != nil; n = n.Parent() {
		start, end := int(n.StartByte()), int(n.EndByte())
		switch n.Type() {
		case "comment":
			// A comment runs to the line end, so its end is still inside.
			if pos > start && pos <= end {
				return lexComment
			}
		case "interpolation":
			if pos > start && pos < end {
				return lexCode
			}
		case "string":
			if pos > start && pos < end {
				return lexString
			}
		case "module":
			return lexCode
		}
	}
	return lexCode
}

func nodeAt(root *sitter.Node, text string, pos int) *sitter.Node {
	line, col := LineCol(text, pos)
	pt := sitter.Point{Row: uint32(line), Column: uint32(col)}
	return root.NamedDescendantForPointRange(pt, pt)
}

// lexStateAt scans text up to pos. Unterminated strings count as strings,
// which is what a user typing one expects.
func lexStateAt(text string, pos int) lexKind {
	state := lexCode
	var quote string

	for i := 0; i < pos; {
		c := text[i]
		switch state {
		case lexCode:
			switch c {
			case '#':
				state = lexComment
				i++
			case '\'', '"':
				if strings.HasPrefix(text[i:], strings.Repeat(string(c), 3)) {
					quote = strings.Repeat(string(c), 3)
				} else {
					quote = string(c)
				}
				state = lexString
				i += len(quote)
			default:
				i++
			}
		case lexComment:
			if c == '\n' {
				state = lexCode
			}
			i++
		case lexString:
			switch {
			case c == '\\':
				i += 2
			case c == '\n' && len(quote) == 1:
				// Single-quoted strings end at the line end, terminated or not.
				state = lexCode
				i++
			case strings.HasPrefix(text[i:], quote):
				state = lexCode
				i += len(quote)
			default:
				i++
			}
		}
	}
	return state
}

// IsRemarkLine reports whether the cursor is inside a comment.
func IsRemarkLine(ed Editor) bool {
	return stateAt(ed.Text(), ed.CursorPosition()) == lexComment
}

// IsStringLiteral reports whether the cursor is inside a string literal.
// Replacement fields of f-strings ("{expr}") count as code.
func IsStringLiteral(ed Editor) bool {
	return stateAt(ed.Text(), ed.CursorPosition()) == lexString
}

// inInterpolation reports whether pos is inside an f-string replacement
// field of a broken buffer.
func inInterpolation(root *sitter.Node, text string, pos int) bool {
	for n := nodeAt(root, text, pos); n != nil; n = n.Parent() {
		switch n.Type() {
		case "interpolation":
			// The braces themselves belong to the string.
			return pos > int(n.StartByte()) && pos < int(n.EndByte())
		case "string", "module":
			return false
		}
	}
	return false
}

// logicalLineBefore returns the text of the statement holding pos, from its
// start up to pos. Backslash continuations and unclosed parentheses are
// followed back to the first physical line.
func logicalLineBefore(text string, pos int) string {
	pos = clamp(pos, 0, len(text))
	start := strings.LastIndexByte(text[:pos], '\n') + 1
	open := unclosedParen(text[:pos])
	for start > 0 {
		if open >= 0 && open < start {
			start = strings.LastIndexByte(text[:open], '\n') + 1
			continue
		}
		prevEnd := start - 1
		prevStart := strings.LastIndexByte(text[:prevEnd], '\n') + 1
		if strings.HasSuffix(strings.TrimRight(text[prevStart:prevEnd], " \t\r"), "\\") {
			start = prevStart
			continue
		}
		break
	}
	line := text[start:pos]
	line = strings.ReplaceAll(line, "\\\n", " ")
	line = strings.ReplaceAll(line, "\n", " ")
	return line
}

// unclosedParen returns the index of the outermost "(" of s that is still
// open at its end, or -1.
func unclosedParen(s string) int {
	open, depth := -1, 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				open = i
			} else {
				depth--
			}
		}
	}
	return open
}

// IsOnSomeImport inspects the statement under the cursor. onImport is set in
// an import statement. needToComplete is false where nothing can be proposed,
// e.g. while typing an "as" alias. moduleName is the module of a
// "from X import" clause when object names are expected, and empty when
// module names are expected.
func IsOnSomeImport(ed Editor) (onImport, needToComplete bool, moduleName string) {
	line := strings.TrimLeft(logicalLineBefore(ed.Text(), ed.CursorPosition()), " \t")

	switch {
	case strings.HasPrefix(line, "import ") || line == "import":
		rest := strings.TrimPrefix(line, "import")
		return true, !typingAlias(lastItem(rest)), ""

	case strings.HasPrefix(line, "from ") || line == "from":
		rest := strings.TrimPrefix(line, "from")
		idx := indexWord(rest, "import")
		if idx < 0 {
			// Still on the module name. Once it is followed by a space only
			// the "import" keyword can come next.
			trimmed := strings.TrimLeft(rest, " \t")
			if trimmed != "" && strings.ContainsAny(trimmed, " \t") {
				return true, false, ""
			}
			return true, true, ""
		}
		module := strings.TrimSpace(rest[:idx])
		names := strings.TrimLeft(rest[idx+len("import"):], " \t(")
		if module == "" || typingAlias(lastItem(names)) {
			return true, false, ""
		}
		return true, true, strings.Join(strings.Fields(module), "")
	}
	return false, false, ""
}

// lastItem returns the comma-separated entry being typed.
func lastItem(list string) string {
	if idx := strings.LastIndexByte(list, ','); idx >= 0 {
		list = list[idx+1:]
	}
	return strings.TrimLeft(list, " \t(")
}

// typingAlias reports an entry like "name as al" or "name " awaiting "as".
func typingAlias(item string) bool {
	fields := strings.Fields(item)
	if len(fields) >= 2 {
		return true
	}
	return len(fields) == 1 && strings.HasSuffix(item, " ")
}

// indexWord finds word in s as a whole, space-delimited token.
func indexWord(s, word string) int {
	for offset := 0; ; {
		idx := strings.Index(s[offset:], word)
		if idx < 0 {
			return -1
		}
		idx += offset
		before := idx == 0 || s[idx-1] == ' ' || s[idx-1] == '\t'
		after := idx+len(word) == len(s) || s[idx+len(word)] == ' ' || s[idx+len(word)] == '\t' || s[idx+len(word)] == '('
		if before && after {
			return idx
		}
		offset = idx + len(word)
	}
}

// Tags returns the distinct identifiers of the buffer that start with
// prefix, sorted. With excludeCurrent the token under the cursor is skipped,
// so the word being typed does not propose itself.
func Tags(ed Editor, prefix string, excludeCurrent bool) []string {
	text := ed.Text()
	cursor := ed.CursorPosition()
	seen := make(map[string]struct{})

	for i := 0; i < len(text); {
		if !isIdentByte(text[i]) {
			i++
			continue
		}
		start := i
		for i < len(text) && isIdentByte(text[i]) {
			i++
		}
		if text[start] >= '0' && text[start] <= '9' {
			continue
		}
		if excludeCurrent && cursor >= start && cursor <= i {
			continue
		}
		word := text[start:i]
		if strings.HasPrefix(word, prefix) {
			seen[word] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for w := range seen {
		tags = append(tags, w)
	}
	sort.Strings(tags)
	return tags
}

// ContextAt splits the expression left of the cursor into the object before
// the last dot and the prefix typed after it: "os.path.jo" gives ("os.path",
// "jo"), "pri" gives ("", "pri").
func ContextAt(ed Editor) (object, prefix string) {
	text := ed.Text()
	pos := clamp(ed.CursorPosition(), 0, len(text))

	start := pos
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	prefix = text[start:pos]
	if start == 0 || text[start-1] != '.' {
		return "", prefix
	}

	end := start - 1
	objStart := end
	for objStart > 0 && (isIdentByte(text[objStart-1]) || text[objStart-1] == '.') {
		objStart--
	}
	object = strings.Trim(text[objStart:end], ".")
	return object, prefix
}
