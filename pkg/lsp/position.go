package lsp

import (
	"net/url"
	"path/filepath"
	"strings"

	lsp "github.com/sourcegraph/go-lsp"
)

// uriToPath converts a file:// URI to a local path. Other URIs are returned
// unchanged.
func uriToPath(uri lsp.DocumentURI) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return string(uri)
	}
	return filepath.FromSlash(u.Path)
}

func pathToURI(path string) lsp.DocumentURI {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return lsp.DocumentURI(u.String())
}

func lspPositionToIdx(s string, pos lsp.Position) int {
	var idx int
	walkString(s, func(i int, p lsp.Position) bool {
		idx = i
		return p.Line < pos.Line || (p.Line == pos.Line && p.Character < pos.Character)
	})
	return idx
}

func lspPositionFromIdx(s string, idx int) lsp.Position {
	var pos lsp.Position
	walkString(s, func(i int, p lsp.Position) bool {
		pos = p
		return i < idx
	})
	return pos
}

// lspPositionFromLineCol converts a 1-based line and 0-based byte column.
func lspPositionFromLineCol(s string, line, col int) lsp.Position {
	start := 0
	for i := 1; i < line; i++ {
		next := strings.IndexByte(s[start:], '\n')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return lspPositionFromIdx(s, start+col)
}

// Generates (index, lspPosition) pairs in s, stopping if f returns false.
func walkString(s string, f func(i int, p lsp.Position) bool) {
	var p lsp.Position
	lastCR := false

	for i, r := range s {
		if !f(i, p) {
			return
		}
		switch {
		case r == '\r':
			p.Line++
			p.Character = 0
		case r == '\n':
			if lastCR {
				// Ignore \n if it's part of a \r\n sequence
			} else {
				p.Line++
				p.Character = 0
			}
		case r <= 0xFFFF:
			// Encoded in UTF-16 with one unit
			p.Character++
		default:
			// Encoded in UTF-16 with two units
			p.Character += 2
		}
		lastCR = r == '\r'
	}
	f(len(s), p)
}

// identEnd returns the end of the identifier starting at idx.
func identEnd(s string, idx int) int {
	end := idx
	for end < len(s) {
		c := s[end]
		if c == '_' || c >= 0x80 || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			end++
			continue
		}
		break
	}
	return end
}
