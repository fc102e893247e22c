// Package editor models open source buffers: their text, the cursor and the
// modified flag, plus lexical helpers that look at the text around the cursor.
package editor

import (
	"path/filepath"
	"strings"
	"sync"
)

// Editor is the view of an open buffer the resolvers need. Positions are
// byte offsets into Text; lines and columns are 0-based, columns in bytes.
type Editor interface {
	Text() string
	CursorPosition() int
	LineIndexFromPosition(pos int) (line, col int)
	WordAt(line, col int) string
	CurrentWord() string
	IsModified() bool
}

// Buffer is an in-memory Editor.
type Buffer struct {
	mu       sync.RWMutex
	text     string
	cursor   int
	modified bool
	version  int
}

// NewBuffer creates an unmodified buffer with the cursor at the start.
func NewBuffer(text string) *Buffer {
	return &Buffer{text: text}
}

// Text implements Editor.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// CursorPosition implements Editor.
func (b *Buffer) CursorPosition() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// IsModified implements Editor.
func (b *Buffer) IsModified() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.modified
}

// Version counts text replacements.
func (b *Buffer) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// SetText replaces the content and marks the buffer modified. The cursor is
// clamped to the new text.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
	b.modified = true
	b.version++
	b.cursor = clamp(b.cursor, 0, len(text))
}

// SetCursor moves the cursor to a byte offset.
func (b *Buffer) SetCursor(pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = clamp(pos, 0, len(b.text))
}

// SetCursorLineCol moves the cursor to a 0-based line and byte column.
func (b *Buffer) SetCursorLineCol(line, col int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = offsetOf(b.text, line, col)
}

// MarkSaved clears the modified flag.
func (b *Buffer) MarkSaved() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.modified = false
}

// LineIndexFromPosition implements Editor.
func (b *Buffer) LineIndexFromPosition(pos int) (int, int) {
	return LineCol(b.Text(), pos)
}

// WordAt implements Editor.
func (b *Buffer) WordAt(line, col int) string {
	text := b.Text()
	return wordAround(text, offsetOf(text, line, col))
}

// CurrentWord implements Editor.
func (b *Buffer) CurrentWord() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return wordAround(b.text, b.cursor)
}

// LineCol converts a byte offset into a 0-based line and byte column.
func LineCol(text string, pos int) (int, int) {
	pos = clamp(pos, 0, len(text))
	line := strings.Count(text[:pos], "\n")
	col := pos - (strings.LastIndexByte(text[:pos], '\n') + 1)
	return line, col
}

// offsetOf converts a 0-based line and byte column into an offset, clamping
// past-the-end lines and columns.
func offsetOf(text string, line, col int) int {
	offset := 0
	for i := 0; i < line; i++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}
	return offset + clamp(col, 0, end)
}

// wordAround returns the identifier touching pos, on either side.
func wordAround(text string, pos int) string {
	start, end := wordBounds(text, pos)
	return text[start:end]
}

func wordBounds(text string, pos int) (int, int) {
	pos = clamp(pos, 0, len(text))
	start := pos
	for start > 0 && isIdentByte(text[start-1]) {
		start--
	}
	end := pos
	for end < len(text) && isIdentByte(text[end]) {
		end++
	}
	return start, end
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Workspace tracks the buffers open in the client, by absolute path.
type Workspace struct {
	mu      sync.RWMutex
	buffers map[string]*Buffer
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{buffers: make(map[string]*Buffer)}
}

// Open registers a buffer for path with its saved text.
func (w *Workspace) Open(path, text string) *Buffer {
	b := NewBuffer(text)
	w.mu.Lock()
	w.buffers[normalize(path)] = b
	w.mu.Unlock()
	return b
}

// Update replaces the text of an open buffer, opening it if needed.
func (w *Workspace) Update(path, text string) *Buffer {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := normalize(path)
	b, ok := w.buffers[key]
	if !ok {
		b = NewBuffer("")
		w.buffers[key] = b
	}
	b.SetText(text)
	return b
}

// Close forgets the buffer for path.
func (w *Workspace) Close(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.buffers, normalize(path))
}

// Buffer returns the open buffer for path.
func (w *Workspace) Buffer(path string) (*Buffer, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.buffers[normalize(path)]
	return b, ok
}

// EditorFor returns the editor showing path, if any.
func (w *Workspace) EditorFor(path string) (Editor, bool) {
	b, ok := w.Buffer(path)
	if !ok {
		return nil, false
	}
	return b, true
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
