package complete

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/l3aro/pyassist/pkg/assist"
	"github.com/l3aro/pyassist/pkg/editor"
)

// CalltipAndDoc returns the calltip and docstring of the callable at
// position, or at the cursor when position is negative. Both are "" when
// nothing is known or the backend answered for another name.
func (r *Resolver) CalltipAndDoc(ctx context.Context, fileName string, ed editor.Editor, position int) (calltip, doc string) {
	if position < 0 {
		position = ed.CursorPosition()
	}
	req := assist.Request{Path: fileName, Source: ed.Text(), Offset: position}

	err := r.guard("calltip", func() error {
		var err error
		calltip, err = r.backend.Calltip(ctx, req)
		return err
	})
	if err != nil {
		return "", ""
	}
	calltip = normalizeCalltip(calltip)
	if calltip == "" {
		return "", ""
	}

	if err := r.guard("doc", func() error {
		var err error
		doc, err = r.backend.Doc(ctx, req)
		return err
	}); err != nil {
		doc = ""
	}

	if doc != "" && r.hasDocSignatures(calltip) {
		if sigs := docSignatures(calltip, doc); sigs != "" {
			calltip = sigs
		}
	}

	line, col := ed.LineIndexFromPosition(position)
	if word := ed.WordAt(line, col); word != "" && !isDunder(word) {
		name := strings.TrimSpace(strings.SplitN(calltip, "(", 2)[0])
		if name[strings.LastIndexByte(name, '.')+1:] != word {
			r.logger.Debug("calltip for another name", "word", word, "calltip", calltip)
			return "", ""
		}
	}
	return calltip, doc
}

// normalizeCalltip cleans up backend calltips: "a..b" becomes "a.b", an
// elided argument list "(.)" becomes "(...)" and constructor calltips lose
// their ".__init__".
func normalizeCalltip(calltip string) string {
	calltip = strings.TrimSpace(calltip)
	for strings.Contains(calltip, "..") {
		calltip = strings.ReplaceAll(calltip, "..", ".")
	}
	calltip = strings.ReplaceAll(calltip, "(.)", "(...)")
	return strings.ReplaceAll(calltip, ".__init__", "")
}

func (r *Resolver) hasDocSignatures(calltip string) bool {
	for _, prefix := range r.docPrefixes {
		if strings.HasPrefix(calltip, prefix) {
			return true
		}
	}
	return false
}

// docSignatures collects the docstring lines that spell out a signature of
// the callable, e.g. lines containing ".setText(" for "QtGui.QLabel.setText(".
func docSignatures(calltip, doc string) string {
	paren := strings.IndexByte(calltip, '(')
	if paren < 0 {
		return ""
	}
	dot := strings.LastIndexByte(calltip[:paren], '.')
	if dot < 0 {
		return ""
	}
	pattern := calltip[dot : paren+1]

	var signatures []string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, pattern) && !strings.HasSuffix(line, ":") {
			signatures = append(signatures, line)
		}
	}
	return strings.Join(signatures, "\n")
}

func isDunder(word string) bool {
	return strings.HasPrefix(word, "__") && strings.HasSuffix(word, "__")
}

// DefinitionLocation returns where the name at the cursor is defined, or nil.
func (r *Resolver) DefinitionLocation(ctx context.Context, fileName string, ed editor.Editor) *assist.Location {
	var loc *assist.Location
	err := r.guard("definition", func() error {
		var err error
		loc, err = r.backend.FindDefinition(ctx, assist.Request{
			Path:   fileName,
			Source: ed.Text(),
			Offset: ed.CursorPosition(),
		})
		return err
	})
	if err != nil {
		return nil
	}
	return loc
}

// Occurrences finds every use of the name at the editor cursor. The backend
// searches files on disk, so a modified buffer temporarily replaces the file
// for the duration of the search. Errors are only returned when throw is set.
func (r *Resolver) Occurrences(ctx context.Context, fileName string, ed editor.Editor, throw bool) (string, []assist.Location, error) {
	var name string
	var locations []assist.Location

	search := func() error {
		position := ed.CursorPosition()
		var err error
		if name, err = r.backend.NameAt(fileName, position); err != nil {
			return err
		}
		locations, err = r.backend.FindOccurrences(ctx, fileName, position)
		return err
	}

	var err error
	if ed.IsModified() {
		err = r.withSwappedFile(fileName, ed.Text(), func() error {
			return r.guard("occurrences", search)
		})
	} else {
		err = r.guard("occurrences", search)
	}
	if err != nil {
		if throw {
			return name, nil, err
		}
		return name, nil, nil
	}
	return name, realPaths(locations), nil
}

// OccurrencesAt finds every use of the name at position of a file on disk.
func (r *Resolver) OccurrencesAt(ctx context.Context, fileName string, position int, throw bool) ([]assist.Location, error) {
	var locations []assist.Location
	err := r.guard("occurrences", func() error {
		var err error
		locations, err = r.backend.FindOccurrences(ctx, fileName, position)
		return err
	})
	if err != nil {
		if throw {
			return nil, err
		}
		return nil, nil
	}
	return realPaths(locations), nil
}

// writeFile is replaced in tests to simulate a failing write.
var writeFile = os.WriteFile

// swapName is where a file is kept while a buffer stands in for it.
func swapName(fileName string) string {
	return filepath.Join(filepath.Dir(fileName), "."+filepath.Base(fileName)+".rope-temp")
}

// withSwappedFile moves fileName aside, writes content in its place and runs
// fn. The original file is back in place on every return path.
func (r *Resolver) withSwappedFile(fileName, content string, fn func() error) (err error) {
	temp := swapName(fileName)
	fi, err := os.Stat(fileName)
	if err != nil {
		return fmt.Errorf("swap %s: %w", fileName, err)
	}
	if err := os.Rename(fileName, temp); err != nil {
		return fmt.Errorf("swap %s: %w", fileName, err)
	}
	if err := writeFile(fileName, []byte(content), fi.Mode().Perm()); err != nil {
		if restoreErr := os.Rename(temp, fileName); restoreErr != nil {
			return errors.Join(fmt.Errorf("write buffer to %s: %w", fileName, err), restoreErr)
		}
		return fmt.Errorf("write buffer to %s: %w", fileName, err)
	}
	defer func() {
		if restoreErr := os.Rename(temp, fileName); restoreErr != nil {
			r.logger.Error("cannot restore swapped file", "file", fileName, "temp", temp, "error", restoreErr)
			err = errors.Join(err, restoreErr)
		}
		// The restored file is older than the buffer copy it replaces.
		if r.cache != nil {
			r.cache.Remove(fileName)
		}
	}()
	return fn()
}

func realPaths(locations []assist.Location) []assist.Location {
	out := make([]assist.Location, 0, len(locations))
	for _, loc := range locations {
		if resolved, err := filepath.EvalSymlinks(loc.Path); err == nil {
			loc.Path = resolved
		}
		out = append(out, loc)
	}
	return out
}
