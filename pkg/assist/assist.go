// Package assist is the code-assist backend: completion proposals, calltips,
// documentation, definitions and occurrences for Python sources.
package assist

import (
	"context"
	"errors"
)

var (
	// ErrSyntax is returned when a source has more syntax errors than the
	// backend tolerates.
	ErrSyntax = errors.New("too many syntax errors")

	// ErrNoName is returned when there is no identifier at the requested
	// offset.
	ErrNoName = errors.New("no name at offset")
)

// Kind classifies a proposal by where the name comes from.
type Kind string

const (
	KindLocal            Kind = "local"
	KindGlobal           Kind = "global"
	KindBuiltin          Kind = "builtin"
	KindAttribute        Kind = "attribute"
	KindImported         Kind = "imported"
	KindKeyword          Kind = "keyword"
	KindParameterKeyword Kind = "parameter_keyword"
)

// Proposal is a single completion candidate.
type Proposal struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Location points at a position in a file. Line is 1-based, Column is a
// 0-based byte column.
type Location struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Offset int    `json:"offset"`
}

// Request is a query about the source of an open buffer. Source may differ
// from the content of Path on disk.
type Request struct {
	Path   string
	Source string
	Offset int
}

// Backend answers code-assist queries.
type Backend interface {
	CodeAssist(ctx context.Context, req Request) ([]Proposal, error)
	Calltip(ctx context.Context, req Request) (string, error)
	Doc(ctx context.Context, req Request) (string, error)
	FindDefinition(ctx context.Context, req Request) (*Location, error)
	FindOccurrences(ctx context.Context, path string, offset int) ([]Location, error)
	NameAt(path string, offset int) (string, error)
}
