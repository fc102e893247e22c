package lsp

import (
	"context"
	"encoding/json"
	"os"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/internal/metrics"
	"github.com/l3aro/pyassist/pkg/assist"
	"github.com/l3aro/pyassist/pkg/briefparser"
	"github.com/l3aro/pyassist/pkg/complete"
	"github.com/l3aro/pyassist/pkg/editor"
	"github.com/l3aro/pyassist/pkg/types"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// Options configures a Server.
type Options struct {
	Resolver  *complete.Resolver
	Workspace *editor.Workspace
	Logger    log.Logger
}

// Server is the language server state. Requests are handled one at a time.
type Server struct {
	resolver  *complete.Resolver
	workspace *editor.Workspace
	parser    *briefparser.Parser
	logger    log.Logger
}

// NewServer creates a Server. The workspace is shared with the resolvers so
// open buffers win over files on disk.
func NewServer(opts Options) *Server {
	s := &Server{
		resolver:  opts.Resolver,
		workspace: opts.Workspace,
		parser:    briefparser.New(),
		logger:    opts.Logger,
	}
	if s.workspace == nil {
		s.workspace = editor.NewWorkspace()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// Handler routes LSP methods to the server.
func (s *Server) Handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"initialize":                 s.initialize,
		"shutdown":                   noop,
		"exit":                       s.exit,
		"textDocument/didOpen":       s.didOpen,
		"textDocument/didChange":     s.didChange,
		"textDocument/didSave":       s.didSave,
		"textDocument/didClose":      s.didClose,
		"textDocument/completion":    s.completion,
		"textDocument/hover":         s.hover,
		"textDocument/signatureHelp": s.signatureHelp,
		"textDocument/definition":    s.definition,
		"textDocument/references":    s.references,

		// Required by the protocol.
		"initialized": noop,
		// Called by clients even when server doesn't advertise support:
		// https://microsoft.github.io/language-server-protocol/specification#workspace_didChangeWatchedFiles
		"workspace/didChangeWatchedFiles": noop,
		"$/cancelRequest":                 noop,
	})
}

type method func(context.Context, jsonrpc2.JSONRPC2, json.RawMessage) (any, error)

func noop(_ context.Context, _ jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	return nil, nil
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		metrics.LSPRequests.WithLabelValues(req.Method).Inc()
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var params json.RawMessage
		if req.Params != nil {
			params = *req.Params
		}
		return fn(ctx, conn, params)
	})
}

// Handler implementations. These are all called synchronously.

func (s *Server) initialize(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.InitializeParams
	if len(rawParams) > 0 && json.Unmarshal(rawParams, &params) == nil {
		s.logger.Info("client connected", "client", params.ClientInfo.Name, "root", uriToPath(params.Root()))
	}
	return &lsp.InitializeResult{
		Capabilities: lsp.ServerCapabilities{
			TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
				Options: &lsp.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    lsp.TDSKFull,
					Save:      &lsp.SaveOptions{},
				},
			},
			CompletionProvider:    &lsp.CompletionOptions{TriggerCharacters: []string{"."}},
			SignatureHelpProvider: &lsp.SignatureHelpOptions{TriggerCharacters: []string{"(", ","}},
			HoverProvider:         true,
			DefinitionProvider:    true,
			ReferencesProvider:    true,
		},
	}, nil
}

func (s *Server) exit(_ context.Context, conn jsonrpc2.JSONRPC2, _ json.RawMessage) (any, error) {
	go conn.Close()
	return nil, nil
}

func (s *Server) didOpen(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidOpenTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}

	uri, content := params.TextDocument.URI, params.TextDocument.Text
	s.workspace.Open(uriToPath(uri), content)
	s.publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *Server) didChange(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidChangeTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil || len(params.ContentChanges) == 0 {
		return nil, errInvalidParams
	}

	// ContentChanges includes full text since the server is only advertised to
	// support that; see the initialize method.
	uri, content := params.TextDocument.URI, params.ContentChanges[len(params.ContentChanges)-1].Text
	s.workspace.Update(uriToPath(uri), content)
	s.publishDiagnostics(ctx, conn, uri, content)
	return nil, nil
}

func (s *Server) didSave(_ context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidSaveTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	if buf, ok := s.workspace.Buffer(uriToPath(params.TextDocument.URI)); ok {
		buf.MarkSaved()
	}
	return nil, nil
}

func (s *Server) didClose(ctx context.Context, conn jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.DidCloseTextDocumentParams
	if json.Unmarshal(rawParams, &params) != nil {
		return nil, errInvalidParams
	}
	s.workspace.Close(uriToPath(params.TextDocument.URI))
	// Stale diagnostics would stay in the client otherwise.
	conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: params.TextDocument.URI, Diagnostics: []lsp.Diagnostic{}})
	return nil, nil
}

// bufferAt returns the open buffer of a document with its cursor moved to
// the requested position.
func (s *Server) bufferAt(rawParams json.RawMessage, params any) (*editor.Buffer, string, error) {
	if json.Unmarshal(rawParams, params) != nil {
		return nil, "", errInvalidParams
	}
	var pos lsp.TextDocumentPositionParams
	switch p := params.(type) {
	case *lsp.TextDocumentPositionParams:
		pos = *p
	case *lsp.CompletionParams:
		pos = p.TextDocumentPositionParams
	case *lsp.ReferenceParams:
		pos = p.TextDocumentPositionParams
	}
	path := uriToPath(pos.TextDocument.URI)
	buf, ok := s.workspace.Buffer(path)
	if !ok {
		return nil, path, nil
	}
	buf.SetCursor(lspPositionToIdx(buf.Text(), pos.Position))
	return buf, path, nil
}

func (s *Server) completion(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.CompletionParams
	buf, path, err := s.bufferAt(rawParams, &params)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return []lsp.CompletionItem{}, nil
	}

	text := buf.Text()
	info, err := s.parser.ParseMemory(text)
	if err != nil {
		info = nil
	}
	cc := complete.NewContext(buf, info)
	names, isModules := s.resolver.CompletionList(ctx, cc, buf, path, info)

	// Module names are dotted, so they replace the whole dotted expression.
	start := cc.Cursor - len(cc.Prefix)
	if isModules && cc.Object != "" {
		start -= len(cc.Object) + 1
	}
	lspRange := lsp.Range{
		Start: lspPositionFromIdx(text, start),
		End:   lspPositionFromIdx(text, cc.Cursor),
	}

	items := make([]lsp.CompletionItem, len(names))
	for i, name := range names {
		items[i] = lsp.CompletionItem{
			Label: name,
			Kind:  itemKind(name, isModules),
			TextEdit: &lsp.TextEdit{
				Range:   lspRange,
				NewText: name,
			},
		}
	}
	return items, nil
}

func itemKind(name string, isModule bool) lsp.CompletionItemKind {
	switch {
	case isModule:
		return lsp.CIKModule
	case assist.IsKeyword(name):
		return lsp.CIKKeyword
	default:
		return lsp.CIKVariable
	}
}

func (s *Server) hover(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	buf, path, err := s.bufferAt(rawParams, &params)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return lsp.Hover{}, nil
	}
	calltip, doc := s.resolver.CalltipAndDoc(ctx, path, buf, -1)
	var contents []lsp.MarkedString
	if calltip != "" {
		contents = append(contents, lsp.MarkedString{Language: "python", Value: calltip})
	}
	if doc != "" {
		contents = append(contents, lsp.RawMarkedString(doc))
	}
	return lsp.Hover{Contents: contents}, nil
}

func (s *Server) signatureHelp(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	buf, path, err := s.bufferAt(rawParams, &params)
	if err != nil {
		return nil, err
	}
	help := lsp.SignatureHelp{Signatures: []lsp.SignatureInformation{}}
	if buf == nil {
		return help, nil
	}
	if calltip, doc := s.resolver.CalltipAndDoc(ctx, path, buf, -1); calltip != "" {
		help.Signatures = append(help.Signatures, lsp.SignatureInformation{Label: calltip, Documentation: doc})
	}
	return help, nil
}

func (s *Server) definition(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.TextDocumentPositionParams
	buf, path, err := s.bufferAt(rawParams, &params)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return []lsp.Location{}, nil
	}
	loc := s.resolver.DefinitionLocation(ctx, path, buf)
	if loc == nil {
		return []lsp.Location{}, nil
	}
	return []lsp.Location{s.location(*loc)}, nil
}

func (s *Server) references(ctx context.Context, _ jsonrpc2.JSONRPC2, rawParams json.RawMessage) (any, error) {
	var params lsp.ReferenceParams
	buf, path, err := s.bufferAt(rawParams, &params)
	if err != nil {
		return nil, err
	}
	if buf == nil {
		return []lsp.Location{}, nil
	}
	_, found, _ := s.resolver.Occurrences(ctx, path, buf, false)
	locations := make([]lsp.Location, len(found))
	for i, loc := range found {
		locations[i] = s.location(loc)
	}
	return locations, nil
}

// location converts a byte-based location into an LSP range spanning the
// identifier there.
func (s *Server) location(loc assist.Location) lsp.Location {
	text, ok := s.textOf(loc.Path)
	if !ok {
		pos := lsp.Position{Line: loc.Line - 1, Character: loc.Column}
		return lsp.Location{URI: pathToURI(loc.Path), Range: lsp.Range{Start: pos, End: pos}}
	}
	start := lspPositionFromLineCol(text, loc.Line, loc.Column)
	offset := lspPositionToIdx(text, start)
	return lsp.Location{
		URI: pathToURI(loc.Path),
		Range: lsp.Range{
			Start: start,
			End:   lspPositionFromIdx(text, identEnd(text, offset)),
		},
	}
}

// textOf returns the text of path, from its open buffer when there is one.
func (s *Server) textOf(path string) (string, bool) {
	if buf, ok := s.workspace.Buffer(path); ok {
		return buf.Text(), true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (s *Server) publishDiagnostics(ctx context.Context, conn jsonrpc2.JSONRPC2, uri lsp.DocumentURI, content string) {
	conn.Notify(ctx, "textDocument/publishDiagnostics",
		lsp.PublishDiagnosticsParams{URI: uri, Diagnostics: s.diagnostics(content)})
}

func (s *Server) diagnostics(content string) []lsp.Diagnostic {
	info, err := s.parser.ParseMemory(content)
	if err != nil {
		s.logger.Debug("cannot parse buffer", "error", err)
		return []lsp.Diagnostic{}
	}

	diags := make([]lsp.Diagnostic, 0, len(info.Errors)+len(info.Warnings))
	add := func(entries []types.Diagnostic, severity lsp.DiagnosticSeverity) {
		for _, d := range entries {
			pos := lspPositionFromLineCol(content, d.Line, d.Column)
			diags = append(diags, lsp.Diagnostic{
				Range:    lsp.Range{Start: pos, End: pos},
				Severity: severity,
				Source:   "pyassist",
				Message:  d.Message,
			})
		}
	}
	add(info.Errors, lsp.Error)
	add(info.Warnings, lsp.Warning)
	return diags
}
