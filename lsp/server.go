// Package lsp serves EBNF grammar files over the Language Server Protocol.
// It reports compile errors as diagnostics and completes production names.
package lsp

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
	"golang.org/x/exp/ebnf"

	"github.com/dhamidi/earley/ebnf/compile"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "earley"

func logger() commonlog.Logger {
	return commonlog.GetLogger("lsp")
}

type document struct {
	text  string
	names []string // production names from the last text that parsed
}

type Server struct {
	handler protocol.Handler
	server  *server.Server
	version string

	mu   sync.Mutex
	docs map[string]*document
}

func NewServer(version string) *Server {
	ls := &Server{
		version: version,
		docs:    make(map[string]*document),
	}

	ls.handler = protocol.Handler{
		Initialize:             ls.initialize,
		Initialized:            ls.initialized,
		Shutdown:               ls.shutdown,
		SetTrace:               ls.setTrace,
		TextDocumentDidOpen:    ls.textDocumentDidOpen,
		TextDocumentDidChange:  ls.textDocumentDidChange,
		TextDocumentDidClose:   ls.textDocumentDidClose,
		TextDocumentDidSave:    ls.textDocumentDidSave,
		TextDocumentCompletion: ls.textDocumentCompletion,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    intPtr(int(protocol.TextDocumentSyncKindFull)),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	logger().Infof("open %s", params.TextDocument.URI)
	ls.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) > 0 {
		change := params.ContentChanges[len(params.ContentChanges)-1]
		if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			ls.update(ctx, params.TextDocument.URI, textChange.Text)
		}
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.mu.Lock()
	delete(ls.docs, params.TextDocument.URI)
	ls.mu.Unlock()
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		ls.update(ctx, params.TextDocument.URI, *params.Text)
	}
	return nil
}

// update stores the new text of uri and publishes its diagnostics.
func (ls *Server) update(ctx *glsp.Context, uri string, text string) {
	diagnostics := ls.Analyze(uri, text)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Analyze compiles text as the document at uri, remembers it for completion,
// and returns its diagnostics. The slice is empty, not nil, when the grammar
// compiles cleanly.
func (ls *Server) Analyze(uri string, text string) []protocol.Diagnostic {
	path, err := uriToPath(uri)
	if err != nil {
		path = uri
	}

	ls.mu.Lock()
	doc := ls.docs[uri]
	if doc == nil {
		doc = &document{}
		ls.docs[uri] = doc
	}
	doc.text = text
	if syntax, err := ebnf.Parse(path, strings.NewReader(text)); err == nil {
		doc.names = doc.names[:0]
		for _, p := range compile.Productions(syntax) {
			doc.names = append(doc.names, p.Name.String)
		}
	}
	ls.mu.Unlock()

	diagnostics := []protocol.Diagnostic{}
	_, err = compile.Parse(path, strings.NewReader(text))
	if err == nil {
		return diagnostics
	}
	lines := strings.Split(text, "\n")
	for _, e := range compile.Split(path, err) {
		diagnostics = append(diagnostics, toDiagnostic(e, lines))
	}
	logger().Debugf("%s: %d diagnostics", path, len(diagnostics))
	return diagnostics
}

func toDiagnostic(e *compile.Error, lines []string) protocol.Diagnostic {
	var line, start, end int
	if e.Pos.Line > 0 {
		line = e.Pos.Line - 1
		start = e.Pos.Column - 1
		end = start
		if line < len(lines) {
			end = wordEnd(lines[line], start)
		}
	}
	severity := protocol.DiagnosticSeverityError
	source := lsName
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(start)},
			End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
		},
		Severity: &severity,
		Source:   &source,
		Message:  e.Msg,
	}
}

func (ls *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	items := ls.Complete(params.TextDocument.URI, int(params.Position.Line), int(params.Position.Character))
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

// Complete offers the production names of the document at uri that extend
// the word before the given zero-based position.
func (ls *Server) Complete(uri string, line, col int) []protocol.CompletionItem {
	ls.mu.Lock()
	doc := ls.docs[uri]
	var text string
	var names []string
	if doc != nil {
		text = doc.text
		names = append(names, doc.names...)
	}
	ls.mu.Unlock()
	if doc == nil {
		return nil
	}

	prefix := ""
	lines := strings.Split(text, "\n")
	if line >= 0 && line < len(lines) {
		prefix = wordBefore(lines[line], col)
	}

	sort.Strings(names)
	var items []protocol.CompletionItem
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) || name == prefix {
			continue
		}
		kind := protocol.CompletionItemKindVariable
		detail := "production"
		if compile.IsLexical(name) {
			kind = protocol.CompletionItemKindConstant
			detail = "token"
		}
		items = append(items, protocol.CompletionItem{
			Label:  name,
			Kind:   &kind,
			Detail: &detail,
		})
	}
	return items
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

func wordBefore(line string, col int) string {
	if col > len(line) {
		col = len(line)
	}
	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}
	return line[start:col]
}

func wordEnd(line string, start int) int {
	if start < 0 || start >= len(line) {
		return start
	}
	end := start
	for end < len(line) && isWordByte(line[end]) {
		end++
	}
	if end == start {
		end++
	}
	return end
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *protocol.TextDocumentSyncKind {
	v := protocol.TextDocumentSyncKind(i)
	return &v
}
