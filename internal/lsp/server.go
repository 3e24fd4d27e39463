package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/project"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/workspace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	// Workspace supplies a pre-configured workspace (cache, ignore
	// filter). Nil creates a fresh one.
	Workspace *workspace.Workspace
	// MaxDiagnostics caps diagnostics per publish. <= 0 means 100.
	MaxDiagnostics int
	// SkipScan disables the background workspace scan on initialize.
	SkipScan bool
}

// Server handles stdio JSON-RPC for the Perl language server. All
// analysis lives in the workspace; the server only translates between
// the protocol and byte-offset queries.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	mu                sync.Mutex
	ws                *workspace.Workspace
	workspaceRoot     string
	published         map[string]struct{}
	shutdownRequested bool
	maxDiagnostics    int
	maxResults        int
	skipScan          bool

	baseCtx context.Context
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	ws := opts.Workspace
	if ws == nil {
		ws = workspace.New(nil, nil)
	}
	maxDiagnostics := opts.MaxDiagnostics
	if maxDiagnostics <= 0 {
		maxDiagnostics = 100
	}
	return &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		ws:             ws,
		published:      make(map[string]struct{}),
		maxDiagnostics: maxDiagnostics,
		maxResults:     200,
		skipScan:       opts.SkipScan,
		baseCtx:        context.Background(),
	}
}

// Run serves LSP requests until exit or EOF.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/references":
		return s.handleReferences(msg)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(msg)
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, -32601, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, -32602, "invalid params")
		}
	}
	root := ""
	if params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}

	scan := false
	s.mu.Lock()
	if root != "" {
		cfg, projectRoot, err := project.Discover(root)
		if err == nil {
			root = projectRoot
			s.ws.SetIgnore(cfg.Ignored)
			if cfg.MaxDiagnostics > 0 {
				s.maxDiagnostics = cfg.MaxDiagnostics
			}
			if cfg.MaxResults > 0 {
				s.maxResults = cfg.MaxResults
			}
		}
		s.workspaceRoot = root
		scan = !s.skipScan
	}
	s.mu.Unlock()

	if scan {
		go func() {
			if _, err := s.ws.IndexAll(s.baseCtx, root, 0); err != nil {
				s.logf("workspace scan: %v", err)
			}
		}()
	}

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save:      saveOptions{IncludeText: true},
			},
			HoverProvider:           true,
			DefinitionProvider:      true,
			ReferencesProvider:      true,
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
		},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	published := make([]string, 0, len(s.published))
	for uri := range s.published {
		published = append(published, uri)
		delete(s.published, uri)
	}
	s.mu.Unlock()
	for _, uri := range published {
		if err := s.sendPublish(uri, 0, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	path := uriToPath(uri)
	if err := s.ws.Open(path, clampVersion(params.TextDocument.Version), []byte(params.TextDocument.Text)); err != nil {
		s.logf("didOpen %s: %v", path, err)
		return nil
	}
	return s.publishDiagnostics(uri, path)
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" || len(params.ContentChanges) == 0 {
		return nil
	}
	path := uriToPath(uri)
	file, ok := s.ws.File(path)
	if !ok {
		s.logf("didChange for unopened document %s", path)
		return nil
	}

	version := clampVersion(params.TextDocument.Version)
	var edits []workspace.TextEdit
	if len(params.ContentChanges) == 1 && params.ContentChanges[0].Range != nil {
		change := params.ContentChanges[0]
		edits = []workspace.TextEdit{{
			Start:  offsetForPositionInFile(file, change.Range.Start),
			OldEnd: offsetForPositionInFile(file, change.Range.End),
			Text:   change.Text,
		}}
	} else {
		// Multi-change batches apply sequentially against intermediate
		// content, which the byte-edit API does not model. Collapse them
		// into one full replacement.
		text := applyChanges(string(file.Content), params.ContentChanges)
		edits = []workspace.TextEdit{{
			Start:  0,
			OldEnd: safeUint32(len(file.Content)),
			Text:   text,
		}}
	}

	if err := s.ws.Change(path, version, edits); err != nil {
		if errors.Is(err, workspace.ErrStaleVersion) {
			return nil
		}
		s.logf("didChange %s: %v", path, err)
		return nil
	}
	return s.publishDiagnostics(uri, path)
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	// Saves carry no new analysis input; re-publish the current set.
	return s.publishDiagnostics(uri, uriToPath(uri))
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.ws.Close(uriToPath(uri))
	s.mu.Lock()
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()
	if hadDiagnostics {
		return s.sendPublish(uri, 0, nil)
	}
	return nil
}

func (s *Server) publishDiagnostics(uri, path string) error {
	diags, ok := s.ws.Diagnostics(path)
	if !ok {
		return nil
	}
	file, _ := s.ws.File(path)

	s.mu.Lock()
	maxItems := s.maxDiagnostics
	s.published[uri] = struct{}{}
	s.mu.Unlock()

	items := diags.Items
	if maxItems > 0 && maxItems < len(items) {
		items = items[:maxItems]
	}
	list := make([]lspDiagnostic, 0, len(items))
	for _, d := range items {
		list = append(list, lspDiagnostic{
			Range:    rangeForSpan(file, d.Primary),
			Severity: lspSeverity(d.Severity),
			Code:     d.Code.ID(),
			Source:   "perlsp",
			Message:  d.Message,
		})
	}
	return s.sendPublish(uri, diags.Version, list)
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, version int32, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params": publishDiagnosticsParams{
			URI:         uri,
			Version:     version,
			Diagnostics: list,
		},
	}
	return s.send(msg)
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}

func clampVersion(v int) int32 {
	if v < 0 {
		return 0
	}
	if v > int(int32(^uint32(0)>>1)) {
		return int32(^uint32(0) >> 1)
	}
	return int32(v)
}

func lspSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	default:
		return 3
	}
}
