package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
)

const testURI = "file:///ws/main.pl"

const testDocText = "sub greet { return \"hi\"; }\ngreet();\nmy $unused = 1;\n"

func request(id int, method string, params any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	}
}

func notification(method string, params any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
}

func didOpenMsg() map[string]any {
	return notification("textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{
			URI:        testURI,
			LanguageID: "perl",
			Version:    1,
			Text:       testDocText,
		},
	})
}

func encodeScript(t *testing.T, msgs []any) *bytes.Buffer {
	t.Helper()
	var in bytes.Buffer
	for _, msg := range msgs {
		payload, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := writeMessage(&in, payload); err != nil {
			t.Fatalf("frame: %v", err)
		}
	}
	return &in
}

func decodeReplies(t *testing.T, out *bytes.Buffer) []rpcMessage {
	t.Helper()
	r := bufio.NewReader(out)
	var replies []rpcMessage
	for {
		payload, err := readMessage(r)
		if err != nil {
			return replies
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("bad reply frame %q: %v", payload, err)
		}
		replies = append(replies, msg)
	}
}

// runScript drives a fresh server through initialize, the given messages,
// and a clean shutdown, returning everything the server sent.
func runScript(t *testing.T, msgs ...any) []rpcMessage {
	t.Helper()
	script := []any{request(1, "initialize", initializeParams{}), notification("initialized", nil)}
	script = append(script, msgs...)
	script = append(script, request(99, "shutdown", nil), notification("exit", nil))

	var out bytes.Buffer
	s := NewServer(encodeScript(t, script), &out, ServerOptions{SkipScan: true})
	if err := s.Run(context.Background()); !errors.Is(err, ErrExit) {
		t.Fatalf("Run = %v, want ErrExit", err)
	}
	return decodeReplies(t, &out)
}

func responseByID(t *testing.T, replies []rpcMessage, id int) *rpcMessage {
	t.Helper()
	want := strconv.Itoa(id)
	for i := range replies {
		if string(replies[i].ID) == want {
			return &replies[i]
		}
	}
	t.Fatalf("no response with id %d in %d replies", id, len(replies))
	return nil
}

func publishedFor(t *testing.T, replies []rpcMessage, uri string) []publishDiagnosticsParams {
	t.Helper()
	var out []publishDiagnosticsParams
	for i := range replies {
		if replies[i].Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params publishDiagnosticsParams
		if err := json.Unmarshal(replies[i].Params, &params); err != nil {
			t.Fatalf("bad publish params: %v", err)
		}
		if params.URI == uri {
			out = append(out, params)
		}
	}
	return out
}

func unmarshalResult(t *testing.T, msg *rpcMessage, into any) {
	t.Helper()
	if msg.Error != nil {
		t.Fatalf("unexpected error response: %+v", msg.Error)
	}
	if err := json.Unmarshal(msg.Result, into); err != nil {
		t.Fatalf("bad result %q: %v", msg.Result, err)
	}
}

func TestInitializeCapabilities(t *testing.T) {
	replies := runScript(t)

	var result initializeResult
	unmarshalResult(t, responseByID(t, replies, 1), &result)
	caps := result.Capabilities
	if !caps.TextDocumentSync.OpenClose || caps.TextDocumentSync.Change != 2 {
		t.Fatalf("sync options = %+v", caps.TextDocumentSync)
	}
	if !caps.HoverProvider || !caps.DefinitionProvider || !caps.ReferencesProvider {
		t.Fatalf("capabilities = %+v", caps)
	}
	if !caps.DocumentSymbolProvider || !caps.WorkspaceSymbolProvider {
		t.Fatalf("symbol capabilities = %+v", caps)
	}
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	replies := runScript(t, didOpenMsg())

	published := publishedFor(t, replies, testURI)
	if len(published) == 0 {
		t.Fatalf("no diagnostics published")
	}
	first := published[0]
	if first.Version != 1 {
		t.Fatalf("published version = %d, want 1", first.Version)
	}
	if len(first.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %+v", len(first.Diagnostics), first.Diagnostics)
	}
	d := first.Diagnostics[0]
	if d.Code != "SEM3002" || d.Severity != 2 || d.Source != "perlsp" {
		t.Fatalf("diagnostic = %+v", d)
	}
	if !strings.Contains(d.Message, "$unused") {
		t.Fatalf("message = %q", d.Message)
	}
	want := lspRange{Start: position{Line: 2, Character: 3}, End: position{Line: 2, Character: 10}}
	if d.Range != want {
		t.Fatalf("range = %+v, want %+v", d.Range, want)
	}

	// Shutdown clears what was published.
	last := published[len(published)-1]
	if len(last.Diagnostics) != 0 {
		t.Fatalf("diagnostics not cleared on shutdown: %+v", last.Diagnostics)
	}
}

func TestDidChangeRangedEdit(t *testing.T) {
	// Append a use of $unused; the warning must disappear.
	change := notification("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument: versionedTextDocumentIdentifier{URI: testURI, Version: 2},
		ContentChanges: []textDocumentContentChangeEvent{{
			Range: &lspRange{
				Start: position{Line: 3, Character: 0},
				End:   position{Line: 3, Character: 0},
			},
			Text: "print $unused;\n",
		}},
	})
	replies := runScript(t, didOpenMsg(), change)

	published := publishedFor(t, replies, testURI)
	if len(published) < 2 {
		t.Fatalf("got %d publishes, want open + change", len(published))
	}
	second := published[1]
	if second.Version != 2 {
		t.Fatalf("published version = %d, want 2", second.Version)
	}
	if len(second.Diagnostics) != 0 {
		t.Fatalf("diagnostics after fix: %+v", second.Diagnostics)
	}
}

func TestStaleChangeIsDropped(t *testing.T) {
	stale := notification("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: testURI, Version: 1},
		ContentChanges: []textDocumentContentChangeEvent{{Text: "garbage("}},
	})
	replies := runScript(t, didOpenMsg(), stale)

	published := publishedFor(t, replies, testURI)
	for _, p := range published[:len(published)-1] {
		if p.Version > 1 {
			t.Fatalf("stale change produced a publish at version %d", p.Version)
		}
	}
}

func TestDefinition(t *testing.T) {
	// Cursor inside the greet() call on line 1.
	def := request(2, "textDocument/definition", definitionParams{
		TextDocument: textDocumentIdentifier{URI: testURI},
		Position:     position{Line: 1, Character: 2},
	})
	replies := runScript(t, didOpenMsg(), def)

	var locs []location
	unmarshalResult(t, responseByID(t, replies, 2), &locs)
	if len(locs) != 1 {
		t.Fatalf("got %d locations, want 1: %+v", len(locs), locs)
	}
	if !strings.HasSuffix(locs[0].URI, "/ws/main.pl") {
		t.Fatalf("definition uri = %q", locs[0].URI)
	}
	want := lspRange{Start: position{Line: 0, Character: 4}, End: position{Line: 0, Character: 9}}
	if locs[0].Range != want {
		t.Fatalf("definition range = %+v, want %+v", locs[0].Range, want)
	}
}

func TestHover(t *testing.T) {
	hov := request(2, "textDocument/hover", hoverParams{
		TextDocument: textDocumentIdentifier{URI: testURI},
		Position:     position{Line: 0, Character: 6},
	})
	replies := runScript(t, didOpenMsg(), hov)

	var h hover
	unmarshalResult(t, responseByID(t, replies, 2), &h)
	if h.Contents.Kind != "markdown" {
		t.Fatalf("hover kind = %q", h.Contents.Kind)
	}
	if !strings.Contains(h.Contents.Value, "main::greet") {
		t.Fatalf("hover value = %q", h.Contents.Value)
	}
	if h.Range == nil {
		t.Fatalf("hover has no range")
	}
	want := lspRange{Start: position{Line: 0, Character: 4}, End: position{Line: 0, Character: 9}}
	if *h.Range != want {
		t.Fatalf("hover range = %+v, want %+v", *h.Range, want)
	}
}

func TestReferences(t *testing.T) {
	refs := request(2, "textDocument/references", referenceParams{
		TextDocument: textDocumentIdentifier{URI: testURI},
		Position:     position{Line: 1, Character: 2},
		Context:      referenceContext{IncludeDeclaration: true},
	})
	replies := runScript(t, didOpenMsg(), refs)

	var locs []location
	unmarshalResult(t, responseByID(t, replies, 2), &locs)
	if len(locs) != 2 {
		t.Fatalf("got %d locations, want declaration + call: %+v", len(locs), locs)
	}
	lines := map[int]bool{}
	for _, loc := range locs {
		lines[loc.Range.Start.Line] = true
	}
	if !lines[0] || !lines[1] {
		t.Fatalf("reference lines = %v", lines)
	}
}

func TestDocumentSymbol(t *testing.T) {
	syms := request(2, "textDocument/documentSymbol", documentSymbolParams{
		TextDocument: textDocumentIdentifier{URI: testURI},
	})
	replies := runScript(t, didOpenMsg(), syms)

	var out []symbolInformation
	unmarshalResult(t, responseByID(t, replies, 2), &out)
	if len(out) != 2 {
		t.Fatalf("got %d symbols, want 2: %+v", len(out), out)
	}
	if out[0].Name != "greet" || out[0].Kind != symbolKindFunction || out[0].ContainerName != "main" {
		t.Fatalf("first symbol = %+v", out[0])
	}
	if out[1].Name != "$unused" || out[1].Kind != symbolKindVariable {
		t.Fatalf("second symbol = %+v", out[1])
	}
}

func TestWorkspaceSymbol(t *testing.T) {
	query := request(2, "workspace/symbol", workspaceSymbolParams{Query: "gre"})
	replies := runScript(t, didOpenMsg(), query)

	var out []symbolInformation
	unmarshalResult(t, responseByID(t, replies, 2), &out)
	if len(out) != 1 {
		t.Fatalf("got %d symbols, want 1: %+v", len(out), out)
	}
	if out[0].Name != "greet" || out[0].Kind != symbolKindFunction {
		t.Fatalf("symbol = %+v", out[0])
	}
}

func TestUnknownMethod(t *testing.T) {
	bogus := request(2, "textDocument/rename", map[string]any{})
	replies := runScript(t, bogus)

	resp := responseByID(t, replies, 2)
	if resp.Error == nil || resp.Error.Code != -32601 {
		t.Fatalf("error = %+v, want method not found", resp.Error)
	}
}

func TestExitWithoutShutdown(t *testing.T) {
	script := []any{
		request(1, "initialize", initializeParams{}),
		notification("exit", nil),
	}
	var out bytes.Buffer
	s := NewServer(encodeScript(t, script), &out, ServerOptions{SkipScan: true})
	if err := s.Run(context.Background()); !errors.Is(err, ErrExitWithoutShutdown) {
		t.Fatalf("Run = %v, want ErrExitWithoutShutdown", err)
	}
}

func TestEOFEndsRunCleanly(t *testing.T) {
	var out bytes.Buffer
	s := NewServer(bytes.NewReader(nil), &out, ServerOptions{SkipScan: true})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run at EOF = %v", err)
	}
}
