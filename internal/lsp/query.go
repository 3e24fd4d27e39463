package lsp

import (
	"encoding/json"
	"fmt"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/index"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// docQuery resolves position params to the document's analysis state.
func (s *Server) docQuery(doc textDocumentIdentifier, pos position) (path string, tab *sema.Table, file *source.File, off uint32, ok bool) {
	uri := canonicalURI(doc.URI)
	if uri == "" {
		return "", nil, nil, 0, false
	}
	path = uriToPath(uri)
	tab, ok = s.ws.Table(path)
	if !ok {
		return "", nil, nil, 0, false
	}
	file, ok = s.ws.File(path)
	if !ok {
		return "", nil, nil, 0, false
	}
	return path, tab, file, offsetForPositionInFile(file, pos), true
}

func (s *Server) handleHover(msg *rpcMessage) error {
	var params hoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	_, tab, file, off, ok := s.docQuery(params.TextDocument, params.Position)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	id := tab.SymbolAt(off)
	sym := tab.Symbols.Get(id)
	if sym == nil {
		return s.sendResponse(msg.ID, nil)
	}

	name := sym.Name
	if q := sym.Qualified(); q != "" {
		name = q
	}
	value := fmt.Sprintf("**%s** `%s`", sym.Kind, name)
	switch {
	case sym.Flags&sema.SymbolFlagBuiltin != 0:
		value += "\n\nbuiltin"
	case !sym.Decl.Empty():
		start, _ := s.ws.FileSet().Resolve(sym.Decl)
		value += fmt.Sprintf("\n\ndeclared on line %d", start.Line)
	}

	var hoverRange *lspRange
	for i := range tab.Refs {
		if tab.Refs[i].Span.Contains(off) {
			r := rangeForSpan(file, tab.Refs[i].Span)
			hoverRange = &r
			break
		}
	}
	if hoverRange == nil && sym.Decl.Contains(off) {
		r := rangeForSpan(file, sym.Decl)
		hoverRange = &r
	}

	return s.sendResponse(msg.ID, hover{
		Contents: markupContent{Kind: "markdown", Value: value},
		Range:    hoverRange,
	})
}

func (s *Server) handleDefinition(msg *rpcMessage) error {
	var params definitionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	path, tab, _, off, ok := s.docQuery(params.TextDocument, params.Position)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}

	if span, found := tab.DefinitionAt(off); found && !span.Empty() {
		return s.sendResponse(msg.ID, []location{s.spanLocation(path, span)})
	}

	// Not declared in this file; retry the name against the workspace
	// index.
	for i := range tab.Refs {
		ref := &tab.Refs[i]
		if !ref.Span.Contains(off) {
			continue
		}
		entries := s.ws.Index().FindDefinition(ref.Name)
		locs := make([]location, 0, len(entries))
		for _, e := range entries {
			locs = append(locs, s.spanLocation(e.Path, e.Span))
		}
		if len(locs) > 0 {
			return s.sendResponse(msg.ID, locs)
		}
		break
	}
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleReferences(msg *rpcMessage) error {
	var params referenceParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	path, tab, _, off, ok := s.docQuery(params.TextDocument, params.Position)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}

	seen := make(map[string]struct{})
	var locs []location
	add := func(loc location) {
		key := fmt.Sprintf("%s:%d:%d", loc.URI, loc.Range.Start.Line, loc.Range.Start.Character)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		locs = append(locs, loc)
	}

	id := tab.SymbolAt(off)
	if sym := tab.Symbols.Get(id); sym != nil {
		if params.Context.IncludeDeclaration && !sym.Decl.Empty() {
			add(s.spanLocation(path, sym.Decl))
		}
		for _, ref := range tab.ReferencesTo(id) {
			add(s.spanLocation(path, ref.Span))
		}
		// Package-visible symbols may be referenced from other files.
		if q := sym.Qualified(); q != "" {
			for _, re := range s.ws.Index().FindReferences(q) {
				add(s.refLocation(re))
			}
			for _, re := range s.ws.Index().FindReferences(sym.Name) {
				add(s.refLocation(re))
			}
		}
	} else {
		for i := range tab.Refs {
			if tab.Refs[i].Span.Contains(off) {
				for _, re := range s.ws.Index().FindReferences(tab.Refs[i].Name) {
					add(s.refLocation(re))
				}
				break
			}
		}
	}
	return s.sendResponse(msg.ID, locs)
}

func (s *Server) handleDocumentSymbol(msg *rpcMessage) error {
	var params documentSymbolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)
	path := uriToPath(uri)
	tab, ok := s.ws.Table(path)
	if !ok {
		return s.sendResponse(msg.ID, nil)
	}
	file, _ := s.ws.File(path)

	ids := tab.DocumentSymbols()
	out := make([]symbolInformation, 0, len(ids))
	for _, id := range ids {
		sym := tab.Symbols.Get(id)
		out = append(out, symbolInformation{
			Name:          sym.Name,
			Kind:          lspSymbolKind(sym.Kind),
			ContainerName: sym.Package,
			Location: location{
				URI:   uri,
				Range: rangeForSpan(file, sym.Decl),
			},
		})
	}
	return s.sendResponse(msg.ID, out)
}

func (s *Server) handleWorkspaceSymbol(msg *rpcMessage) error {
	var params workspaceSymbolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	s.mu.Lock()
	limit := s.maxResults
	s.mu.Unlock()

	entries, status := s.ws.Index().WorkspaceSymbols(s.baseCtx, params.Query, limit)
	if status == index.Partial {
		s.logf("workspace/symbol returned partial results for %q", params.Query)
	}
	out := make([]symbolInformation, 0, len(entries))
	for _, e := range entries {
		out = append(out, symbolInformation{
			Name:          e.Name,
			Kind:          lspSymbolKind(e.Kind),
			ContainerName: e.Package,
			Location:      s.spanLocation(e.Path, e.Span),
		})
	}
	return s.sendResponse(msg.ID, out)
}

func (s *Server) spanLocation(path string, span source.Span) location {
	file := s.ws.FileSet().Get(span.File)
	return location{
		URI:   pathToURI(path),
		Range: rangeForSpan(file, span),
	}
}

func (s *Server) refLocation(re index.RefEntry) location {
	file := s.ws.FileSet().Get(re.File)
	path := ""
	if file != nil {
		path = file.Path
	}
	return location{
		URI:   pathToURI(path),
		Range: rangeForSpan(file, re.Span),
	}
}

func lspSymbolKind(kind sema.SymbolKind) int {
	switch kind {
	case sema.SymbolPackage:
		return symbolKindPackage
	case sema.SymbolSub:
		return symbolKindFunction
	default:
		return symbolKindVariable
	}
}
