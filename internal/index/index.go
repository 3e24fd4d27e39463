package index

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// Entry is one package-visible definition known to the index.
type Entry struct {
	File      source.FileID
	Path      string
	Name      string // bare name, sigil included for variables
	Qualified string // package-qualified form, "" for packages themselves
	Kind      sema.SymbolKind
	Package   string
	Span      source.Span
}

// RefEntry is one recorded reference, by the name it was written with.
type RefEntry struct {
	File source.FileID
	Name string
	Kind sema.RefKind
	Span source.Span
}

// Status reports whether a scan saw the whole index.
type Status uint8

const (
	Complete Status = iota
	Partial
)

func (s Status) String() string {
	if s == Partial {
		return "partial"
	}
	return "complete"
}

// fileRecord tracks everything the index holds for one file so a reindex
// or removal can take it all back out.
type fileRecord struct {
	path       string
	defKeys    []string
	refKeys    []string
	packages   []string
	deps       []string
	unresolved []RefEntry
}

// Index is the workspace-wide symbol index. Definitions are keyed by both
// bare and qualified name. Reads run concurrently; writes are serialized.
type Index struct {
	mu         sync.RWMutex
	defs       map[string][]Entry
	refs       map[string][]RefEntry
	files      map[source.FileID]*fileRecord
	dependents map[string]map[source.FileID]struct{}
}

func New() *Index {
	return &Index{
		defs:       make(map[string][]Entry),
		refs:       make(map[string][]RefEntry),
		files:      make(map[source.FileID]*fileRecord),
		dependents: make(map[string]map[source.FileID]struct{}),
	}
}

// FileData is the index's view of one analyzed file, decoupled from the
// analysis tables so a disk cache can supply it without reparsing.
type FileData struct {
	Entries    []Entry
	Refs       []RefEntry // resolved in-file
	Unresolved []RefEntry // candidates for cross-file resolution
	Packages   []string
	Deps       []string // used/required module names
}

// DataFromTable flattens a semantic table into index data.
func DataFromTable(path string, tab *sema.Table) FileData {
	var data FileData
	data.Packages = append(data.Packages, tab.Packages...)

	for _, id := range tab.DocumentSymbols() {
		sym := tab.Symbols.Get(id)
		data.Entries = append(data.Entries, Entry{
			File:      tab.File,
			Path:      path,
			Name:      sym.Name,
			Qualified: qualifiedKey(sym),
			Kind:      sym.Kind,
			Package:   sym.Package,
			Span:      sym.Decl,
		})
	}
	for i := range tab.Refs {
		r := &tab.Refs[i]
		re := RefEntry{File: tab.File, Name: r.Name, Kind: r.Kind, Span: r.Span}
		if r.Kind == sema.RefPackage {
			data.Deps = append(data.Deps, r.Name)
		}
		if r.Symbol.IsValid() {
			data.Refs = append(data.Refs, re)
		} else {
			data.Unresolved = append(data.Unresolved, re)
		}
	}
	return data
}

// IndexFile replaces everything known about the table's file. The old
// entries are fully removed before the new ones land, so readers never see
// a half-updated file. Dependent files' unresolved references are retried
// against the updated definitions, transitively.
func (ix *Index) IndexFile(path string, tab *sema.Table) {
	ix.IndexData(path, tab.File, DataFromTable(path, tab))
}

// IndexData inserts pre-flattened file data, typically from the disk
// cache. Same atomicity and re-resolution behavior as IndexFile.
func (ix *Index) IndexData(path string, id source.FileID, data FileData) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(id)
	// A re-added path gets a fresh FileID; evict the stale record too.
	for fid, rec := range ix.files {
		if rec.path == path {
			ix.removeLocked(fid)
		}
	}

	rec := &fileRecord{path: path}
	rec.packages = append(rec.packages, data.Packages...)

	for _, e := range data.Entries {
		e.File = id
		ix.addDefLocked(rec, e.Name, e)
		if e.Qualified != "" && e.Qualified != e.Name {
			ix.addDefLocked(rec, e.Qualified, e)
		}
	}
	for _, dep := range data.Deps {
		ix.addDepLocked(rec, id, dep)
	}
	for _, re := range data.Refs {
		re.File = id
		ix.addRefLocked(rec, re)
	}
	for _, re := range data.Unresolved {
		re.File = id
		if len(ix.defs[re.Name]) > 0 {
			ix.addRefLocked(rec, re)
		} else {
			rec.unresolved = append(rec.unresolved, re)
		}
	}

	ix.files[id] = rec
	ix.reresolveDependentsLocked(rec.packages)
}

// RemoveFile takes a file out of the index entirely.
func (ix *Index) RemoveFile(id source.FileID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

// FindDefinition returns the definitions recorded under a bare or
// qualified name.
func (ix *Index) FindDefinition(name string) []Entry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Entry, len(ix.defs[name]))
	copy(out, ix.defs[name])
	return out
}

// FindReferences returns the resolved references recorded under a name,
// across all indexed files.
func (ix *Index) FindReferences(name string) []RefEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]RefEntry, len(ix.refs[name]))
	copy(out, ix.refs[name])
	return out
}

// Unresolved returns the references of a file that no indexed definition
// matches yet.
func (ix *Index) Unresolved(id source.FileID) []RefEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec := ix.files[id]
	if rec == nil {
		return nil
	}
	out := make([]RefEntry, len(rec.unresolved))
	copy(out, rec.unresolved)
	return out
}

// WorkspaceSymbols returns definitions whose name contains the query,
// case-insensitively on NFC-normalized text, capped at limit. A context
// deadline or cancellation mid-scan yields the matches so far with
// Partial status.
func (ix *Index) WorkspaceSymbols(ctx context.Context, query string, limit int) ([]Entry, Status) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	folded := foldName(query)
	var out []Entry
	checked := 0
	for name, entries := range ix.defs {
		if checked%64 == 0 && ctx.Err() != nil {
			return out, Partial
		}
		checked++
		if folded != "" && !strings.Contains(foldName(name), folded) {
			continue
		}
		for _, e := range entries {
			// Each definition is keyed under bare and qualified name;
			// only report it once, from its primary key.
			if e.Qualified != "" && e.Qualified != e.Name && name == e.Qualified {
				continue
			}
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				return out, Complete
			}
		}
	}
	return out, Complete
}

// Dependents returns the files that use or require the given package.
func (ix *Index) Dependents(pkg string) []source.FileID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []source.FileID
	for id := range ix.dependents[pkg] {
		out = append(out, id)
	}
	return out
}

func (ix *Index) addDefLocked(rec *fileRecord, key string, e Entry) {
	ix.defs[key] = append(ix.defs[key], e)
	rec.defKeys = append(rec.defKeys, key)
}

func (ix *Index) addRefLocked(rec *fileRecord, re RefEntry) {
	ix.refs[re.Name] = append(ix.refs[re.Name], re)
	rec.refKeys = append(rec.refKeys, re.Name)
}

func (ix *Index) addDepLocked(rec *fileRecord, id source.FileID, pkg string) {
	rec.deps = append(rec.deps, pkg)
	set := ix.dependents[pkg]
	if set == nil {
		set = make(map[source.FileID]struct{})
		ix.dependents[pkg] = set
	}
	set[id] = struct{}{}
}

func (ix *Index) removeLocked(id source.FileID) {
	rec := ix.files[id]
	if rec == nil {
		return
	}
	for _, key := range rec.defKeys {
		ix.defs[key] = dropFile(ix.defs[key], id)
		if len(ix.defs[key]) == 0 {
			delete(ix.defs, key)
		}
	}
	for _, key := range rec.refKeys {
		ix.refs[key] = dropRefFile(ix.refs[key], id)
		if len(ix.refs[key]) == 0 {
			delete(ix.refs, key)
		}
	}
	for _, dep := range rec.deps {
		if set := ix.dependents[dep]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(ix.dependents, dep)
			}
		}
	}
	delete(ix.files, id)
}

// reresolveDependentsLocked retries the unresolved references of every
// file depending on one of the given packages, following dependency edges
// transitively.
func (ix *Index) reresolveDependentsLocked(pkgs []string) {
	seen := make(map[source.FileID]struct{})
	queue := append([]string(nil), pkgs...)
	for len(queue) > 0 {
		pkg := queue[0]
		queue = queue[1:]
		for id := range ix.dependents[pkg] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			rec := ix.files[id]
			if rec == nil {
				continue
			}
			var still []RefEntry
			for _, re := range rec.unresolved {
				if len(ix.defs[re.Name]) > 0 {
					ix.addRefLocked(rec, re)
				} else {
					still = append(still, re)
				}
			}
			rec.unresolved = still
			queue = append(queue, rec.packages...)
		}
	}
}

func dropFile(entries []Entry, id source.FileID) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if e.File != id {
			out = append(out, e)
		}
	}
	return out
}

func dropRefFile(entries []RefEntry, id source.FileID) []RefEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.File != id {
			out = append(out, e)
		}
	}
	return out
}

// qualifiedKey forms the package-qualified lookup key the way references
// spell it: sigil-first for variables, Pkg::name for subs.
func qualifiedKey(sym *sema.Symbol) string {
	if sym.Package == "" || sym.Kind == sema.SymbolPackage {
		return ""
	}
	name := sym.Name
	if len(name) > 0 {
		switch name[0] {
		case '$', '@', '%', '&', '*':
			return string(name[0]) + sym.Package + "::" + name[1:]
		}
	}
	return sym.Package + "::" + name
}

// foldName normalizes a name for case-insensitive matching.
func foldName(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
