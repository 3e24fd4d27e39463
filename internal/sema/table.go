package sema

import (
	"sort"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// RefKind distinguishes what kind of name a reference uses.
type RefKind uint8

const (
	RefVariable RefKind = iota
	RefSub
	RefPackage
	RefLabel
)

// Reference records one use of a name. Symbol is NoSymbolID when the use
// did not resolve to any declaration; such references are kept so later
// cross-file indexing can pick them up.
type Reference struct {
	Name   string
	Kind   RefKind
	Span   source.Span
	Scope  ScopeID
	Symbol SymbolID
	// Captured marks a use inside a nested sub that resolved to a
	// lexical declared outside that sub.
	Captured bool
}

// Table is the per-file result of semantic analysis: the scope tree, the
// declared symbols, and every recorded reference.
type Table struct {
	File     source.FileID
	Scopes   *Scopes
	Symbols  *Symbols
	FileRoot ScopeID
	Refs     []Reference

	// Packages lists the package names declared in the file, in order.
	Packages []string

	builtins map[string]SymbolID
}

// NewTable builds an empty table for a file.
func NewTable(file source.FileID) *Table {
	t := &Table{
		File:     file,
		Scopes:   NewScopes(0),
		Symbols:  NewSymbols(0),
		builtins: make(map[string]SymbolID),
	}
	return t
}

// Builtin returns (allocating on first use) the pseudo-symbol for a
// built-in name.
func (t *Table) Builtin(name string, kind SymbolKind) SymbolID {
	if id, ok := t.builtins[name]; ok {
		return id
	}
	id := t.Symbols.New(Symbol{
		Name:  name,
		Kind:  kind,
		Scope: t.FileRoot,
		Flags: SymbolFlagBuiltin | SymbolFlagUsed,
	})
	t.builtins[name] = id
	return id
}

// Declare adds a symbol to a scope and indexes it by name.
func (t *Table) Declare(scope ScopeID, sym Symbol) SymbolID {
	sym.Scope = scope
	id := t.Symbols.New(sym)
	if sc := t.Scopes.Get(scope); sc != nil {
		sc.Symbols = append(sc.Symbols, id)
		sc.NameIndex[sym.Name] = append(sc.NameIndex[sym.Name], id)
	}
	return id
}

// LookupIn finds the latest declaration of name in the given scope only.
// Positional visibility: only declarations starting before the given
// offset count, so `my $x = $x` sees the outer $x on the right-hand side.
func (t *Table) LookupIn(scope ScopeID, name string, before uint32) SymbolID {
	sc := t.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID
	}
	ids := sc.NameIndex[name]
	for i := len(ids) - 1; i >= 0; i-- {
		sym := t.Symbols.Get(ids[i])
		if sym == nil {
			continue
		}
		if sym.Decl.Start < before || sym.Flags&SymbolFlagBuiltin != 0 {
			return ids[i]
		}
	}
	return NoSymbolID
}

// Lookup resolves name starting at scope and walking parents. It reports
// the symbol and whether the walk crossed a sub boundary after finding it
// in an outer scope (the closure-capture condition).
func (t *Table) Lookup(scope ScopeID, name string, before uint32) (SymbolID, bool) {
	crossedSub := false
	for id := scope; id.IsValid(); {
		if found := t.LookupIn(id, name, before); found.IsValid() {
			sym := t.Symbols.Get(found)
			captured := crossedSub && sym.IsLexical()
			return found, captured
		}
		sc := t.Scopes.Get(id)
		if sc == nil {
			break
		}
		if sc.Kind == ScopeSub {
			crossedSub = true
		}
		id = sc.Parent
	}
	return NoSymbolID, false
}

// ScopeAt returns the innermost scope whose span contains the offset,
// falling back to the file root.
func (t *Table) ScopeAt(off uint32) ScopeID {
	best := t.FileRoot
	var walk func(id ScopeID)
	walk = func(id ScopeID) {
		sc := t.Scopes.Get(id)
		if sc == nil || !sc.Span.Contains(off) {
			return
		}
		best = id
		for _, child := range sc.Children {
			walk(child)
		}
	}
	walk(t.FileRoot)
	return best
}

// SymbolAt returns the symbol declared or referenced at the offset.
func (t *Table) SymbolAt(off uint32) SymbolID {
	for i := range t.Refs {
		if t.Refs[i].Span.Contains(off) && t.Refs[i].Symbol.IsValid() {
			return t.Refs[i].Symbol
		}
	}
	for id := SymbolID(1); int(id) <= t.Symbols.Len(); id++ {
		if t.Symbols.Get(id).Decl.Contains(off) {
			return id
		}
	}
	return NoSymbolID
}

// DefinitionAt resolves the offset to the declaration site of whatever
// name sits there.
func (t *Table) DefinitionAt(off uint32) (source.Span, bool) {
	id := t.SymbolAt(off)
	sym := t.Symbols.Get(id)
	if sym == nil || sym.Flags&SymbolFlagBuiltin != 0 && sym.Decl.Empty() {
		return source.Span{}, false
	}
	return sym.Decl, true
}

// ReferencesTo returns every recorded reference that resolved to the
// symbol, in byte order.
func (t *Table) ReferencesTo(id SymbolID) []Reference {
	var out []Reference
	for i := range t.Refs {
		if t.Refs[i].Symbol == id {
			out = append(out, t.Refs[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out
}

// DocumentSymbols returns the outline view: packages, subs, and file- or
// package-level variables, in declaration order.
func (t *Table) DocumentSymbols() []SymbolID {
	var out []SymbolID
	for id := SymbolID(1); int(id) <= t.Symbols.Len(); id++ {
		sym := t.Symbols.Get(id)
		if sym.Flags&SymbolFlagBuiltin != 0 {
			continue
		}
		switch sym.Kind {
		case SymbolPackage, SymbolSub:
			out = append(out, id)
		default:
			sc := t.Scopes.Get(sym.Scope)
			if sc != nil && (sc.Kind == ScopeFile || sc.Kind == ScopePackage) {
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return t.Symbols.Get(out[i]).Decl.Start < t.Symbols.Get(out[j]).Decl.Start
	})
	return out
}

// UnresolvedRefs returns the references that did not resolve in-file,
// which the workspace index retries cross-file.
func (t *Table) UnresolvedRefs() []Reference {
	var out []Reference
	for i := range t.Refs {
		if !t.Refs[i].Symbol.IsValid() {
			out = append(out, t.Refs[i])
		}
	}
	return out
}
