package sema

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// SymbolKind classifies what a name denotes.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolScalar
	SymbolArray
	SymbolHash
	SymbolSub
	SymbolPackage
	SymbolLabel
	SymbolGlob
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolScalar:
		return "scalar"
	case SymbolArray:
		return "array"
	case SymbolHash:
		return "hash"
	case SymbolSub:
		return "sub"
	case SymbolPackage:
		return "package"
	case SymbolLabel:
		return "label"
	case SymbolGlob:
		return "glob"
	default:
		return "invalid"
	}
}

// SymbolFlags encode declaration attributes for quick checks.
type SymbolFlags uint16

const (
	SymbolFlagOur SymbolFlags = 1 << iota
	SymbolFlagLocal
	SymbolFlagState
	SymbolFlagBuiltin
	SymbolFlagUsed
)

// Symbol is one declared name. Name keeps the sigil for variables
// ("$count", "@items", "%opts"); subs and packages carry the bare name,
// with Package holding the owning package for qualification.
type Symbol struct {
	Name    string
	Kind    SymbolKind
	Scope   ScopeID
	Decl    source.Span
	Package string
	Flags   SymbolFlags
}

// Qualified returns Package::Name for package-visible symbols and "" for
// lexicals, which have no qualified form.
func (sym *Symbol) Qualified() string {
	if sym.Package == "" {
		return ""
	}
	return sym.Package + "::" + sym.Name
}

// IsLexical reports whether the symbol is a my/state variable, invisible
// outside its lexical scope.
func (sym *Symbol) IsLexical() bool {
	return sym.Kind != SymbolSub && sym.Kind != SymbolPackage &&
		sym.Kind != SymbolLabel &&
		sym.Flags&(SymbolFlagOur|SymbolFlagBuiltin) == 0
}

// Symbols stores declared symbols in a compact arena.
type Symbols struct {
	data []Symbol
}

// NewSymbols creates a symbol arena with an optional capacity hint.
func NewSymbols(capacity uint32) *Symbols {
	if capacity == 0 {
		capacity = 64
	}
	return &Symbols{
		data: make([]Symbol, 1, capacity+1), // index 0 reserved for NoSymbolID
	}
}

// New allocates a symbol in the arena and returns its ID.
func (s *Symbols) New(sym Symbol) SymbolID {
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("symbol arena overflow: %w", err))
	}
	id := SymbolID(value)
	s.data = append(s.data, sym)
	return id
}

// Get returns a symbol pointer or nil for an invalid ID.
func (s *Symbols) Get(id SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the number of stored symbols excluding the sentinel.
func (s *Symbols) Len() int { return len(s.data) - 1 }

// Data exposes the arena storage without the sentinel.
func (s *Symbols) Data() []Symbol {
	if len(s.data) <= 1 {
		return nil
	}
	return s.data[1:]
}
