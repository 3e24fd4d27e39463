package sema

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// ScopeKind enumerates the scope categories the analyzer distinguishes.
type ScopeKind uint8

const (
	ScopeInvalid ScopeKind = iota
	ScopeFile              // root scope of a parsed file
	ScopePackage           // package Foo; or package Foo { }
	ScopeSub               // named or anonymous subroutine body
	ScopeBlock             // bare block, loop body, conditional arm
	ScopeEval              // eval { } body
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeFile:
		return "file"
	case ScopePackage:
		return "package"
	case ScopeSub:
		return "sub"
	case ScopeBlock:
		return "block"
	case ScopeEval:
		return "eval"
	default:
		return "invalid"
	}
}

// Scope models one lexical scope. Package scopes additionally carry the
// package name so qualified symbols can be formed.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Span      source.Span
	Package   string
	NameIndex map[string][]SymbolID
	Symbols   []SymbolID
	Children  []ScopeID
}

// Scopes stores all allocated scopes in a compact slice-based arena.
type Scopes struct {
	data []Scope
}

// NewScopes creates an arena with an optional capacity hint.
func NewScopes(capacity uint32) *Scopes {
	if capacity == 0 {
		capacity = 32
	}
	return &Scopes{
		data: make([]Scope, 1, capacity+1), // index 0 reserved for NoScopeID
	}
}

// New allocates a scope and links it into its parent.
func (s *Scopes) New(kind ScopeKind, parent ScopeID, span source.Span, pkg string) ScopeID {
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	id := ScopeID(value)
	s.data = append(s.data, Scope{
		Kind:      kind,
		Parent:    parent,
		Span:      span,
		Package:   pkg,
		NameIndex: make(map[string][]SymbolID),
	})
	if parent.IsValid() {
		if parentScope := s.Get(parent); parentScope != nil {
			parentScope.Children = append(parentScope.Children, id)
		}
	}
	return id
}

// Get returns the scope pointer or nil for an invalid ID.
func (s *Scopes) Get(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the number of scopes excluding the sentinel.
func (s *Scopes) Len() int { return len(s.data) - 1 }
