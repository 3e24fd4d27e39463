package ast

import (
	"fmt"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// Hints provide optional capacity suggestions for the node arena.
type Hints struct{ Nodes uint }

// Builder allocates nodes into an arena. One builder may serve many tree
// versions of the same file; nodes are never mutated after allocation.
type Builder struct {
	arena *Arena[Node]
}

func NewBuilder(h Hints) *Builder {
	capHint := h.Nodes
	if capHint == 0 {
		capHint = 256
	}
	return &Builder{arena: NewArena[Node](capHint)}
}

// BuilderFor returns a builder that allocates into an existing arena, so a
// new tree version can share node IDs with trees already built there.
func BuilderFor(a *Arena[Node]) *Builder {
	return &Builder{arena: a}
}

// Arena exposes the builder's arena for Tree construction.
func (b *Builder) Arena() *Arena[Node] {
	return b.arena
}

// Leaf allocates a leaf node for a token.
func (b *Builder) Leaf(kind NodeKind, tok token.Token) NodeID {
	return NodeID(b.arena.Allocate(Node{
		Kind:  kind,
		Span:  tok.Span,
		Token: tok.Kind,
	}))
}

// New allocates an interior node. The span covers all children; passing an
// empty span derives it from the children.
func (b *Builder) New(kind NodeKind, span source.Span, children []NodeID, fields []FieldEntry) NodeID {
	if span.Empty() && len(children) > 0 {
		first := b.arena.Get(uint32(children[0]))
		last := b.arena.Get(uint32(children[len(children)-1]))
		span = source.Span{File: first.Span.File, Start: first.Span.Start, End: last.Span.End}
	}
	return NodeID(b.arena.Allocate(Node{
		Kind:     kind,
		Span:     span,
		Children: children,
		Fields:   fields,
	}))
}

// CloneShifted deep-copies the subtree at id from src, shifting every span
// by delta bytes. The copy allocates into this builder's arena; the source
// nodes are left untouched. Used by the incremental engine for subtrees
// that sit after an edit: the structure is reused verbatim, only positions
// move.
func (b *Builder) CloneShifted(src *Tree, id NodeID, delta int64) NodeID {
	n := src.Node(id)
	if n == nil {
		return NoNodeID
	}
	if delta == 0 && src.Arena == b.arena {
		// Same arena and no movement: the old node is the new node.
		return id
	}
	children := make([]NodeID, len(n.Children))
	for i, childID := range n.Children {
		children[i] = b.CloneShifted(src, childID, delta)
	}
	var fields []FieldEntry
	if len(n.Fields) > 0 {
		fields = make([]FieldEntry, len(n.Fields))
		copy(fields, n.Fields)
	}
	return NodeID(b.arena.Allocate(Node{
		Kind:     n.Kind,
		Span:     n.Span.Shift(delta),
		Children: children,
		Fields:   fields,
		Token:    n.Token,
	}))
}

// Validate checks the tree invariants below id: child spans are ordered,
// disjoint, and contained in their parent's span.
func Validate(t *Tree, id NodeID) error {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	prevEnd := n.Span.Start
	for i, childID := range n.Children {
		c := t.Node(childID)
		if c == nil {
			return fmt.Errorf("%s: child %d is nil", n.Kind, i)
		}
		if c.Span.Start < prevEnd {
			return fmt.Errorf("%s: child %d (%s) overlaps previous sibling", n.Kind, i, c.Kind)
		}
		if c.Span.End > n.Span.End {
			return fmt.Errorf("%s: child %d (%s) escapes parent span", n.Kind, i, c.Kind)
		}
		prevEnd = c.Span.End
		if err := Validate(t, childID); err != nil {
			return err
		}
	}
	for _, fe := range n.Fields {
		if int(fe.Child) >= len(n.Children) {
			return fmt.Errorf("%s: field %s points past children", n.Kind, fe.Field)
		}
	}
	return nil
}
