package ast

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// NodeID addresses a node within an arena; 0 is "no node".
type NodeID uint32

const NoNodeID NodeID = 0

func (id NodeID) IsValid() bool { return id != NoNodeID }

// Node is one immutable syntax tree node. Children are ordered by byte
// position; their spans are disjoint and contained in the parent span.
// Leaf nodes additionally record the token kind they were built from.
type Node struct {
	Kind     NodeKind
	Span     source.Span
	Children []NodeID
	Fields   []FieldEntry
	Token    token.Kind
}

// Tree is a root into a node arena plus the file the spans refer to.
// Several trees may share one arena; an incremental reparse reuses old
// node IDs for unaffected subtrees.
type Tree struct {
	Arena *Arena[Node]
	Root  NodeID
	File  source.FileID
}

// Node resolves an ID, or nil.
func (t *Tree) Node(id NodeID) *Node {
	return t.Arena.Get(uint32(id))
}

// RootNode returns the root node, or nil for an empty tree.
func (t *Tree) RootNode() *Node {
	return t.Node(t.Root)
}

// ChildByField returns the child tagged with field, or NoNodeID.
func (t *Tree) ChildByField(id NodeID, field FieldName) NodeID {
	n := t.Node(id)
	if n == nil {
		return NoNodeID
	}
	for _, fe := range n.Fields {
		if fe.Field == field {
			return n.Children[fe.Child]
		}
	}
	return NoNodeID
}

// ChildrenByField returns every child tagged with field, in order.
func (t *Tree) ChildrenByField(id NodeID, field FieldName) []NodeID {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	var out []NodeID
	for _, fe := range n.Fields {
		if fe.Field == field {
			out = append(out, n.Children[fe.Child])
		}
	}
	return out
}

// NodeAt descends from the root to the smallest node whose span contains
// the byte offset. Returns NoNodeID when the offset is outside the root.
func (t *Tree) NodeAt(off uint32) NodeID {
	id := t.Root
	n := t.Node(id)
	if n == nil || !n.Span.Contains(off) {
		return NoNodeID
	}
	for {
		descended := false
		for _, childID := range t.Node(id).Children {
			if t.Node(childID).Span.Contains(off) {
				id = childID
				descended = true
				break
			}
		}
		if !descended {
			return id
		}
	}
}

// Walk visits id and all descendants in depth-first pre-order. The visitor
// returns false to prune the subtree.
func (t *Tree) Walk(id NodeID, visit func(NodeID, *Node) bool) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if !visit(id, n) {
		return
	}
	for _, childID := range n.Children {
		t.Walk(childID, visit)
	}
}

// Leaves appends the IDs of all leaf nodes under id, in byte order.
func (t *Tree) Leaves(id NodeID, out []NodeID) []NodeID {
	t.Walk(id, func(nid NodeID, n *Node) bool {
		if len(n.Children) == 0 {
			out = append(out, nid)
		}
		return true
	})
	return out
}

// Render reconstructs the source text covered by the tree from the file's
// content: leaf spans plus the gaps (trivia) between them.
func (t *Tree) Render(content []byte) string {
	root := t.RootNode()
	if root == nil {
		return ""
	}
	return string(content[root.Span.Start:root.Span.End])
}

// StructurallyEqual reports whether two trees have the same shape: node
// kinds, spans, field tags, and child structure all match. Used to verify
// that an incremental reparse produced the same tree a full parse would.
func StructurallyEqual(a *Tree, b *Tree) bool {
	return nodesEqual(a, a.Root, b, b.Root)
}

func nodesEqual(ta *Tree, ia NodeID, tb *Tree, ib NodeID) bool {
	na, nb := ta.Node(ia), tb.Node(ib)
	if (na == nil) != (nb == nil) {
		return false
	}
	if na == nil {
		return true
	}
	if na.Kind != nb.Kind || na.Token != nb.Token {
		return false
	}
	if na.Span.Start != nb.Span.Start || na.Span.End != nb.Span.End {
		return false
	}
	if len(na.Children) != len(nb.Children) || len(na.Fields) != len(nb.Fields) {
		return false
	}
	for i := range na.Fields {
		if na.Fields[i] != nb.Fields[i] {
			return false
		}
	}
	for i := range na.Children {
		if !nodesEqual(ta, na.Children[i], tb, nb.Children[i]) {
			return false
		}
	}
	return true
}
