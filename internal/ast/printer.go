package ast

import (
	"fmt"
	"strings"
)

// Sexp renders the subtree as an indented S-expression, the way tree-sitter
// CLIs dump trees. Leaf token text is omitted; spans identify the content.
func Sexp(t *Tree, id NodeID) string {
	var sb strings.Builder
	writeSexp(&sb, t, id, 0)
	return sb.String()
}

func writeSexp(sb *strings.Builder, t *Tree, id NodeID, depth int) {
	n := t.Node(id)
	if n == nil {
		return
	}
	if depth > 0 {
		sb.WriteByte('\n')
	}
	sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(sb, "(%s [%d, %d]", n.Kind, n.Span.Start, n.Span.End)

	fieldFor := make(map[uint32]FieldName, len(n.Fields))
	for _, fe := range n.Fields {
		fieldFor[fe.Child] = fe.Field
	}
	for i, childID := range n.Children {
		if f, ok := fieldFor[uint32(i)]; ok && f != FieldNone {
			sb.WriteByte('\n')
			sb.WriteString(strings.Repeat("  ", depth+1))
			sb.WriteString(f.String())
			sb.WriteString(":")
			writeSexpInline(sb, t, childID, depth+1)
			continue
		}
		writeSexp(sb, t, childID, depth+1)
	}
	sb.WriteByte(')')
}

func writeSexpInline(sb *strings.Builder, t *Tree, id NodeID, depth int) {
	n := t.Node(id)
	if n == nil {
		return
	}
	sb.WriteByte(' ')
	fmt.Fprintf(sb, "(%s [%d, %d]", n.Kind, n.Span.Start, n.Span.End)
	for _, childID := range n.Children {
		writeSexp(sb, t, childID, depth+1)
	}
	sb.WriteByte(')')
}
