// Package increment updates a parsed tree after text edits without
// re-parsing the whole file. Statements untouched by an edit are carried
// into the new tree: those before the damage keep their node IDs, those
// after are cloned with shifted spans. Only the damaged window is re-lexed
// and re-parsed.
package increment

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// Edit is one text replacement. Offsets are byte offsets: Start and OldEnd
// address the content before the edit, NewEnd addresses the content after
// it (the replacement occupies [Start, NewEnd) in the new text).
type Edit struct {
	Start  uint32
	OldEnd uint32
	NewEnd uint32
}

// Delta is the signed growth of the content once this edit and every
// edit before it in the batch have been applied. NewEnd already carries
// the prior edits' shift, so the subtraction telescopes: the batch's net
// delta is the last edit's Delta.
func (e Edit) Delta() int64 {
	return int64(e.NewEnd) - int64(e.OldEnd)
}

// ReuseStats reports how much of the new content was carried over from
// the old parse: statements reused by ID or by shift-clone, plus the
// window text outside the edited spans, whose tokens are byte for byte
// the old ones.
type ReuseStats struct {
	ReusedBytes uint32
	TotalBytes  uint32
	FullReparse bool
}

// Ratio returns reused bytes over total bytes, in [0, 1].
func (s ReuseStats) Ratio() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return float64(s.ReusedBytes) / float64(s.TotalBytes)
}

// Reparse produces a tree for file's current content given the previous
// parse of the same file and the edits that led from the old content
// (oldSize bytes) to the new one. The file must already hold the new
// content, under the same FileID the old tree was built against.
//
// Inconsistent edits (overlapping, out of order, or not adding up to the
// new length) never corrupt the tree: the engine falls back to a full
// reparse and records that in the stats.
func Reparse(old parser.Result, file *source.File, oldSize uint32, edits []Edit, opts parser.Options) (parser.Result, ReuseStats) {
	newSize64 := int64(len(file.Content))

	if old.Tree == nil || !old.Tree.Root.IsValid() || old.Tree.File != file.ID {
		return fullReparse(file, opts)
	}
	if !editsConsistent(edits, oldSize, newSize64) {
		return fullReparse(file, opts)
	}
	if len(edits) == 0 {
		// Nothing changed; the old tree is the new tree.
		total, _ := clampU32(newSize64)
		return old, ReuseStats{ReusedBytes: total, TotalBytes: total}
	}

	damageStart := edits[0].Start
	damageEnd := edits[len(edits)-1].OldEnd
	delta := edits[len(edits)-1].Delta()

	oldRoot := old.Tree.RootNode()
	b := ast.BuilderFor(old.Tree.Arena)

	var children []ast.NodeID
	var reused uint32

	// Statements strictly before the damage keep their IDs.
	i := 0
	for ; i < len(oldRoot.Children); i++ {
		n := old.Tree.Node(oldRoot.Children[i])
		if n.Span.End >= damageStart {
			break
		}
	}
	// A heredoc's body sits in the trivia gap after its statement; lexing
	// the window from inside that gap would read the body as code. Pull
	// such statements back into the window.
	for i > 0 && containsHeredoc(old.Tree, oldRoot.Children[i-1]) {
		i--
	}
	for k := 0; k < i; k++ {
		children = append(children, oldRoot.Children[k])
		reused += old.Tree.Node(oldRoot.Children[k]).Span.Len()
	}

	// Statements strictly after the damage shift by the net delta.
	j := len(oldRoot.Children)
	for ; j > i; j-- {
		n := old.Tree.Node(oldRoot.Children[j-1])
		if n.Span.Start <= damageEnd {
			break
		}
	}

	// The window between the kept prefix and suffix is re-parsed against
	// the new content.
	winStart := uint32(0)
	if i > 0 {
		winStart = old.Tree.Node(oldRoot.Children[i-1]).Span.End
	}
	winOldEnd := oldSize
	if j < len(oldRoot.Children) {
		winOldEnd = old.Tree.Node(oldRoot.Children[j]).Span.Start
	}
	winNewEnd64 := int64(winOldEnd) + delta
	winNewEnd, ok := clampU32(winNewEnd64)
	if !ok || winNewEnd < winStart || int64(winNewEnd) > newSize64 {
		return fullReparse(file, opts)
	}

	regionStmts, _ := parser.ParseRegion(file, b, winStart, winNewEnd, opts)
	children = append(children, regionStmts...)
	reused += windowUnchanged(edits, winStart, winOldEnd)

	for k := j; k < len(oldRoot.Children); k++ {
		srcID := oldRoot.Children[k]
		cloned := b.CloneShifted(old.Tree, srcID, delta)
		if !cloned.IsValid() {
			return fullReparse(file, opts)
		}
		children = append(children, cloned)
		reused += old.Tree.Node(srcID).Span.Len()
	}

	// An empty file parses to a root at the EOF position; match that.
	span := source.Span{File: file.ID, Start: uint32(newSize64), End: uint32(newSize64)}
	if len(children) > 0 {
		first := b.Arena().Get(uint32(children[0]))
		last := b.Arena().Get(uint32(children[len(children)-1]))
		span = source.Span{File: file.ID, Start: first.Span.Start, End: last.Span.End}
	}
	root := b.New(ast.KindSourceFile, span, children, nil)
	tree := &ast.Tree{Arena: b.Arena(), Root: root, File: file.ID}

	res := parser.Result{Tree: tree, Bag: bagOf(opts)}
	carryDiagnostics(old.Bag, res.Bag, winStart, winOldEnd, delta)

	total, _ := clampU32(newSize64)
	return res, ReuseStats{ReusedBytes: reused, TotalBytes: total}
}

func fullReparse(file *source.File, opts parser.Options) (parser.Result, ReuseStats) {
	res := parser.ParseFile(file, opts)
	total, _ := clampU32(int64(len(file.Content)))
	return res, ReuseStats{TotalBytes: total, FullReparse: true}
}

// editsConsistent checks that the batch is ascending, disjoint, within the
// old content, and adds up to the new content length.
func editsConsistent(edits []Edit, oldSize uint32, newSize int64) bool {
	var delta int64
	prevEnd := uint32(0)
	for idx, e := range edits {
		if e.Start > e.OldEnd {
			return false
		}
		if idx > 0 && e.Start < prevEnd {
			return false
		}
		if e.OldEnd > oldSize {
			return false
		}
		// The replacement's length in the new text must not be negative.
		if int64(e.NewEnd) < int64(e.Start)+delta {
			return false
		}
		prevEnd = e.OldEnd
		delta = e.Delta()
	}
	return int64(oldSize)+delta == newSize
}

// windowUnchanged counts the bytes of the re-parsed window (old
// coordinates) that no edit touched. The re-parse re-lexes them, but
// their text is unchanged, so they count toward reuse.
func windowUnchanged(edits []Edit, winStart, winOldEnd uint32) uint32 {
	if winOldEnd <= winStart {
		return 0
	}
	var changed uint32
	for _, e := range edits {
		lo := max(e.Start, winStart)
		hi := min(e.OldEnd, winOldEnd)
		if hi > lo {
			changed += hi - lo
		}
	}
	span := winOldEnd - winStart
	if changed >= span {
		return 0
	}
	return span - changed
}

// carryDiagnostics copies old diagnostics that lie fully outside the
// re-parsed window, shifting the ones after it. Diagnostics inside the
// window are regenerated by the region parse.
func carryDiagnostics(oldBag, newBag *diag.Bag, winStart, winOldEnd uint32, delta int64) {
	if oldBag == nil || newBag == nil {
		return
	}
	for _, d := range oldBag.Items() {
		switch {
		case d.Primary.End <= winStart:
			newBag.Add(d)
		case d.Primary.Start >= winOldEnd:
			d.Primary = d.Primary.Shift(delta)
			if len(d.Notes) > 0 {
				notes := make([]diag.Note, len(d.Notes))
				for i, n := range d.Notes {
					if n.Span.Start >= winOldEnd {
						n.Span = n.Span.Shift(delta)
					}
					notes[i] = n
				}
				d.Notes = notes
			}
			newBag.Add(d)
		}
	}
	newBag.Sort()
}

func bagOf(opts parser.Options) *diag.Bag {
	if br, ok := opts.Reporter.(diag.BagReporter); ok {
		return br.Bag
	}
	return nil
}

func containsHeredoc(t *ast.Tree, id ast.NodeID) bool {
	found := false
	t.Walk(id, func(_ ast.NodeID, n *ast.Node) bool {
		if n.Kind == ast.KindHeredoc {
			found = true
			return false
		}
		return !found
	})
	return found
}

func clampU32(v int64) (uint32, bool) {
	if v < 0 || v > int64(^uint32(0)) {
		return 0, false
	}
	return uint32(v), true
}
