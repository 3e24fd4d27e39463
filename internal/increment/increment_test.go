package increment_test

import (
	"strings"
	"testing"

	"kr.dev/diff"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/increment"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// replacement describes one edit in source terms for the tests.
type replacement struct {
	start  uint32
	oldEnd uint32
	text   string
}

// applyEdits produces the new content plus the Edit batch (ascending, with
// NewEnd already in post-edit coordinates).
func applyEdits(old string, reps []replacement) (string, []increment.Edit) {
	var sb strings.Builder
	var edits []increment.Edit
	prev := uint32(0)
	var delta int64
	for _, r := range reps {
		sb.WriteString(old[prev:r.start])
		sb.WriteString(r.text)
		newStart := int64(r.start) + delta
		newEnd := newStart + int64(len(r.text))
		edits = append(edits, increment.Edit{
			Start:  r.start,
			OldEnd: r.oldEnd,
			NewEnd: uint32(newEnd),
		})
		delta += int64(len(r.text)) - int64(r.oldEnd-r.start)
		prev = r.oldEnd
	}
	sb.WriteString(old[prev:])
	return sb.String(), edits
}

func parseFresh(t *testing.T, content string) parser.Result {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("fresh.pl", []byte(content)))
	bag := diag.NewBag(64)
	return parser.ParseFile(file, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
}

// reparse runs the old parse, applies the edits, and reparses
// incrementally, verifying the result against a from-scratch parse.
func reparse(t *testing.T, oldContent string, reps []replacement) (parser.Result, increment.ReuseStats, parser.Result) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.pl", []byte(oldContent))
	file := fs.Get(id)

	oldBag := diag.NewBag(64)
	oldRes := parser.ParseFile(file, parser.Options{Reporter: diag.BagReporter{Bag: oldBag}})

	newContent, edits := applyEdits(oldContent, reps)
	file = fs.Replace(id, []byte(newContent))

	newBag := diag.NewBag(64)
	res, stats := increment.Reparse(oldRes, file, uint32(len(oldContent)), edits,
		parser.Options{Reporter: diag.BagReporter{Bag: newBag}})

	if err := ast.Validate(res.Tree, res.Tree.Root); err != nil {
		t.Fatalf("incremental tree invalid: %v\n%s", err, ast.Sexp(res.Tree, res.Tree.Root))
	}
	fresh := parseFresh(t, newContent)
	if !ast.StructurallyEqual(res.Tree, fresh.Tree) {
		t.Errorf("incremental tree differs from full parse")
		diff.Test(t, t.Errorf, ast.Sexp(res.Tree, res.Tree.Root), ast.Sexp(fresh.Tree, fresh.Tree.Root))
	}
	return oldRes, stats, res
}

const threeSubs = `sub alpha {
  my $a = 1;
  return $a + 1;
}

sub beta {
  my $b = 2;
  return $b * 2;
}

sub gamma {
  my $c = 3;
  return $c - 1;
}
`

func TestReparseEditInsideOneSub(t *testing.T) {
	off := uint32(strings.Index(threeSubs, "$b * 2"))
	_, stats, _ := reparse(t, threeSubs, []replacement{{off, off + 6, "$b * 20"}})
	if stats.FullReparse {
		t.Fatalf("localized edit should not force a full reparse")
	}
	if stats.Ratio() < 0.5 {
		t.Fatalf("reuse ratio %.2f too low for a one-sub edit", stats.Ratio())
	}
}

func TestReparsePrefixKeepsNodeIDs(t *testing.T) {
	off := uint32(strings.Index(threeSubs, "$b = 2"))
	oldRes, _, newRes := reparse(t, threeSubs, []replacement{{off, off + 6, "$b = 7"}})

	oldFirst := oldRes.Tree.RootNode().Children[0]
	newFirst := newRes.Tree.RootNode().Children[0]
	if oldFirst != newFirst {
		t.Fatalf("first sub was not reused by ID: old %d, new %d", oldFirst, newFirst)
	}
}

func TestReparseSuffixShifted(t *testing.T) {
	off := uint32(strings.Index(threeSubs, "2;"))
	oldRes, _, newRes := reparse(t, threeSubs, []replacement{{off, off + 1, "2000"}})

	oldStmts := oldRes.Tree.RootNode().Children
	newStmts := newRes.Tree.RootNode().Children
	if len(newStmts) != len(oldStmts) {
		t.Fatalf("statement count changed: %d -> %d", len(oldStmts), len(newStmts))
	}
	oldGamma := oldRes.Tree.Node(oldStmts[len(oldStmts)-1])
	newGamma := newRes.Tree.Node(newStmts[len(newStmts)-1])
	if newGamma.Kind != ast.KindSubroutineDeclaration {
		t.Fatalf("last statement is %v, want a sub", newGamma.Kind)
	}
	if newGamma.Span.Start != oldGamma.Span.Start+3 {
		t.Fatalf("suffix span start %d, want %d shifted by 3", newGamma.Span.Start, oldGamma.Span.Start+3)
	}
}

func TestReparseMultipleEditsAscending(t *testing.T) {
	a := uint32(strings.Index(threeSubs, "1;"))
	c := uint32(strings.Index(threeSubs, "3;"))
	_, stats, _ := reparse(t, threeSubs, []replacement{
		{a, a + 1, "100"},
		{c, c + 1, "300"},
	})
	if stats.FullReparse {
		t.Fatalf("consistent batch should reparse incrementally")
	}
}

func TestReparseBatchShrinkAndGrow(t *testing.T) {
	a := uint32(strings.Index(threeSubs, "1;"))
	g := uint32(strings.Index(threeSubs, "$c - 1"))
	_, stats, _ := reparse(t, threeSubs, []replacement{
		{a, a + 1, "12345"},
		{g, g + 6, "$c"},
	})
	if stats.FullReparse {
		t.Fatalf("mixed-delta batch should reparse incrementally")
	}
}

func TestReparseInsertInsideOnlyStatement(t *testing.T) {
	_, stats, _ := reparse(t, "my $x = 1;", []replacement{{3, 3, "y"}})
	if stats.FullReparse {
		t.Fatalf("one-byte insert should not force a full reparse")
	}
	if stats.Ratio() <= 0 {
		t.Fatalf("ratio is %v, want > 0 when the trailing text is untouched", stats.Ratio())
	}
}

func TestReparseInsertStatementAtBoundary(t *testing.T) {
	off := uint32(strings.Index(threeSubs, "sub gamma"))
	reparse(t, threeSubs, []replacement{{off, off, "sub delta { 4; }\n\n"}})
}

func TestReparseDeleteWholeSub(t *testing.T) {
	start := uint32(strings.Index(threeSubs, "sub beta"))
	end := uint32(strings.Index(threeSubs, "sub gamma"))
	reparse(t, threeSubs, []replacement{{start, end, ""}})
}

func TestReparseAfterHeredoc(t *testing.T) {
	src := "print <<EOT;\nsome body text\nEOT\nmy $x = 1;\nmy $y = 2;\n"
	off := uint32(strings.Index(src, "$y = 2"))
	reparse(t, src, []replacement{{off, off + 6, "$y = 9"}})
}

func TestReparseNoEdits(t *testing.T) {
	_, stats, _ := reparse(t, threeSubs, nil)
	if stats.FullReparse {
		t.Fatalf("no edits should not trigger a full reparse")
	}
	if stats.Ratio() != 1 {
		t.Fatalf("ratio is %v, want 1 for an unchanged file", stats.Ratio())
	}
}

func TestReparseInconsistentEditsFallBack(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.pl", []byte(threeSubs))
	file := fs.Get(id)
	oldRes := parser.ParseFile(file, parser.Options{Reporter: diag.NopReporter{}})

	newContent := strings.Replace(threeSubs, "beta", "betb", 1)
	file = fs.Replace(id, []byte(newContent))

	cases := map[string][]increment.Edit{
		"reversed range": {{Start: 30, OldEnd: 20, NewEnd: 34}},
		"past old end":   {{Start: 10, OldEnd: 100000, NewEnd: 14}},
		"out of order":   {{Start: 40, OldEnd: 44, NewEnd: 44}, {Start: 10, OldEnd: 14, NewEnd: 14}},
		"bad delta":      {{Start: 10, OldEnd: 14, NewEnd: 20}},
	}
	for name, edits := range cases {
		res, stats := increment.Reparse(oldRes, file, uint32(len(threeSubs)), edits,
			parser.Options{Reporter: diag.NopReporter{}})
		if !stats.FullReparse {
			t.Fatalf("%s: expected fallback to full reparse", name)
		}
		fresh := parseFresh(t, newContent)
		if !ast.StructurallyEqual(res.Tree, fresh.Tree) {
			t.Fatalf("%s: fallback tree differs from full parse", name)
		}
	}
}

func TestReparseEditAtVeryStart(t *testing.T) {
	reparse(t, threeSubs, []replacement{{0, 0, "use strict;\n"}})
}

func TestReparseEditAtVeryEnd(t *testing.T) {
	end := uint32(len(threeSubs))
	reparse(t, threeSubs, []replacement{{end, end, "sub omega { 9; }\n"}})
}

func TestReparseCarriesOldDiagnostics(t *testing.T) {
	src := "my $broken = ;\nmy $x = 1;\nmy $y = 2;\n"
	fs := source.NewFileSet()
	id := fs.AddVirtual("doc.pl", []byte(src))
	file := fs.Get(id)
	oldBag := diag.NewBag(64)
	oldRes := parser.ParseFile(file, parser.Options{Reporter: diag.BagReporter{Bag: oldBag}})
	if oldBag.Len() == 0 {
		t.Fatalf("expected a diagnostic in the original parse")
	}

	// Edit the last statement, far from the error.
	off := uint32(strings.Index(src, "$y = 2"))
	newContent, edits := applyEdits(src, []replacement{{off, off + 6, "$y = 3"}})
	file = fs.Replace(id, []byte(newContent))

	newBag := diag.NewBag(64)
	res, stats := increment.Reparse(oldRes, file, uint32(len(src)), edits,
		parser.Options{Reporter: diag.BagReporter{Bag: newBag}})
	if stats.FullReparse {
		t.Fatalf("unexpected full reparse")
	}
	if res.Bag.Len() == 0 {
		t.Fatalf("diagnostic outside the edited window was dropped")
	}
}
