package workspace_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/dcache"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/project"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/workspace"
)

const docV1 = `sub alpha {
    my $a = 1;
    return $a;
}

sub beta {
    my $b = 2;
    return $b;
}

sub gamma {
    my $c = 3;
    return $c;
}
`

func newWorkspace() *workspace.Workspace {
	return workspace.New(nil, nil)
}

func TestOpenComputesVersionedDiagnostics(t *testing.T) {
	w := newWorkspace()
	if err := w.Open("main.pl", 1, []byte("my $x = 1\nmy $y = 2;\nprint $y;\n")); err != nil {
		t.Fatalf("open: %v", err)
	}

	d, ok := w.Diagnostics("main.pl")
	if !ok {
		t.Fatalf("no diagnostics for open document")
	}
	if d.Version != 1 {
		t.Fatalf("diagnostics tagged version %d, want 1", d.Version)
	}
	foundSyntax, foundUnused := false, false
	for _, item := range d.Items {
		switch item.Code {
		case diag.SynExpectSemicolon:
			foundSyntax = true
		case diag.SemUnusedLexical:
			foundUnused = true
		}
	}
	if !foundSyntax {
		t.Fatalf("missing semicolon not diagnosed: %v", d.Items)
	}
	if !foundUnused {
		t.Fatalf("unused $x not diagnosed: %v", d.Items)
	}
}

func TestChangeAppliesIncrementally(t *testing.T) {
	w := newWorkspace()
	if err := w.Open("doc.pl", 1, []byte(docV1)); err != nil {
		t.Fatalf("open: %v", err)
	}

	// Rename the literal inside beta: "2" -> "22".
	off := uint32(strings.Index(docV1, "my $b = ") + len("my $b = "))
	err := w.Change("doc.pl", 2, []workspace.TextEdit{{Start: off, OldEnd: off + 1, Text: "22"}})
	if err != nil {
		t.Fatalf("change: %v", err)
	}

	d, _ := w.Diagnostics("doc.pl")
	if d.Version != 2 {
		t.Fatalf("diagnostics version %d after change, want 2", d.Version)
	}
	stats, _ := w.ReuseStats("doc.pl")
	if stats.FullReparse {
		t.Fatalf("small edit caused a full reparse")
	}
	if stats.Ratio() < 0.3 {
		t.Fatalf("reuse ratio %f too low", stats.Ratio())
	}

	file, _ := w.File("doc.pl")
	if want := "my $b = 22;"; !strings.Contains(string(file.Content), want) {
		t.Fatalf("edit not applied; content:\n%s", file.Content)
	}
}

func TestStaleVersionDropped(t *testing.T) {
	w := newWorkspace()
	if err := w.Open("doc.pl", 3, []byte("my $x = 1;\nprint $x;\n")); err != nil {
		t.Fatalf("open: %v", err)
	}

	err := w.Change("doc.pl", 3, []workspace.TextEdit{{Start: 0, OldEnd: 0, Text: "# c\n"}})
	if !errors.Is(err, workspace.ErrStaleVersion) {
		t.Fatalf("err = %v, want ErrStaleVersion", err)
	}

	// The stale edit left content and diagnostics untouched.
	file, _ := w.File("doc.pl")
	if string(file.Content) != "my $x = 1;\nprint $x;\n" {
		t.Fatalf("stale edit mutated content: %q", file.Content)
	}
	d, _ := w.Diagnostics("doc.pl")
	if d.Version != 3 {
		t.Fatalf("diagnostics version %d, want 3", d.Version)
	}
}

func TestChangeUnknownDocument(t *testing.T) {
	w := newWorkspace()
	err := w.Change("ghost.pl", 1, nil)
	if !errors.Is(err, workspace.ErrUnknownDocument) {
		t.Fatalf("err = %v, want ErrUnknownDocument", err)
	}
}

func TestReopenIsFullResync(t *testing.T) {
	w := newWorkspace()
	if err := w.Open("doc.pl", 1, []byte("my $x = 1;\nprint $x;\n")); err != nil {
		t.Fatalf("open: %v", err)
	}
	f1, _ := w.File("doc.pl")

	if err := w.Open("doc.pl", 5, []byte("my $fresh = 9;\nprint $fresh;\n")); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	f2, _ := w.File("doc.pl")
	if f1.ID != f2.ID {
		t.Fatalf("reopen changed file identity: %d -> %d", f1.ID, f2.ID)
	}
	if v, _ := w.Version("doc.pl"); v != 5 {
		t.Fatalf("version %d after reopen, want 5", v)
	}

	tab, _ := w.Table("doc.pl")
	if len(tab.UnresolvedRefs()) != 0 {
		t.Fatalf("stale analysis after reopen")
	}
	if string(f2.Content) != "my $fresh = 9;\nprint $fresh;\n" {
		t.Fatalf("reopen did not replace content")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	w := newWorkspace()
	w.Close("never-opened.pl")

	if err := w.Open("doc.pl", 1, []byte("print 1;\n")); err != nil {
		t.Fatalf("open: %v", err)
	}
	w.Close("doc.pl")
	w.Close("doc.pl")
	if _, ok := w.Diagnostics("doc.pl"); ok {
		t.Fatalf("closed document still tracked")
	}
}

func TestBadEditRejected(t *testing.T) {
	w := newWorkspace()
	if err := w.Open("doc.pl", 1, []byte("print 1;\n")); err != nil {
		t.Fatalf("open: %v", err)
	}
	err := w.Change("doc.pl", 2, []workspace.TextEdit{{Start: 500, OldEnd: 600, Text: "x"}})
	if !errors.Is(err, workspace.ErrBadEdit) {
		t.Fatalf("err = %v, want ErrBadEdit", err)
	}
}

func TestIndexAll(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("lib/Math/Util.pm", "package Math::Util;\nsub square { my ($n) = @_; return $n * $n; }\n1;\n")
	write("main.pl", "use Math::Util;\nmy $r = Math::Util::square(4);\nprint $r;\n")
	write("t/basic.t", "use Math::Util;\nprint Math::Util::square(2);\n")
	write("README.md", "not perl\n")

	w := newWorkspace()
	report, err := w.IndexAll(context.Background(), dir, 4)
	if err != nil {
		t.Fatalf("IndexAll: %v", err)
	}
	if report.Indexed != 3 {
		t.Fatalf("indexed %d files, want 3", report.Indexed)
	}
	if len(report.Failed) != 0 {
		t.Fatalf("failed files: %v", report.Failed)
	}

	defs := w.Index().FindDefinition("Math::Util::square")
	if len(defs) != 1 {
		t.Fatalf("got %d definitions after scan, want 1", len(defs))
	}
	refs := w.Index().FindReferences("Math::Util::square")
	if len(refs) != 2 {
		t.Fatalf("got %d references after scan, want 2", len(refs))
	}
}

func TestIndexAllIgnoresFiltered(t *testing.T) {
	dir := t.TempDir()
	for rel, content := range map[string]string{
		"lib/Keep.pm":    "package Keep;\nsub held { return 1; }\n1;\n",
		"blib/Skip.pm":   "package Skip;\nsub gone { return 0; }\n1;\n",
		"lib/Old.pm.bak": "package Old;\n1;\n",
	} {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := project.Config{Ignore: []string{"blib", "blib/*", "*.bak"}}
	w := newWorkspace()
	w.SetIgnore(cfg.Ignored)
	report, err := w.IndexAll(context.Background(), dir, 2)
	if err != nil {
		t.Fatalf("IndexAll: %v", err)
	}
	if report.Indexed != 1 {
		t.Fatalf("indexed %d files, want 1", report.Indexed)
	}
	if defs := w.Index().FindDefinition("Skip::gone"); len(defs) != 0 {
		t.Fatalf("ignored file reached the index: %v", defs)
	}
	if defs := w.Index().FindDefinition("Keep::held"); len(defs) != 1 {
		t.Fatalf("kept file missing from index: %v", defs)
	}
}

func TestIndexAllReusesCache(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib", "Math")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	src := "package Math::Util;\nsub square { my ($n) = @_; return $n * $n; }\n1;\n"
	if err := os.WriteFile(filepath.Join(lib, "Util.pm"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cache, err := dcache.OpenAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	salt := project.DefaultConfig().Digest()

	cold := newWorkspace()
	cold.SetCache(cache, salt)
	report, err := cold.IndexAll(context.Background(), dir, 2)
	if err != nil {
		t.Fatalf("cold scan: %v", err)
	}
	if report.FromCache != 0 || report.Indexed != 1 {
		t.Fatalf("cold report = %+v", report)
	}

	warm := newWorkspace()
	warm.SetCache(cache, salt)
	report, err = warm.IndexAll(context.Background(), dir, 2)
	if err != nil {
		t.Fatalf("warm scan: %v", err)
	}
	if report.FromCache != 1 || report.Indexed != 1 {
		t.Fatalf("warm report = %+v", report)
	}
	if defs := warm.Index().FindDefinition("Math::Util::square"); len(defs) != 1 {
		t.Fatalf("cache-restored index missing definition: %v", defs)
	}

	// a different salt must miss
	other := newWorkspace()
	other.SetCache(cache, project.Config{Include: []string{"other"}}.Digest())
	report, err = other.IndexAll(context.Background(), dir, 2)
	if err != nil {
		t.Fatalf("salted scan: %v", err)
	}
	if report.FromCache != 0 {
		t.Fatalf("salted report = %+v, want no cache hits", report)
	}
}

func TestIndexAllCancelled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.pl"), []byte("print 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := workspace.New(nil, nil).IndexAll(ctx, dir, 2)
	if err == nil {
		t.Fatalf("cancelled scan reported no error")
	}
}
