package index_test

import (
	"context"
	"sync"
	"testing"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/index"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

const libSource = `package Math::Util;

sub square {
    my ($n) = @_;
    return $n * $n;
}

sub cube {
    my ($n) = @_;
    return $n * square($n);
}

1;
`

const mainSource = `use Math::Util;

my $r = Math::Util::square(4);
print $r;
`

func analyzeFile(t *testing.T, fs *source.FileSet, path, src string) *sema.Table {
	t.Helper()
	id := fs.Add(path, []byte(src), 0)
	file := fs.Get(id)
	res := parser.ParseFile(file, parser.Options{})
	if res.Tree == nil {
		t.Fatalf("%s: no tree", path)
	}
	return sema.Analyze(file, res.Tree, sema.Options{})
}

func TestCrossFileDefinition(t *testing.T) {
	fs := source.NewFileSet()
	ix := index.New()

	lib := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	main := analyzeFile(t, fs, "main.pl", mainSource)

	ix.IndexFile("lib/Math/Util.pm", lib)
	ix.IndexFile("main.pl", main)

	defs := ix.FindDefinition("Math::Util::square")
	if len(defs) != 1 {
		t.Fatalf("got %d definitions for Math::Util::square, want 1", len(defs))
	}
	if defs[0].Path != "lib/Math/Util.pm" || defs[0].Kind != sema.SymbolSub {
		t.Fatalf("wrong definition: %+v", defs[0])
	}

	// The bare name finds the same sub.
	bare := ix.FindDefinition("square")
	if len(bare) != 1 || bare[0].Span != defs[0].Span {
		t.Fatalf("bare lookup disagrees: %+v", bare)
	}

	refs := ix.FindReferences("Math::Util::square")
	if len(refs) != 1 || refs[0].File != main.File {
		t.Fatalf("got references %+v", refs)
	}
	if got := ix.Unresolved(main.File); len(got) != 0 {
		t.Fatalf("unresolved leftovers: %+v", got)
	}
}

func TestReindexResolvesDependents(t *testing.T) {
	fs := source.NewFileSet()
	ix := index.New()

	main := analyzeFile(t, fs, "main.pl", mainSource)
	ix.IndexFile("main.pl", main)

	if got := ix.Unresolved(main.File); len(got) == 0 {
		t.Fatalf("expected unresolved references before the library is indexed")
	}

	lib := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	ix.IndexFile("lib/Math/Util.pm", lib)

	if got := ix.Unresolved(main.File); len(got) != 0 {
		t.Fatalf("dependent was not re-resolved: %+v", got)
	}
	if refs := ix.FindReferences("Math::Util::square"); len(refs) != 1 {
		t.Fatalf("got %d references after re-resolution, want 1", len(refs))
	}
}

func TestRemoveFileIsComplete(t *testing.T) {
	fs := source.NewFileSet()
	ix := index.New()

	lib := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	ix.IndexFile("lib/Math/Util.pm", lib)
	if len(ix.FindDefinition("square")) != 1 {
		t.Fatalf("definition missing before removal")
	}

	ix.RemoveFile(lib.File)
	if got := ix.FindDefinition("square"); len(got) != 0 {
		t.Fatalf("definitions survived removal: %+v", got)
	}
	if got := ix.FindDefinition("Math::Util"); len(got) != 0 {
		t.Fatalf("package entry survived removal: %+v", got)
	}
	if got, _ := ix.WorkspaceSymbols(context.Background(), "", 0); len(got) != 0 {
		t.Fatalf("workspace scan still sees %d entries", len(got))
	}
}

func TestReindexReplacesAtomically(t *testing.T) {
	fs := source.NewFileSet()
	ix := index.New()

	v1 := analyzeFile(t, fs, "lib/Counter.pm", "package Counter;\nsub up { }\n1;\n")
	ix.IndexFile("lib/Counter.pm", v1)

	v2 := analyzeFile(t, fs, "lib/Counter.pm", "package Counter;\nsub down { }\n1;\n")
	ix.IndexFile("lib/Counter.pm", v2)

	if got := ix.FindDefinition("up"); len(got) != 0 {
		t.Fatalf("stale definition: %+v", got)
	}
	if got := ix.FindDefinition("down"); len(got) != 1 {
		t.Fatalf("got %d definitions for down, want 1", len(got))
	}
}

func TestWorkspaceSymbols(t *testing.T) {
	fs := source.NewFileSet()
	ix := index.New()

	lib := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	ix.IndexFile("lib/Math/Util.pm", lib)

	got, status := ix.WorkspaceSymbols(context.Background(), "SQU", 0)
	if status != index.Complete {
		t.Fatalf("status = %s", status)
	}
	if len(got) != 1 || got[0].Name != "square" {
		t.Fatalf("query SQU returned %+v", got)
	}

	all, _ := ix.WorkspaceSymbols(context.Background(), "", 0)
	if len(all) != 3 { // package + two subs
		t.Fatalf("got %d entries for empty query, want 3", len(all))
	}

	capped, _ := ix.WorkspaceSymbols(context.Background(), "", 2)
	if len(capped) != 2 {
		t.Fatalf("limit not honored: %d entries", len(capped))
	}
}

func TestWorkspaceSymbolsCancelled(t *testing.T) {
	fs := source.NewFileSet()
	ix := index.New()
	lib := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	ix.IndexFile("lib/Math/Util.pm", lib)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, status := ix.WorkspaceSymbols(ctx, "square", 10)
	if status != index.Partial {
		t.Fatalf("cancelled scan reported %s, want partial", status)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	fs := source.NewFileSet()
	ix := index.New()
	lib := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	main := analyzeFile(t, fs, "main.pl", mainSource)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ix.FindDefinition("square")
				ix.FindReferences("Math::Util::square")
				ix.WorkspaceSymbols(context.Background(), "cu", 5)
			}
		}()
	}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				ix.IndexFile("lib/Math/Util.pm", lib)
				ix.IndexFile("main.pl", main)
			}
		}()
	}
	wg.Wait()

	if got := ix.FindDefinition("Math::Util::square"); len(got) != 1 {
		t.Fatalf("index inconsistent after concurrent use: %+v", got)
	}
}
