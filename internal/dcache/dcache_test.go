package dcache_test

import (
	"testing"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/dcache"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/index"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

const libSource = "package Math::Util;\n" +
	"sub square { my $n = shift; return $n * $n; }\n" +
	"sub cube { my $n = shift; return $n * $n * $n; }\n" +
	"1;\n"

func analyzeFile(t *testing.T, fs *source.FileSet, path, src string) (*source.File, *sema.Table) {
	t.Helper()
	id := fs.Add(path, []byte(src), 0)
	file := fs.Get(id)
	res := parser.ParseFile(file, parser.Options{})
	if err := ast.Validate(res.Tree, res.Tree.Root); err != nil {
		t.Fatalf("invalid tree: %v", err)
	}
	bag := diag.NewBag(64)
	tab := sema.Analyze(file, res.Tree, sema.Options{Reporter: &diag.BagReporter{Bag: bag}})
	return file, tab
}

func TestPutGetRoundTrip(t *testing.T) {
	c, err := dcache.OpenAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	file, tab := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)

	put := dcache.FromTable("lib/Math/Util.pm", tab)
	if err := c.Put(file.Hash, put); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got dcache.Payload
	ok, err := c.Get(file.Hash, &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Path != "lib/Math/Util.pm" {
		t.Fatalf("path = %q", got.Path)
	}
	if len(got.Packages) != 1 || got.Packages[0] != "Math::Util" {
		t.Fatalf("packages = %v", got.Packages)
	}
	if len(got.Symbols) != len(put.Symbols) {
		t.Fatalf("symbols = %d, want %d", len(got.Symbols), len(put.Symbols))
	}
}

func TestGetMissOnAbsentKey(t *testing.T) {
	c, err := dcache.OpenAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var key dcache.Digest
	key[0] = 0xab

	var got dcache.Payload
	ok, err := c.Get(key, &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *dcache.Cache
	var key dcache.Digest
	if err := c.Put(key, &dcache.Payload{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got dcache.Payload
	ok, err := c.Get(key, &got)
	if err != nil || ok {
		t.Fatalf("get = %v, %v", ok, err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
}

func TestDropAllThenMiss(t *testing.T) {
	c, err := dcache.OpenAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	file, tab := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	if err := c.Put(file.Hash, dcache.FromTable("lib/Math/Util.pm", tab)); err != nil {
		t.Fatal(err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	var got dcache.Payload
	ok, err := c.Get(file.Hash, &got)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a miss after DropAll")
	}
}

// A payload restored from disk must feed the index the same way the live
// analysis would.
func TestCachedPayloadMatchesLiveIndexing(t *testing.T) {
	c, err := dcache.OpenAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	fs := source.NewFileSet()
	file, tab := analyzeFile(t, fs, "lib/Math/Util.pm", libSource)
	if err := c.Put(file.Hash, dcache.FromTable("lib/Math/Util.pm", tab)); err != nil {
		t.Fatal(err)
	}

	live := index.New()
	live.IndexFile("lib/Math/Util.pm", tab)

	var payload dcache.Payload
	ok, err := c.Get(file.Hash, &payload)
	if err != nil || !ok {
		t.Fatalf("get = %v, %v", ok, err)
	}
	restored := index.New()
	restored.IndexData("lib/Math/Util.pm", file.ID, payload.ToData(file.ID))

	for _, name := range []string{"square", "Math::Util::square", "cube", "Math::Util"} {
		a := live.FindDefinition(name)
		b := restored.FindDefinition(name)
		if len(a) != len(b) {
			t.Fatalf("%q: live %d defs, restored %d", name, len(a), len(b))
		}
		for i := range a {
			if a[i].Span != b[i].Span || a[i].Qualified != b[i].Qualified || a[i].Kind != b[i].Kind {
				t.Fatalf("%q: entry %d differs: %+v vs %+v", name, i, a[i], b[i])
			}
		}
	}
}
