package source

import (
	"testing"
)

func TestFileSetAddAndResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.pl", []byte("my $x;\nmy $y;\n"))

	f := fs.Get(id)
	if f.Path != "a.pl" {
		t.Fatalf("path = %q", f.Path)
	}
	if len(f.LineIdx) != 2 {
		t.Fatalf("line index len = %d, want 2", len(f.LineIdx))
	}

	start, end := fs.Resolve(Span{File: id, Start: 7, End: 12})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("start = %+v", start)
	}
	if end.Line != 2 || end.Col != 6 {
		t.Fatalf("end = %+v", end)
	}
}

func TestFileSetLatestWins(t *testing.T) {
	fs := NewFileSet()
	first := fs.AddVirtual("a.pl", []byte("old"))
	second := fs.AddVirtual("a.pl", []byte("new"))

	if first == second {
		t.Fatalf("expected distinct IDs for versions")
	}
	latest, ok := fs.GetLatest("a.pl")
	if !ok || latest != second {
		t.Fatalf("GetLatest = %v, %v; want %v", latest, ok, second)
	}
	if got, _ := fs.GetByPath("a.pl"); string(got.Content) != "new" {
		t.Fatalf("GetByPath content = %q", got.Content)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.pl", []byte("one\ntwo\nthree"))
	f := fs.Get(id)

	if got := f.GetLine(2); got != "two" {
		t.Fatalf("GetLine(2) = %q", got)
	}
	if got := f.GetLine(3); got != "three" {
		t.Fatalf("GetLine(3) = %q", got)
	}
	if got := f.GetLine(9); got != "" {
		t.Fatalf("GetLine(9) = %q, want empty", got)
	}
}

func TestInternerDedup(t *testing.T) {
	in := NewInterner()
	a := in.Intern("$x")
	b := in.Intern("$x")
	c := in.Intern("$y")

	if a != b {
		t.Fatalf("same string interned twice: %v vs %v", a, b)
	}
	if a == c {
		t.Fatalf("distinct strings share an ID")
	}
	if s := in.MustLookup(c); s != "$y" {
		t.Fatalf("lookup = %q", s)
	}
}
