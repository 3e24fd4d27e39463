package lsp

import (
	"testing"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

func virtualFile(t *testing.T, content string) *source.File {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.pl", []byte(content))
	return fs.Get(id)
}

func TestPositionOffsetRoundTrip(t *testing.T) {
	file := virtualFile(t, "my $x = 1;\nprint $x;\n")

	cases := []struct {
		off uint32
		pos position
	}{
		{0, position{Line: 0, Character: 0}},
		{3, position{Line: 0, Character: 3}},
		{11, position{Line: 1, Character: 0}},
		{17, position{Line: 1, Character: 6}},
	}
	for _, tc := range cases {
		if got := positionForOffsetInFile(file, tc.off); got != tc.pos {
			t.Errorf("positionForOffset(%d) = %+v, want %+v", tc.off, got, tc.pos)
		}
		if got := offsetForPositionInFile(file, tc.pos); got != tc.off {
			t.Errorf("offsetForPosition(%+v) = %d, want %d", tc.pos, got, tc.off)
		}
	}
}

func TestAstralPlaneCountsTwoUnits(t *testing.T) {
	// U+1F600 is 4 bytes of UTF-8 but two UTF-16 code units.
	file := virtualFile(t, "my $s = \"\U0001F600\";\nprint;\n")

	// byte offset just past the emoji
	afterEmoji := uint32(9 + 4)
	pos := positionForOffsetInFile(file, afterEmoji)
	if pos.Line != 0 || pos.Character != 11 {
		t.Fatalf("position after emoji = %+v, want {0 11}", pos)
	}
	if got := offsetForPositionInFile(file, position{Line: 0, Character: 11}); got != afterEmoji {
		t.Fatalf("offset for character 11 = %d, want %d", got, afterEmoji)
	}
	// a position inside the surrogate pair clamps to the rune start
	if got := offsetForPositionInFile(file, position{Line: 0, Character: 10}); got != 9 {
		t.Fatalf("offset inside surrogate pair = %d, want 9", got)
	}
}

func TestPositionClamping(t *testing.T) {
	file := virtualFile(t, "print 1;\n")

	if got := offsetForPositionInFile(file, position{Line: 99, Character: 0}); got != uint32(len(file.Content)) {
		t.Fatalf("line past EOF = %d, want content end", got)
	}
	if got := offsetForPositionInFile(file, position{Line: 0, Character: 999}); got != 8 {
		t.Fatalf("character past line end = %d, want 8", got)
	}
	if got := positionForOffsetInFile(file, 10_000); got.Line != 1 {
		t.Fatalf("offset past EOF = %+v", got)
	}
}

func TestRangeForSpan(t *testing.T) {
	file := virtualFile(t, "sub f { }\nf();\n")
	r := rangeForSpan(file, source.Span{File: file.ID, Start: 10, End: 11})
	want := lspRange{Start: position{Line: 1, Character: 0}, End: position{Line: 1, Character: 1}}
	if r != want {
		t.Fatalf("range = %+v, want %+v", r, want)
	}
}
