package source

import (
	"errors"
	"testing"
	"unicode/utf8"
)

func addTestFile(t *testing.T, content string) *File {
	t.Helper()
	fs := NewFileSet()
	id := fs.AddVirtual("test.pl", []byte(content))
	return fs.Get(id)
}

func TestByteToUTF16ASCII(t *testing.T) {
	f := addTestFile(t, "my $x = 1;\nprint $x;\n")

	pos, err := f.ByteToUTF16(3)
	if err != nil {
		t.Fatalf("ByteToUTF16(3): %v", err)
	}
	if pos.Line != 0 || pos.Col != 3 {
		t.Fatalf("got %+v, want line 0 col 3", pos)
	}

	pos, err = f.ByteToUTF16(11)
	if err != nil {
		t.Fatalf("ByteToUTF16(11): %v", err)
	}
	if pos.Line != 1 || pos.Col != 0 {
		t.Fatalf("got %+v, want line 1 col 0", pos)
	}
}

func TestByteToUTF16MultiByte(t *testing.T) {
	// "é" is 2 bytes / 1 UTF-16 unit; "𐍈" is 4 bytes / 2 UTF-16 units.
	f := addTestFile(t, "é𐍈x")

	pos, err := f.ByteToUTF16(2)
	if err != nil {
		t.Fatalf("after é: %v", err)
	}
	if pos.Col != 1 {
		t.Fatalf("after é: col %d, want 1", pos.Col)
	}

	pos, err = f.ByteToUTF16(6)
	if err != nil {
		t.Fatalf("after 𐍈: %v", err)
	}
	if pos.Col != 3 {
		t.Fatalf("after 𐍈: col %d, want 3 (astral char is two units)", pos.Col)
	}
}

func TestUTF16ToByteRejectsSurrogateSplit(t *testing.T) {
	f := addTestFile(t, "𐍈")

	if _, err := f.UTF16ToByte(LineCol16{Line: 0, Col: 1}); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound for split surrogate, got %v", err)
	}
}

func TestPositionMappingOutOfRange(t *testing.T) {
	f := addTestFile(t, "abc\ndef")

	if _, err := f.ByteToUTF16(100); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("offset past EOF: got %v", err)
	}
	if _, err := f.UTF16ToByte(LineCol16{Line: 5, Col: 0}); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("line past EOF: got %v", err)
	}
	if _, err := f.UTF16ToByte(LineCol16{Line: 0, Col: 10}); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("column past line end: got %v", err)
	}
}

// Every offset that starts a rune must survive a byte→utf16→byte round trip.
func TestPositionMappingInverse(t *testing.T) {
	content := "my $héllo = \"𐍈 snowman ☃\";\nsub f { return 42; }\n"
	f := addTestFile(t, content)

	for off := uint32(0); off <= uint32(len(content)); {
		pos, err := f.ByteToUTF16(off)
		if err != nil {
			t.Fatalf("ByteToUTF16(%d): %v", off, err)
		}
		back, err := f.UTF16ToByte(pos)
		if err != nil {
			t.Fatalf("UTF16ToByte(%+v): %v", pos, err)
		}
		if back != off {
			t.Fatalf("round trip %d -> %+v -> %d", off, pos, back)
		}
		if off == uint32(len(content)) {
			break
		}
		_, size := utf8.DecodeRune([]byte(content)[off:])
		off += uint32(size)
	}
}

func TestToLineCol(t *testing.T) {
	idx := buildLineIndex([]byte("a\nbc\n"))
	cases := []struct {
		off  uint32
		want LineCol
	}{
		{0, LineCol{1, 1}},
		{1, LineCol{1, 2}}, // the \n itself
		{2, LineCol{2, 1}},
		{3, LineCol{2, 2}},
	}
	for _, c := range cases {
		got := toLineCol(idx, c.off)
		if got != c.want {
			t.Fatalf("toLineCol(%d) = %+v, want %+v", c.off, got, c.want)
		}
	}
}
