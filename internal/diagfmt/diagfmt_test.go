package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

func testBag(t *testing.T) (*diag.Bag, *source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSet()
	content := []byte("use strict;\nmy $x = $zzz;\nprint $x;\n")
	fileID := fs.AddVirtual("script.pl", content)

	bag := diag.NewBag(10)
	bag.Add(diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.SemUndeclaredVariable,
		Message:  `global symbol "$zzz" requires explicit package name`,
		Primary:  source.Span{File: fileID, Start: 20, End: 24},
		Notes: []diag.Note{{
			Span: source.Span{File: fileID, Start: 0, End: 11},
			Msg:  "strict mode enabled here",
		}},
	})
	return bag, fs, fileID
}

func assertGolden(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	text, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	t.Fatalf("output mismatch:\n%s", text)
}

func TestPrettyPlain(t *testing.T) {
	bag, fs, _ := testBag(t)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true})

	want := "" +
		"script.pl:2:9: ERROR SEM3001: global symbol \"$zzz\" requires explicit package name\n" +
		"    2 | my $x = $zzz;\n" +
		"      |         ^~~~\n" +
		"script.pl:1:1: INFO note: strict mode enabled here\n" +
		"    1 | use strict;\n" +
		"      | ^~~~~~~~~~~\n"
	assertGolden(t, buf.String(), want)
}

func TestPrettyCapsOutput(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("many.pl", []byte("print 1;\n"))
	bag := diag.NewBag(10)
	for i := 0; i < 5; i++ {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.SemUnusedLexical,
			Message:  "unused",
			Primary:  source.Span{File: fileID, Start: 0, End: 5},
		})
	}

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Max: 2})

	out := buf.String()
	if got := strings.Count(out, "SEM3002"); got != 2 {
		t.Fatalf("printed %d diagnostics, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, "... and 3 more") {
		t.Fatalf("missing truncation marker:\n%s", out)
	}
}

func TestJSONOutput(t *testing.T) {
	bag, fs, _ := testBag(t)

	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{
		IncludePositions: true,
		IncludeNotes:     true,
	})
	if err != nil {
		t.Fatal(err)
	}

	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("count = %d, diagnostics = %d", out.Count, len(out.Diagnostics))
	}
	d := out.Diagnostics[0]
	if d.Code != "SEM3001" || d.Severity != "ERROR" {
		t.Fatalf("code = %q, severity = %q", d.Code, d.Severity)
	}
	if d.Location.StartLine != 2 || d.Location.StartCol != 9 {
		t.Fatalf("location = %+v", d.Location)
	}
	if len(d.Notes) != 1 || d.Notes[0].Message != "strict mode enabled here" {
		t.Fatalf("notes = %+v", d.Notes)
	}
}

func TestJSONMaxTruncates(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("many.pl", []byte("print 1;\n"))
	bag := diag.NewBag(10)
	for i := 0; i < 4; i++ {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevWarning,
			Code:     diag.SemUnusedLexical,
			Message:  "unused",
			Primary:  source.Span{File: fileID, Start: 0, End: 5},
		})
	}
	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{Max: 3})
	if out.Count != 3 {
		t.Fatalf("count = %d, want 3", out.Count)
	}
}
