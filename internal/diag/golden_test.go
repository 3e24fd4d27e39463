package diag_test

import (
	"testing"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

func TestFormatGoldenSortsAndRenders(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("script.pl", []byte("my $x = 1;\nmy $y = 2;\n"))

	// Deliberately out of source order; the output must be sorted.
	diags := []diag.Diagnostic{
		{
			Severity: diag.SevWarning,
			Code:     diag.SemUnusedLexical,
			Message:  `"$y" is declared but never used`,
			Primary:  source.Span{File: id, Start: 14, End: 16},
		},
		{
			Severity: diag.SevWarning,
			Code:     diag.SemUnusedLexical,
			Message:  `"$x" is declared but never used`,
			Primary:  source.Span{File: id, Start: 3, End: 5},
		},
	}

	got := diag.FormatGolden(diags, fs)
	want := "" +
		"script.pl:1:4: WARNING [SEM3002] \"$x\" is declared but never used\n" +
		"script.pl:2:4: WARNING [SEM3002] \"$y\" is declared but never used\n"
	if got != want {
		t.Fatalf("FormatGolden:\ngot  %q\nwant %q", got, want)
	}
}

func TestFormatGoldenEmpty(t *testing.T) {
	fs := source.NewFileSet()
	if got := diag.FormatGolden(nil, fs); got != "" {
		t.Fatalf("FormatGolden(nil) = %q, want empty", got)
	}
	if got := diag.FormatGolden([]diag.Diagnostic{{}}, nil); got != "" {
		t.Fatalf("FormatGolden with nil fileset = %q, want empty", got)
	}
}
