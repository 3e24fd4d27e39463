package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatGolden renders diagnostics into a stable, one-line-per-entry
// representation suitable for golden files and CLI short output. Entries
// are sorted deterministically; the result is empty when nothing remains.
func FormatGolden(diags []Diagnostic, fs *source.FileSet) string {
	if fs == nil || len(diags) == 0 {
		return ""
	}

	rendered := make([]goldenDiagnostic, 0, len(diags))
	for _, d := range diags {
		pos, _ := fs.Resolve(d.Primary)
		rendered = append(rendered, goldenDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Path:     fs.Get(d.Primary.File).FormatPath("relative", fs.BaseDir()),
			Line:     pos.Line,
			Column:   pos.Col,
			Message:  d.Message,
		})
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		return di.Code < dj.Code
	})

	var sb strings.Builder
	for _, d := range rendered {
		fmt.Fprintf(&sb, "%s:%d:%d: %s [%s] %s\n", d.Path, d.Line, d.Column, d.Severity, d.Code, d.Message)
	}
	return sb.String()
}
