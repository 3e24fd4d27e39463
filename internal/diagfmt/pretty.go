package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// Pretty renders diagnostics in a human-readable form. It walks
// bag.Items() in order (callers sort the bag first). Every diagnostic
// prints as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//
// followed by the source line with a ^~~~ underline covering the span,
// then notes in the same shape when ShowNotes is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	for i := 0; i < maxItems; i++ {
		d := items[i]
		writeHeading(w, fs, d.Primary, d.Severity, opts, fmt.Sprintf("%s: %s", d.Code.ID(), d.Message))
		writeSnippet(w, fs, d.Primary, d.Severity, opts)
		if opts.ShowNotes {
			for _, note := range d.Notes {
				writeHeading(w, fs, note.Span, diag.SevInfo, opts, "note: "+note.Msg)
				writeSnippet(w, fs, note.Span, diag.SevInfo, opts)
			}
		}
	}

	if maxItems < len(items) {
		fmt.Fprintf(w, "... and %d more\n", len(items)-maxItems)
	}
}

func writeHeading(w io.Writer, fs *source.FileSet, span source.Span, sev diag.Severity, opts PrettyOpts, tail string) {
	start, _ := fs.Resolve(span)
	fmt.Fprintf(w, "%s:%d:%d: %s %s\n",
		formatPath(fs, span.File, opts.PathMode),
		start.Line, start.Col,
		paintSeverity(sev, opts.Color),
		tail)
}

// writeSnippet prints the first line of the span with a caret underline.
// Column math uses display width so tabs and wide runes stay aligned.
func writeSnippet(w io.Writer, fs *source.FileSet, span source.Span, sev diag.Severity, opts PrettyOpts) {
	file := fs.Get(span.File)
	if file == nil {
		return
	}
	start, end := fs.Resolve(span)
	line := file.GetLine(start.Line)
	if line == "" && span.Empty() {
		return
	}

	startCol := int(start.Col) - 1
	if startCol > len(line) {
		startCol = len(line)
	}
	endCol := len(line)
	if end.Line == start.Line && int(end.Col)-1 < endCol {
		endCol = int(end.Col) - 1
	}
	if endCol < startCol {
		endCol = startCol
	}

	pad := runewidth.StringWidth(expandTabs(line[:startCol]))
	width := runewidth.StringWidth(expandTabs(line[startCol:endCol]))
	if width < 1 {
		width = 1
	}

	underline := "^"
	if width > 1 {
		underline += strings.Repeat("~", width-1)
	}
	if opts.Color {
		underline = severityColor(sev).Sprint(underline)
	}

	fmt.Fprintf(w, "%5d | %s\n", start.Line, expandTabs(line))
	fmt.Fprintf(w, "      | %s%s\n", strings.Repeat(" ", pad), underline)
}

const tabStop = 4

func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabStop))
}

func formatPath(fs *source.FileSet, id source.FileID, mode PathMode) string {
	f := fs.Get(id)
	if f == nil {
		return "<unknown>"
	}
	switch mode {
	case PathModeAbsolute:
		return f.FormatPath("absolute", "")
	case PathModeRelative:
		return f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		return f.FormatPath("basename", "")
	default:
		return f.FormatPath("auto", "")
	}
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return color.New(color.FgRed, color.Bold)
	case diag.SevWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func paintSeverity(sev diag.Severity, colored bool) string {
	if !colored {
		return sev.String()
	}
	return severityColor(sev).Sprint(sev.String())
}
