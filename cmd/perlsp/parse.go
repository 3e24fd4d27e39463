package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diagfmt"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/driver"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file.pl",
	Short: "Parse a Perl source file and dump its syntax tree",
	Long:  `Parse builds the syntax tree for a Perl source file and reports diagnostics`,
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "tree", "output format (tree|json|short)")
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	result, err := driver.Parse(args[0], maxDiagnostics(cmd))
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}

	switch format {
	case "tree":
		if result.Bag.HasErrors() || result.Bag.HasWarnings() {
			diagfmt.Pretty(os.Stderr, result.Bag, result.FileSet, diagfmt.PrettyOpts{
				Color:     useColor(cmd, os.Stderr),
				ShowNotes: true,
			})
		}
		_, err = fmt.Fprintln(os.Stdout, ast.Sexp(result.Tree, result.Tree.Root))
		return err
	case "json":
		// Machine consumers get the diagnostics; the tree dump stays a
		// debugging view.
		return diagfmt.JSON(os.Stdout, result.Bag, result.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			IncludeNotes:     true,
		})
	case "short":
		// One line per diagnostic, stable order, no tree dump.
		_, err = fmt.Fprint(os.Stdout, diag.FormatGolden(result.Bag.Items(), result.FileSet))
		return err
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
