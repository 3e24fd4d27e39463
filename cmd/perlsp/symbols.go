package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diagfmt"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/driver"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [flags] file.pl",
	Short: "Show the symbol outline of a Perl source file",
	Long:  `Symbols lists the packages, subroutines, and file-level variables a file declares`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

type symbolOutput struct {
	Name      string `json:"name"`
	Qualified string `json:"qualified,omitempty"`
	Kind      string `json:"kind"`
	Package   string `json:"package,omitempty"`
	Line      uint32 `json:"line"`
	Col       uint32 `json:"col"`
}

func init() {
	symbolsCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}

	result, err := driver.Analyze(args[0], maxDiagnostics(cmd))
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if result.Bag.HasErrors() || result.Bag.HasWarnings() {
		diagfmt.Pretty(os.Stderr, result.Bag, result.FileSet, diagfmt.PrettyOpts{
			Color:     useColor(cmd, os.Stderr),
			ShowNotes: true,
		})
	}

	var out []symbolOutput
	for _, id := range result.Table.DocumentSymbols() {
		sym := result.Table.Symbols.Get(id)
		start, _ := result.FileSet.Resolve(sym.Decl)
		out = append(out, symbolOutput{
			Name:      sym.Name,
			Qualified: sym.Qualified(),
			Kind:      sym.Kind.String(),
			Package:   sym.Package,
			Line:      start.Line,
			Col:       start.Col,
		})
	}

	switch format {
	case "pretty":
		for _, s := range out {
			name := s.Name
			if s.Qualified != "" {
				name = s.Qualified
			}
			if _, err := fmt.Fprintf(os.Stdout, "%-8s %-30s %d:%d\n", s.Kind, name, s.Line, s.Col); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
