package driver

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/sema"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

type AnalyzeResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tree    *ast.Tree
	Table   *sema.Table
	Bag     *diag.Bag
}

// Analyze parses a file and resolves its symbols. The bag carries the
// lexical, syntactic, and semantic diagnostics merged in source order.
func Analyze(path string, maxDiagnostics int) (*AnalyzeResult, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	file := fs.Get(id)

	parseBag := diag.NewBag(maxDiagnostics)
	res := parser.ParseFile(file, parser.Options{Reporter: diag.BagReporter{Bag: parseBag}})

	semaBag := diag.NewBag(maxDiagnostics)
	table := sema.Analyze(file, res.Tree, sema.Options{Reporter: diag.BagReporter{Bag: semaBag}})

	merged := diag.NewBag(2 * maxDiagnostics)
	merged.Merge(parseBag)
	merged.Merge(semaBag)
	merged.Sort()

	return &AnalyzeResult{FileSet: fs, File: file, Tree: res.Tree, Table: table, Bag: merged}, nil
}
