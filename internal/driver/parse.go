package driver

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/parser"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

type ParseResult struct {
	FileSet *source.FileSet
	File    *source.File
	Tree    *ast.Tree
	Bag     *diag.Bag
}

// Parse loads and parses a single file. Lexical and syntactic
// diagnostics land in one bag, in source order.
func Parse(path string, maxDiagnostics int) (*ParseResult, error) {
	fs := source.NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		return nil, err
	}
	file := fs.Get(id)

	bag := diag.NewBag(maxDiagnostics)
	res := parser.ParseFile(file, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	bag.Sort()

	return &ParseResult{FileSet: fs, File: file, Tree: res.Tree, Bag: bag}, nil
}
