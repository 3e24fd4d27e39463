package parser

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/lexer"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// Options configure a parse.
type Options struct {
	MaxErrors uint
	Reporter  diag.Reporter
	// BracePolicy decides whether a '{' in term position opens an
	// anonymous hash (true) or a block (false). Nil selects
	// DefaultBracePolicy. Kept pluggable because the construct is
	// genuinely ambiguous in Perl.
	BracePolicy BracePolicy
}

// BracePolicy inspects the term context and the tokens ahead.
// callee is the bareword whose argument list the '{' starts, or "".
type BracePolicy func(callee string, ahead [3]token.Token) bool

// DefaultBracePolicy: `{}` and `{ key => ...` read as hashes; arguments to
// the block-taking builtins (map, grep, sort) read as blocks; anything else
// in term position defaults to an anonymous hash. This matches the most
// common interpretation; projects with heavy prototype use can swap the
// policy in.
func DefaultBracePolicy(callee string, ahead [3]token.Token) bool {
	if ahead[1].Kind == token.RBrace {
		return true
	}
	if ahead[2].Kind == token.FatComma {
		return true
	}
	switch callee {
	case "map", "grep", "sort":
		return false
	}
	return true
}

// Result is a parsed file: a tree plus the diagnostics bag (nil when the
// reporter was not a BagReporter).
type Result struct {
	Tree *ast.Tree
	Bag  *diag.Bag
}

// Parser holds the state for parsing one file or one damaged region.
type Parser struct {
	lx   *lexer.Lexer
	b    *ast.Builder
	file source.FileID
	opts Options

	cur    token.Token
	errors uint

	// lastCallee is the bareword most recently seen in call position,
	// consulted by the brace policy.
	lastCallee string
}

// ParseFile parses a whole file into a fresh tree.
func ParseFile(f *source.File, opts Options) Result {
	b := ast.NewBuilder(ast.Hints{Nodes: uint(len(f.Content)/8 + 16)})
	lx := lexer.New(f, lexer.Options{Reporter: opts.Reporter})
	return parseWith(lx, b, f.ID, opts)
}

// ParseRegion parses the byte window [off, limit) of f as a statement
// sequence, allocating into an existing builder. Used by the incremental
// engine.
func ParseRegion(f *source.File, b *ast.Builder, off, limit uint32, opts Options) ([]ast.NodeID, *diag.Bag) {
	lx := lexer.NewAt(f, off, limit, lexer.Options{Reporter: opts.Reporter})
	p := &Parser{lx: lx, b: b, file: f.ID, opts: opts}
	p.advance()
	stmts := p.parseStatements(token.EOF)
	return stmts, p.bag()
}

func parseWith(lx *lexer.Lexer, b *ast.Builder, file source.FileID, opts Options) Result {
	p := &Parser{lx: lx, b: b, file: file, opts: opts}
	p.advance()

	start := p.cur.Span
	stmts := p.parseStatements(token.EOF)
	span := start.Cover(p.cur.Span)
	if len(stmts) > 0 {
		first := b.Arena().Get(uint32(stmts[0]))
		last := b.Arena().Get(uint32(stmts[len(stmts)-1]))
		span = source.Span{File: file, Start: first.Span.Start, End: last.Span.End}
	}
	root := b.New(ast.KindSourceFile, span, stmts, nil)

	return Result{
		Tree: &ast.Tree{Arena: b.Arena(), Root: root, File: file},
		Bag:  p.bag(),
	}
}

func (p *Parser) bag() *diag.Bag {
	if br, ok := p.opts.Reporter.(diag.BagReporter); ok {
		return br.Bag
	}
	return nil
}

// parseStatements parses until the stop kind (EOF or RBrace).
func (p *Parser) parseStatements(stop token.Kind) []ast.NodeID {
	var stmts []ast.NodeID
	for !p.at(token.EOF) && !p.at(stop) {
		before := p.cur.Span
		stmt := p.parseStatement()
		if stmt.IsValid() {
			stmts = append(stmts, stmt)
		}
		if p.cur.Span == before && !p.at(token.EOF) && !p.at(stop) {
			// No progress: drop the offending token so we cannot loop.
			stmts = append(stmts, p.errorAdvance())
		}
	}
	return stmts
}

func (p *Parser) advance() {
	p.cur = p.lx.Next()
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur.Kind == k
}

func (p *Parser) atAny(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.cur.Kind == k {
			return true
		}
	}
	return false
}

// eat consumes the current token as a leaf of the given node kind when it
// matches, returning the leaf (or NoNodeID).
func (p *Parser) eat(k token.Kind, nk ast.NodeKind) ast.NodeID {
	if !p.at(k) {
		return ast.NoNodeID
	}
	leaf := p.b.Leaf(nk, p.cur)
	p.advance()
	return leaf
}

// expect is eat with a diagnostic when the token is missing.
func (p *Parser) expect(k token.Kind, nk ast.NodeKind, code diag.Code, msg string) ast.NodeID {
	if leaf := p.eat(k, nk); leaf.IsValid() {
		return leaf
	}
	p.emit(code, p.cur.Span, msg)
	return ast.NoNodeID
}

func (p *Parser) emit(code diag.Code, sp source.Span, msg string) {
	p.errors++
	if p.opts.MaxErrors != 0 && p.errors > p.opts.MaxErrors {
		return
	}
	if p.opts.Reporter != nil {
		p.opts.Reporter.Report(code, diag.SevError, sp, msg, nil)
	}
}

// errorAdvance wraps the current token in an error node and advances.
func (p *Parser) errorAdvance() ast.NodeID {
	leaf := p.b.Leaf(ast.KindError, p.cur)
	p.advance()
	return leaf
}

// resyncStatement skips to the next statement boundary: just past a ';',
// or stopping at '}', EOF, or a keyword that can only start a statement.
// The skipped region becomes an error node so the tree still covers it.
func (p *Parser) resyncStatement(from source.Span) ast.NodeID {
	// Zero width when nothing gets consumed, so the node never overlaps
	// the '}' or later sibling spans.
	span := source.Span{File: from.File, Start: from.Start, End: from.Start}
	consumed := false
	for !p.at(token.EOF) && !p.at(token.RBrace) {
		if consumed && p.atSyncKeyword() {
			break
		}
		span = span.Cover(p.cur.Span)
		consumed = true
		if p.at(token.Semicolon) {
			p.advance()
			break
		}
		p.advance()
	}
	return p.b.New(ast.KindError, span, nil, nil)
}

// atSyncKeyword reports whether the current token starts a new statement
// reliably enough to stop error recovery in front of it.
func (p *Parser) atSyncKeyword() bool {
	switch p.cur.Kind {
	case token.KwSub, token.KwPackage, token.KwUse, token.KwNo, token.KwRequire,
		token.KwMy, token.KwOur, token.KwState,
		token.KwIf, token.KwUnless, token.KwWhile, token.KwUntil,
		token.KwFor, token.KwForeach, token.KwReturn:
		return true
	}
	return false
}

// peekAhead returns the current token and the next two, without consuming
// input. Fed to the brace policy.
func (p *Parser) peekAhead() [3]token.Token {
	return [3]token.Token{p.cur, p.lx.PeekN(0), p.lx.PeekN(1)}
}

func (p *Parser) bracePolicy() BracePolicy {
	if p.opts.BracePolicy != nil {
		return p.opts.BracePolicy
	}
	return DefaultBracePolicy
}
