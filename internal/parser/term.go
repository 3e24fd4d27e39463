package parser

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// parseTerm parses a primary term. Returns NoNodeID when the current token
// cannot start a term; callers decide whether that is an error.
func (p *Parser) parseTerm() ast.NodeID {
	switch p.cur.Kind {
	case token.ScalarVar, token.ArrayVar, token.HashVar, token.ArrayLenVar,
		token.FuncVar, token.GlobVar:
		return p.parseVariableTerm()

	case token.NumberLit:
		return p.leafAdvance(ast.KindNumberLiteral)
	case token.VersionLit:
		return p.leafAdvance(ast.KindVersionLiteral)
	case token.StringSingle, token.StringDouble, token.StringBacktick:
		return p.leafAdvance(ast.KindStringLiteral)
	case token.QuoteQ, token.QuoteQQ:
		return p.leafAdvance(ast.KindQuoteLike)
	case token.QuoteQW:
		return p.leafAdvance(ast.KindWordList)
	case token.QuoteQR, token.Match:
		return p.leafAdvance(ast.KindRegexMatch)
	case token.Subst:
		return p.leafAdvance(ast.KindSubstitution)
	case token.Translit:
		return p.leafAdvance(ast.KindTransliteration)
	case token.HeredocStart:
		return p.leafAdvance(ast.KindHeredoc)
	case token.ReadLine:
		return p.leafAdvance(ast.KindReadline)

	case token.LParen:
		return p.parseParenTerm()

	case token.LBracket:
		return p.parseAnonArray()

	case token.LBrace:
		if p.bracePolicy()(p.lastCallee, p.peekAhead()) {
			return p.parseAnonHash()
		}
		return p.parseBlock()

	case token.KwSub:
		return p.parseAnonSub()

	case token.KwDo:
		return p.parseDoTerm()

	case token.KwEval:
		return p.parseEvalTerm()

	case token.Ident:
		return p.parseBarewordTerm()

	default:
		return ast.NoNodeID
	}
}

func (p *Parser) leafAdvance(kind ast.NodeKind) ast.NodeID {
	leaf := p.b.Leaf(kind, p.cur)
	p.advance()
	return leaf
}

// parseVariableTerm parses a variable, including the `${ expr }` and
// `@{ expr }` block deref forms when the sigil token carries no name.
func (p *Parser) parseVariableTerm() ast.NodeID {
	bare := len(p.cur.Text) == 1 || (len(p.cur.Text) == 2 && p.cur.Text[0] == '$' && p.cur.Text[1] == '#')
	v := p.b.Leaf(ast.KindVariable, p.cur)
	p.advance()

	if bare && p.at(token.LBrace) {
		// ${ expr }: the braces hold an arbitrary expression.
		lb := p.eat(token.LBrace, ast.KindPunctuation)
		inner := p.parseExpression(precLowest)
		children := []ast.NodeID{v, lb}
		var fields []ast.FieldEntry
		if inner.IsValid() {
			children = append(children, inner)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldOperand, Child: 2})
		} else {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression inside deref braces")
		}
		if rb := p.expect(token.RBrace, ast.KindPunctuation, diag.SynUnclosedBrace, "expected '}' to close deref"); rb.IsValid() {
			children = append(children, rb)
		}
		return p.b.New(ast.KindDereference, source.Span{}, children, fields)
	}
	return v
}

func (p *Parser) parseParenTerm() ast.NodeID {
	lp := p.eat(token.LParen, ast.KindPunctuation)
	children := []ast.NodeID{lp}
	if !p.at(token.RParen) {
		inner := p.parseExpression(precComma)
		if inner.IsValid() {
			children = append(children, inner)
		} else {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after '('")
		}
	}
	if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')'"); rp.IsValid() {
		children = append(children, rp)
	}
	return p.b.New(ast.KindParenExpression, source.Span{}, children, nil)
}

func (p *Parser) parseAnonArray() ast.NodeID {
	lb := p.eat(token.LBracket, ast.KindPunctuation)
	children := []ast.NodeID{lb}
	if !p.at(token.RBracket) {
		elems := p.parseExpression(precComma)
		if elems.IsValid() {
			children = append(children, elems)
		}
	}
	if rb := p.expect(token.RBracket, ast.KindPunctuation, diag.SynUnclosedBracket, "expected ']' to close array constructor"); rb.IsValid() {
		children = append(children, rb)
	}
	return p.b.New(ast.KindAnonymousArray, source.Span{}, children, nil)
}

func (p *Parser) parseAnonHash() ast.NodeID {
	lb := p.eat(token.LBrace, ast.KindPunctuation)
	children := []ast.NodeID{lb}
	if !p.at(token.RBrace) {
		pairs := p.parseExpression(precComma)
		if pairs.IsValid() {
			children = append(children, pairs)
		}
	}
	if rb := p.expect(token.RBrace, ast.KindPunctuation, diag.SynUnclosedBrace, "expected '}' to close hash constructor"); rb.IsValid() {
		children = append(children, rb)
	}
	return p.b.New(ast.KindAnonymousHash, source.Span{}, children, nil)
}

func (p *Parser) parseAnonSub() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry
	if p.at(token.LParen) {
		proto := p.skipBalanced(token.LParen, token.RParen)
		children = append(children, proto)
	}
	if !p.at(token.LBrace) {
		p.emit(diag.SynExpectBlock, p.cur.Span, "expected block after 'sub'")
		return p.b.New(ast.KindError, source.Span{}, children, nil)
	}
	body := p.parseBlock()
	children = append(children, body)
	fields = append(fields, ast.FieldEntry{Field: ast.FieldBody, Child: uint32(len(children) - 1)})
	return p.b.New(ast.KindAnonymousSubroutine, source.Span{}, children, fields)
}

// parseDoTerm parses `do BLOCK` or `do EXPR` (file form).
func (p *Parser) parseDoTerm() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	if p.at(token.LBrace) {
		body := p.parseBlock()
		return p.b.New(ast.KindDoBlock, source.Span{},
			[]ast.NodeID{kw, body},
			[]ast.FieldEntry{{Field: ast.FieldBody, Child: 1}})
	}
	expr := p.parseExpression(precAssign)
	if !expr.IsValid() {
		p.emit(diag.SynExpectExpression, p.cur.Span, "expected block or expression after 'do'")
		return p.b.New(ast.KindError, source.Span{}, []ast.NodeID{kw}, nil)
	}
	return p.b.New(ast.KindDoBlock, source.Span{},
		[]ast.NodeID{kw, expr},
		[]ast.FieldEntry{{Field: ast.FieldValue, Child: 1}})
}

// parseEvalTerm parses `eval BLOCK` or `eval EXPR` (string form).
func (p *Parser) parseEvalTerm() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	if p.at(token.LBrace) {
		body := p.parseBlock()
		return p.b.New(ast.KindEvalBlock, source.Span{},
			[]ast.NodeID{kw, body},
			[]ast.FieldEntry{{Field: ast.FieldBody, Child: 1}})
	}
	expr := p.parseExpression(precAssign)
	if !expr.IsValid() {
		// Bare eval defaults to $_.
		return p.b.New(ast.KindEvalBlock, source.Span{}, []ast.NodeID{kw}, nil)
	}
	return p.b.New(ast.KindEvalBlock, source.Span{},
		[]ast.NodeID{kw, expr},
		[]ast.FieldEntry{{Field: ast.FieldValue, Child: 1}})
}

// parseBarewordTerm decides among a hash key, a class name before '->', a
// parenthesized call, a list-operator call, and a plain bareword.
func (p *Parser) parseBarewordTerm() ast.NodeID {
	next := p.lx.Peek().Kind

	// Bareword before '=>' autoquotes.
	if next == token.FatComma {
		return p.leafAdvance(ast.KindBareword)
	}
	// Class name in `Foo::Bar->method`.
	if next == token.Arrow {
		return p.leafAdvance(ast.KindPackageName)
	}

	name := p.cur.Text
	leaf := p.leafAdvance(ast.KindBareword)

	if p.at(token.LParen) {
		saved := p.lastCallee
		p.lastCallee = name
		call := p.parseCallArgs(leaf)
		p.lastCallee = saved
		return call
	}

	// List operator: `print $x, $y;`, `push @a, 1;`. Anything that can
	// start an expression becomes the argument list.
	if p.startsExpression() {
		saved := p.lastCallee
		p.lastCallee = name
		var args ast.NodeID
		if p.at(token.LBrace) && !p.bracePolicy()(name, p.peekAhead()) {
			// Block-taking list operator: map { ... } LIST has no comma
			// between the block and the list.
			blk := p.parseBlock()
			if p.startsExpression() {
				rest := p.parseExpression(precComma)
				if rest.IsValid() {
					args = p.b.New(ast.KindListExpression, source.Span{},
						[]ast.NodeID{blk, rest}, nil)
				} else {
					args = blk
				}
			} else {
				args = blk
			}
		} else {
			args = p.parseExpression(precComma)
		}
		p.lastCallee = saved
		if args.IsValid() {
			return p.b.New(ast.KindCallExpression, source.Span{},
				[]ast.NodeID{leaf, args},
				[]ast.FieldEntry{
					{Field: ast.FieldFunction, Child: 0},
					{Field: ast.FieldArguments, Child: 1},
				})
		}
	}
	return leaf
}

// startsExpression reports whether the current token can begin a term or a
// prefix operator, used to spot paren-less list-operator arguments.
func (p *Parser) startsExpression() bool {
	switch p.cur.Kind {
	case token.ScalarVar, token.ArrayVar, token.HashVar, token.ArrayLenVar,
		token.FuncVar, token.GlobVar,
		token.NumberLit, token.VersionLit,
		token.StringSingle, token.StringDouble, token.StringBacktick,
		token.QuoteQ, token.QuoteQQ, token.QuoteQW, token.QuoteQR,
		token.Match, token.Subst, token.Translit,
		token.HeredocStart, token.ReadLine,
		token.LParen, token.LBracket, token.LBrace,
		token.Bang, token.Tilde, token.Backslash,
		token.PlusPlus, token.MinusMinus,
		token.KwSub, token.KwDo, token.KwEval, token.KwNot,
		token.KwMy, token.KwOur, token.KwLocal, token.KwState,
		token.Ident:
		return true
	case token.Minus, token.Plus:
		// Unary sign only when something signable follows.
		switch p.lx.Peek().Kind {
		case token.NumberLit, token.ScalarVar, token.Ident, token.LParen:
			return true
		}
		return false
	default:
		return false
	}
}
