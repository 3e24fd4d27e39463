package parser

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// parseStatement parses one statement. On a syntax error it emits a
// diagnostic and resynchronizes to the next statement boundary; the result
// is always a valid node.
func (p *Parser) parseStatement() ast.NodeID {
	switch p.cur.Kind {
	case token.Semicolon:
		leaf := p.b.Leaf(ast.KindPunctuation, p.cur)
		span := p.cur.Span
		p.advance()
		return p.b.New(ast.KindEmptyStatement, span, []ast.NodeID{leaf}, nil)

	case token.Label:
		return p.parseLabeledStatement()

	case token.KwPackage:
		return p.parsePackageStatement()

	case token.KwUse, token.KwNo:
		return p.parseUseStatement()

	case token.KwRequire:
		return p.parseRequireStatement()

	case token.KwSub:
		if p.lx.Peek().Kind == token.Ident {
			return p.parseSubDeclaration()
		}
		// Anonymous sub in statement position: expression statement.
		return p.parseExpressionStatement()

	case token.KwMy, token.KwOur, token.KwLocal, token.KwState:
		return p.parseVariableDeclaration()

	case token.KwIf, token.KwUnless:
		return p.parseConditionalStatement()

	case token.KwWhile, token.KwUntil:
		return p.parseWhileStatement()

	case token.KwFor, token.KwForeach:
		return p.parseForStatement()

	case token.KwReturn:
		return p.parseReturnStatement()

	case token.KwLast, token.KwNext, token.KwRedo:
		return p.parseLoopControl()

	case token.LBrace:
		return p.parseBlock()

	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLabeledStatement() ast.NodeID {
	label := p.b.Leaf(ast.KindLabel, p.cur)
	p.advance()
	colon := p.eat(token.Colon, ast.KindPunctuation)
	stmt := p.parseStatement()

	children := []ast.NodeID{label}
	fields := []ast.FieldEntry{{Field: ast.FieldLabel, Child: 0}}
	if colon.IsValid() {
		children = append(children, colon)
	}
	children = append(children, stmt)
	fields = append(fields, ast.FieldEntry{Field: ast.FieldBody, Child: uint32(len(children) - 1)})
	return p.b.New(ast.KindLabeledStatement, source.Span{}, children, fields)
}

// parsePackageStatement handles both `package Foo;` and `package Foo { }`.
func (p *Parser) parsePackageStatement() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	if p.at(token.Ident) {
		name := p.b.Leaf(ast.KindPackageName, p.cur)
		p.advance()
		children = append(children, name)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldName_, Child: uint32(len(children) - 1)})
	} else {
		p.emit(diag.SynExpectPackageName, p.cur.Span, "expected package name after 'package'")
		return p.finishBroken(kw)
	}

	if p.atAny(token.VersionLit, token.NumberLit) {
		ver := p.b.Leaf(ast.KindVersionLiteral, p.cur)
		p.advance()
		children = append(children, ver)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldVersion, Child: uint32(len(children) - 1)})
	}

	if p.at(token.LBrace) {
		body := p.parseBlock()
		children = append(children, body)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldBody, Child: uint32(len(children) - 1)})
		return p.b.New(ast.KindPackageStatement, source.Span{}, children, fields)
	}

	if semi := p.expect(token.Semicolon, ast.KindPunctuation, diag.SynExpectSemicolon, "expected ';' after package statement"); semi.IsValid() {
		children = append(children, semi)
	}
	return p.b.New(ast.KindPackageStatement, source.Span{}, children, fields)
}

// parseUseStatement handles `use Module LIST;`, `use VERSION;`, and `no ...`.
func (p *Parser) parseUseStatement() ast.NodeID {
	kwText := p.cur.Text
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	switch p.cur.Kind {
	case token.Ident:
		name := p.b.Leaf(ast.KindPackageName, p.cur)
		p.advance()
		children = append(children, name)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldModule, Child: uint32(len(children) - 1)})
	case token.VersionLit, token.NumberLit:
		ver := p.b.Leaf(ast.KindVersionLiteral, p.cur)
		p.advance()
		children = append(children, ver)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldVersion, Child: uint32(len(children) - 1)})
	default:
		p.emit(diag.SynExpectModuleName, p.cur.Span, "expected module name or version after '"+kwText+"'")
		return p.finishBroken(kw)
	}

	// Optional import list up to the ';'.
	if !p.at(token.Semicolon) && !p.at(token.EOF) && !p.at(token.RBrace) {
		args := p.parseExpression(precComma)
		if args.IsValid() {
			children = append(children, args)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldArguments, Child: uint32(len(children) - 1)})
		}
	}

	if semi := p.expect(token.Semicolon, ast.KindPunctuation, diag.SynExpectSemicolon, "expected ';' after use statement"); semi.IsValid() {
		children = append(children, semi)
	}
	return p.b.New(ast.KindUseStatement, source.Span{}, children, fields)
}

func (p *Parser) parseRequireStatement() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	switch p.cur.Kind {
	case token.Ident:
		name := p.b.Leaf(ast.KindPackageName, p.cur)
		p.advance()
		children = append(children, name)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldModule, Child: uint32(len(children) - 1)})
	case token.VersionLit, token.NumberLit:
		ver := p.b.Leaf(ast.KindVersionLiteral, p.cur)
		p.advance()
		children = append(children, ver)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldVersion, Child: uint32(len(children) - 1)})
	default:
		expr := p.parseExpression(precComma)
		if !expr.IsValid() {
			p.emit(diag.SynExpectModuleName, p.cur.Span, "expected module name after 'require'")
			return p.finishBroken(kw)
		}
		children = append(children, expr)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldModule, Child: uint32(len(children) - 1)})
	}

	if semi := p.expect(token.Semicolon, ast.KindPunctuation, diag.SynExpectSemicolon, "expected ';' after require"); semi.IsValid() {
		children = append(children, semi)
	}
	return p.b.New(ast.KindRequireStatement, source.Span{}, children, fields)
}

// parseSubDeclaration parses `sub name [...] block`.
func (p *Parser) parseSubDeclaration() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	name := p.b.Leaf(ast.KindBareword, p.cur)
	p.advance()

	children := []ast.NodeID{kw, name}
	fields := []ast.FieldEntry{{Field: ast.FieldName_, Child: 1}}

	// Prototype / signature: spanned but not interpreted.
	if p.at(token.LParen) {
		proto := p.skipBalanced(token.LParen, token.RParen)
		children = append(children, proto)
	}

	if p.at(token.Semicolon) {
		// Forward declaration.
		semi := p.eat(token.Semicolon, ast.KindPunctuation)
		children = append(children, semi)
		return p.b.New(ast.KindSubroutineDeclaration, source.Span{}, children, fields)
	}

	if !p.at(token.LBrace) {
		p.emit(diag.SynExpectBlock, p.cur.Span, "expected block for subroutine body")
		return p.finishBroken(children...)
	}
	body := p.parseBlock()
	children = append(children, body)
	fields = append(fields, ast.FieldEntry{Field: ast.FieldBody, Child: uint32(len(children) - 1)})
	return p.b.New(ast.KindSubroutineDeclaration, source.Span{}, children, fields)
}

// parseVariableDeclaration parses `my $x`, `my ($a, $b) = ...`, etc.,
// including an optional initializer and statement modifier.
func (p *Parser) parseVariableDeclaration() ast.NodeID {
	kwText := p.cur.Text
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	switch {
	case p.cur.IsVariable():
		v := p.b.Leaf(ast.KindVariable, p.cur)
		p.advance()
		children = append(children, v)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldVariable, Child: uint32(len(children) - 1)})

	case p.at(token.LParen):
		lp := p.eat(token.LParen, ast.KindPunctuation)
		children = append(children, lp)
		for p.cur.IsVariable() || p.at(token.Comma) {
			if p.at(token.Comma) {
				children = append(children, p.eat(token.Comma, ast.KindPunctuation))
				continue
			}
			v := p.b.Leaf(ast.KindVariable, p.cur)
			p.advance()
			children = append(children, v)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldVariables, Child: uint32(len(children) - 1)})
		}
		if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')' in declaration list"); rp.IsValid() {
			children = append(children, rp)
		}

	default:
		p.emit(diag.SynExpectVariable, p.cur.Span, "expected variable after '"+kwText+"'")
		return p.finishBroken(kw)
	}

	if p.cur.IsAssignOp() {
		op := p.b.Leaf(ast.KindOperator, p.cur)
		p.advance()
		children = append(children, op)
		value := p.parseExpression(precLowest)
		if value.IsValid() {
			children = append(children, value)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldValue, Child: uint32(len(children) - 1)})
		} else {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after '='")
		}
	}

	decl := p.b.New(ast.KindVariableDeclaration, source.Span{}, children, fields)
	return p.finishSimpleStatement(decl)
}

// parseConditionalStatement parses if/unless with elsif/else chains.
func (p *Parser) parseConditionalStatement() ast.NodeID {
	isUnless := p.at(token.KwUnless)
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	cond := p.parseParenCondition()
	if cond.IsValid() {
		children = append(children, cond)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldCondition, Child: uint32(len(children) - 1)})
	}

	body := p.parseBlockOrError()
	children = append(children, body)
	fields = append(fields, ast.FieldEntry{Field: ast.FieldConsequence, Child: uint32(len(children) - 1)})

	for p.at(token.KwElsif) {
		clause := p.parseElsifClause()
		children = append(children, clause)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldAlternative, Child: uint32(len(children) - 1)})
	}
	if p.at(token.KwElse) {
		ekw := p.b.Leaf(ast.KindKeyword, p.cur)
		p.advance()
		ebody := p.parseBlockOrError()
		clause := p.b.New(ast.KindElseClause, source.Span{}, []ast.NodeID{ekw, ebody},
			[]ast.FieldEntry{{Field: ast.FieldBody, Child: 1}})
		children = append(children, clause)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldAlternative, Child: uint32(len(children) - 1)})
	}

	kind := ast.KindIfStatement
	if isUnless {
		kind = ast.KindUnlessStatement
	}
	return p.b.New(kind, source.Span{}, children, fields)
}

func (p *Parser) parseElsifClause() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()
	cond := p.parseParenCondition()
	body := p.parseBlockOrError()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry
	if cond.IsValid() {
		children = append(children, cond)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldCondition, Child: uint32(len(children) - 1)})
	}
	children = append(children, body)
	fields = append(fields, ast.FieldEntry{Field: ast.FieldBody, Child: uint32(len(children) - 1)})
	return p.b.New(ast.KindElsifClause, source.Span{}, children, fields)
}

func (p *Parser) parseWhileStatement() ast.NodeID {
	isUntil := p.at(token.KwUntil)
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	cond := p.parseParenCondition()
	if cond.IsValid() {
		children = append(children, cond)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldCondition, Child: uint32(len(children) - 1)})
	}
	body := p.parseBlockOrError()
	children = append(children, body)
	fields = append(fields, ast.FieldEntry{Field: ast.FieldBody, Child: uint32(len(children) - 1)})

	kind := ast.KindWhileStatement
	if isUntil {
		kind = ast.KindUntilStatement
	}
	return p.b.New(kind, source.Span{}, children, fields)
}

// parseForStatement distinguishes C-style `for (init; cond; update)` from
// list-style `foreach my $x (list)`.
func (p *Parser) parseForStatement() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	// Optional loop variable: `my $x` or a plain `$x`.
	hasLoopVar := false
	if p.atAny(token.KwMy, token.KwOur, token.KwState) {
		dkw := p.b.Leaf(ast.KindKeyword, p.cur)
		p.advance()
		if p.cur.IsVariable() {
			v := p.b.Leaf(ast.KindVariable, p.cur)
			p.advance()
			decl := p.b.New(ast.KindVariableDeclaration, source.Span{},
				[]ast.NodeID{dkw, v},
				[]ast.FieldEntry{{Field: ast.FieldVariable, Child: 1}})
			children = append(children, decl)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldVariable, Child: uint32(len(children) - 1)})
			hasLoopVar = true
		} else {
			children = append(children, dkw)
			p.emit(diag.SynExpectVariable, p.cur.Span, "expected loop variable")
		}
	} else if p.cur.IsVariable() {
		v := p.b.Leaf(ast.KindVariable, p.cur)
		p.advance()
		children = append(children, v)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldVariable, Child: uint32(len(children) - 1)})
		hasLoopVar = true
	}

	if !p.at(token.LParen) {
		p.emit(diag.SynBadForHeader, p.cur.Span, "expected '(' in loop header")
		return p.finishBroken(children...)
	}
	lp := p.eat(token.LParen, ast.KindPunctuation)
	children = append(children, lp)

	// C-style only without a loop variable: (init; cond; update).
	cStyle := false
	if !hasLoopVar {
		cStyle = p.looksLikeCStyleFor()
	}

	if cStyle {
		init := p.parseOptionalExprUntil(token.Semicolon)
		if init.IsValid() {
			children = append(children, init)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldInit, Child: uint32(len(children) - 1)})
		}
		children = append(children, p.eat(token.Semicolon, ast.KindPunctuation))
		cond := p.parseOptionalExprUntil(token.Semicolon)
		if cond.IsValid() {
			children = append(children, cond)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldCondition, Child: uint32(len(children) - 1)})
		}
		children = append(children, p.eat(token.Semicolon, ast.KindPunctuation))
		update := p.parseOptionalExprUntil(token.RParen)
		if update.IsValid() {
			children = append(children, update)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldUpdate, Child: uint32(len(children) - 1)})
		}
	} else {
		list := p.parseExpression(precLowest)
		if list.IsValid() {
			children = append(children, list)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldList, Child: uint32(len(children) - 1)})
		}
	}

	if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')' in loop header"); rp.IsValid() {
		children = append(children, rp)
	}

	body := p.parseBlockOrError()
	children = append(children, body)
	fields = append(fields, ast.FieldEntry{Field: ast.FieldBody, Child: uint32(len(children) - 1)})

	kind := ast.KindForeachStatement
	if cStyle {
		kind = ast.KindForStatement
	}
	return p.b.New(kind, source.Span{}, children, fields)
}

// looksLikeCStyleFor peeks for a ';' before the matching ')' at depth zero.
// Only a bounded window is inspected; a huge header falls back to list
// form, which the error recovery then sorts out.
func (p *Parser) looksLikeCStyleFor() bool {
	if p.at(token.Semicolon) {
		return true
	}
	depth := 0
	for i := 0; i < 64; i++ {
		tok := p.lx.PeekN(i)
		switch tok.Kind {
		case token.Semicolon:
			if depth == 0 {
				return true
			}
		case token.LParen:
			depth++
		case token.RParen:
			if depth == 0 {
				return false
			}
			depth--
		case token.EOF:
			return false
		}
	}
	return false
}

func (p *Parser) parseOptionalExprUntil(stop token.Kind) ast.NodeID {
	if p.at(stop) {
		return ast.NoNodeID
	}
	return p.parseExpression(precLowest)
}

func (p *Parser) parseReturnStatement() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	if !p.atAny(token.Semicolon, token.RBrace, token.EOF) &&
		!p.atAny(token.KwIf, token.KwUnless, token.KwWhile, token.KwUntil, token.KwFor, token.KwForeach) {
		value := p.parseExpression(precLowest)
		if value.IsValid() {
			children = append(children, value)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldValue, Child: uint32(len(children) - 1)})
		}
	}

	ret := p.b.New(ast.KindReturnStatement, source.Span{}, children, fields)
	return p.finishSimpleStatement(ret)
}

func (p *Parser) parseLoopControl() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry
	if p.at(token.Ident) {
		label := p.b.Leaf(ast.KindLabel, p.cur)
		p.advance()
		children = append(children, label)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldLabel, Child: 1})
	}
	ctl := p.b.New(ast.KindLoopControlStatement, source.Span{}, children, fields)
	return p.finishSimpleStatement(ctl)
}

// parseBlock parses `{ statements }`.
func (p *Parser) parseBlock() ast.NodeID {
	lb := p.eat(token.LBrace, ast.KindPunctuation)
	children := []ast.NodeID{lb}
	children = append(children, p.parseStatements(token.RBrace)...)
	if rb := p.expect(token.RBrace, ast.KindPunctuation, diag.SynUnclosedBrace, "expected '}' to close block"); rb.IsValid() {
		children = append(children, rb)
	}
	return p.b.New(ast.KindBlock, source.Span{}, children, nil)
}

func (p *Parser) parseBlockOrError() ast.NodeID {
	if p.at(token.LBrace) {
		return p.parseBlock()
	}
	p.emit(diag.SynExpectBlock, p.cur.Span, "expected block")
	return p.resyncStatement(p.cur.Span)
}

// parseParenCondition parses `( expr )`.
func (p *Parser) parseParenCondition() ast.NodeID {
	if !p.at(token.LParen) {
		p.emit(diag.SynExpectConditional, p.cur.Span, "expected '(' before condition")
		return ast.NoNodeID
	}
	lp := p.eat(token.LParen, ast.KindPunctuation)
	expr := p.parseExpression(precLowest)
	children := []ast.NodeID{lp}
	var fields []ast.FieldEntry
	if expr.IsValid() {
		children = append(children, expr)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldCondition, Child: 1})
	} else {
		p.emit(diag.SynExpectExpression, p.cur.Span, "expected condition expression")
	}
	if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')' after condition"); rp.IsValid() {
		children = append(children, rp)
	}
	return p.b.New(ast.KindParenExpression, source.Span{}, children, fields)
}

// parseExpressionStatement parses `expr [modifier] ;`.
func (p *Parser) parseExpressionStatement() ast.NodeID {
	start := p.cur.Span
	expr := p.parseExpression(precLowest)
	if !expr.IsValid() {
		p.emit(diag.SynUnexpectedToken, p.cur.Span, "unexpected token '"+p.cur.Text+"'")
		return p.resyncStatement(start)
	}
	stmt := p.b.New(ast.KindExpressionStatement, source.Span{}, []ast.NodeID{expr}, nil)
	return p.finishSimpleStatement(stmt)
}

// finishSimpleStatement attaches an optional statement modifier and the
// terminating ';' to an already-built statement node.
func (p *Parser) finishSimpleStatement(stmt ast.NodeID) ast.NodeID {
	if p.atAny(token.KwIf, token.KwUnless, token.KwWhile, token.KwUntil, token.KwFor, token.KwForeach) {
		kw := p.b.Leaf(ast.KindKeyword, p.cur)
		p.advance()
		cond := p.parseExpression(precLowest)
		children := []ast.NodeID{stmt, kw}
		fields := []ast.FieldEntry{{Field: ast.FieldBody, Child: 0}}
		if cond.IsValid() {
			children = append(children, cond)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldCondition, Child: 2})
		} else {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after statement modifier")
		}
		stmt = p.b.New(ast.KindStatementModifier, source.Span{}, children, fields)
	}

	if p.atAny(token.RBrace, token.EOF) {
		// Last statement in a block may omit the ';'.
		return stmt
	}
	if semi := p.eat(token.Semicolon, ast.KindPunctuation); semi.IsValid() {
		n := p.b.Arena().Get(uint32(stmt))
		children := append(append([]ast.NodeID{}, n.Children...), semi)
		fields := append([]ast.FieldEntry{}, n.Fields...)
		return p.b.New(n.Kind, source.Span{}, children, fields)
	}
	p.emit(diag.SynExpectSemicolon, p.cur.Span, "expected ';' after statement")
	return stmt
}

// finishBroken wraps whatever was parsed so far plus the resync region
// into an error statement.
func (p *Parser) finishBroken(parsed ...ast.NodeID) ast.NodeID {
	rec := p.resyncStatement(p.cur.Span)
	children := append(append([]ast.NodeID{}, parsed...), rec)
	return p.b.New(ast.KindError, source.Span{}, children, nil)
}

// skipBalanced consumes a balanced delimiter run as a single punctuation
// leaf-ish error-tolerant node (used for sub prototypes).
func (p *Parser) skipBalanced(open, close token.Kind) ast.NodeID {
	start := p.cur.Span
	depth := 0
	span := start
	for !p.at(token.EOF) {
		span = span.Cover(p.cur.Span)
		if p.at(open) {
			depth++
		} else if p.at(close) {
			depth--
			p.advance()
			if depth == 0 {
				break
			}
			continue
		}
		p.advance()
	}
	return p.b.New(ast.KindPunctuation, span, nil, nil)
}
