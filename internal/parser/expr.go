package parser

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/ast"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// Binding powers, weakest first. The table follows perlop; the low
// precedence word operators (or, and, not) sit below assignment.
const (
	precLowest = iota + 1 // or, xor
	precWordAnd           // and
	precWordNot           // not (prefix)
	precComma             // , =>
	precAssign            // = += -= ... (right associative)
	precTernary           // ?: (right associative)
	precRange             // .. ...
	precOrOr              // || //
	precAndAnd            // &&
	precBitOr             // | ^
	precBitAnd            // &
	precEquality          // == != <=> eq ne cmp ~~
	precRelational        // < > <= >= lt gt le ge
	precShift             // << >>
	precAdditive          // + - .
	precMultiplicative    // * / % x
	precBind              // =~ !~
	precUnary             // ! ~ \ unary + unary - (prefix)
	precPower             // ** (right associative)
)

type opInfo struct {
	prec       int
	rightAssoc bool
}

var binaryOps = map[token.Kind]opInfo{
	token.KwOr:  {precLowest, false},
	token.KwXor: {precLowest, false},
	token.KwAnd: {precWordAnd, false},

	token.Comma:    {precComma, false},
	token.FatComma: {precComma, false},

	token.Assign:           {precAssign, true},
	token.PlusAssign:       {precAssign, true},
	token.MinusAssign:      {precAssign, true},
	token.StarAssign:       {precAssign, true},
	token.SlashAssign:      {precAssign, true},
	token.DotAssign:        {precAssign, true},
	token.PercentAssign:    {precAssign, true},
	token.XAssign:          {precAssign, true},
	token.AndAndAssign:     {precAssign, true},
	token.OrOrAssign:       {precAssign, true},
	token.SlashSlashAssign: {precAssign, true},
	token.AmpAssign:        {precAssign, true},
	token.PipeAssign:       {precAssign, true},
	token.CaretAssign:      {precAssign, true},
	token.ShlAssign:        {precAssign, true},
	token.ShrAssign:        {precAssign, true},

	token.Question: {precTernary, true},

	token.DotDot:    {precRange, false},
	token.DotDotDot: {precRange, false},

	token.OrOr:       {precOrOr, false},
	token.SlashSlash: {precOrOr, false},
	token.AndAnd:     {precAndAnd, false},

	token.Pipe:  {precBitOr, false},
	token.Caret: {precBitOr, false},
	token.Amp:   {precBitAnd, false},

	token.EqEq:       {precEquality, false},
	token.BangEq:     {precEquality, false},
	token.Spaceship:  {precEquality, false},
	token.KwEqStr:    {precEquality, false},
	token.KwNeStr:    {precEquality, false},
	token.KwCmpStr:   {precEquality, false},
	token.SmartMatch: {precEquality, false},

	token.Lt:      {precRelational, false},
	token.Gt:      {precRelational, false},
	token.LtEq:    {precRelational, false},
	token.GtEq:    {precRelational, false},
	token.KwLtStr: {precRelational, false},
	token.KwGtStr: {precRelational, false},
	token.KwLeStr: {precRelational, false},
	token.KwGeStr: {precRelational, false},

	token.Shl: {precShift, false},
	token.Shr: {precShift, false},

	token.Plus:  {precAdditive, false},
	token.Minus: {precAdditive, false},
	token.Dot:   {precAdditive, false},

	token.Star:    {precMultiplicative, false},
	token.Slash:   {precMultiplicative, false},
	token.Percent: {precMultiplicative, false},
	token.KwX:     {precMultiplicative, false},

	token.BindMatch:    {precBind, false},
	token.BindNotMatch: {precBind, false},

	token.StarStar: {precPower, true},
}

// parseExpression parses an expression whose binary operators all bind at
// least as tightly as minPrec. Returns NoNodeID when no expression starts
// at the current token.
func (p *Parser) parseExpression(minPrec int) ast.NodeID {
	lhs := p.parsePrefix(minPrec)
	if !lhs.IsValid() {
		return ast.NoNodeID
	}
	return p.parseBinaryRHS(lhs, minPrec)
}

// parsePrefix handles the prefix operators and falls through to terms.
func (p *Parser) parsePrefix(minPrec int) ast.NodeID {
	switch p.cur.Kind {
	case token.Bang, token.Tilde, token.Plus, token.Minus:
		op := p.b.Leaf(ast.KindOperator, p.cur)
		p.advance()
		operand := p.parsePrefix(precUnary)
		if !operand.IsValid() {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected operand")
			return op
		}
		return p.b.New(ast.KindUnaryExpression, source.Span{},
			[]ast.NodeID{op, operand},
			[]ast.FieldEntry{{Field: ast.FieldOperator, Child: 0}, {Field: ast.FieldOperand, Child: 1}})

	case token.Backslash:
		op := p.b.Leaf(ast.KindOperator, p.cur)
		p.advance()
		operand := p.parsePrefix(precUnary)
		if !operand.IsValid() {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after '\\'")
			return op
		}
		return p.b.New(ast.KindReferenceExpression, source.Span{},
			[]ast.NodeID{op, operand},
			[]ast.FieldEntry{{Field: ast.FieldOperand, Child: 1}})

	case token.PlusPlus, token.MinusMinus:
		op := p.b.Leaf(ast.KindOperator, p.cur)
		p.advance()
		operand := p.parsePrefix(precUnary)
		if !operand.IsValid() {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected operand")
			return op
		}
		return p.b.New(ast.KindUnaryExpression, source.Span{},
			[]ast.NodeID{op, operand},
			[]ast.FieldEntry{{Field: ast.FieldOperator, Child: 0}, {Field: ast.FieldOperand, Child: 1}})

	case token.KwNot:
		op := p.b.Leaf(ast.KindOperator, p.cur)
		p.advance()
		operand := p.parseExpression(precWordNot)
		if !operand.IsValid() {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after 'not'")
			return op
		}
		return p.b.New(ast.KindUnaryExpression, source.Span{},
			[]ast.NodeID{op, operand},
			[]ast.FieldEntry{{Field: ast.FieldOperator, Child: 0}, {Field: ast.FieldOperand, Child: 1}})

	case token.KwMy, token.KwOur, token.KwLocal, token.KwState:
		// Declaration in expression position: for headers, conditions.
		return p.parseDeclarationTerm()

	default:
		return p.parsePostfixChain(p.parseTerm())
	}
}

// parseDeclarationTerm parses `my $x` / `my ($a, $b)` as a term; the
// surrounding expression supplies any initializer.
func (p *Parser) parseDeclarationTerm() ast.NodeID {
	kw := p.b.Leaf(ast.KindKeyword, p.cur)
	kwText := p.cur.Text
	p.advance()

	children := []ast.NodeID{kw}
	var fields []ast.FieldEntry

	switch {
	case p.cur.IsVariable():
		v := p.b.Leaf(ast.KindVariable, p.cur)
		p.advance()
		children = append(children, v)
		fields = append(fields, ast.FieldEntry{Field: ast.FieldVariable, Child: 1})
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
	}

	return p.b.New(ast.KindVariableDeclaration, source.Span{}, children, fields)
}

// parseBinaryRHS climbs the precedence ladder from lhs.
func (p *Parser) parseBinaryRHS(lhs ast.NodeID, minPrec int) ast.NodeID {
	for {
		info, ok := binaryOps[p.cur.Kind]
		if !ok || info.prec < minPrec {
			return lhs
		}

		switch {
		case p.cur.Kind == token.Comma || p.cur.Kind == token.FatComma:
			lhs = p.parseListTail(lhs)

		case p.cur.Kind == token.Question:
			lhs = p.parseTernary(lhs)

		case info.prec == precAssign:
			op := p.b.Leaf(ast.KindOperator, p.cur)
			p.advance()
			rhs := p.parseExpression(precAssign)
			if !rhs.IsValid() {
				p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after assignment operator")
				return lhs
			}
			lhs = p.b.New(ast.KindAssignmentExpression, source.Span{},
				[]ast.NodeID{lhs, op, rhs},
				[]ast.FieldEntry{
					{Field: ast.FieldLeft, Child: 0},
					{Field: ast.FieldOperator, Child: 1},
					{Field: ast.FieldRight, Child: 2},
				})

		default:
			op := p.b.Leaf(ast.KindOperator, p.cur)
			p.advance()
			next := info.prec + 1
			if info.rightAssoc {
				next = info.prec
			}
			rhs := p.parseExpression(next)
			if !rhs.IsValid() {
				p.emit(diag.SynExpectExpression, p.cur.Span, "expected right operand")
				return lhs
			}
			lhs = p.b.New(ast.KindBinaryExpression, source.Span{},
				[]ast.NodeID{lhs, op, rhs},
				[]ast.FieldEntry{
					{Field: ast.FieldLeft, Child: 0},
					{Field: ast.FieldOperator, Child: 1},
					{Field: ast.FieldRight, Child: 2},
				})
		}
	}
}

// parseListTail folds a run of ','/'=>' separated elements into one flat
// list node. Trailing separators are legal.
func (p *Parser) parseListTail(first ast.NodeID) ast.NodeID {
	children := []ast.NodeID{first}
	for p.at(token.Comma) || p.at(token.FatComma) {
		children = append(children, p.eat(p.cur.Kind, ast.KindPunctuation))
		elem := p.parseExpression(precAssign)
		if !elem.IsValid() {
			break
		}
		children = append(children, elem)
	}
	return p.b.New(ast.KindListExpression, source.Span{}, children, nil)
}

// parseTernary parses `cond ? then : else`, right associative.
func (p *Parser) parseTernary(cond ast.NodeID) ast.NodeID {
	q := p.eat(token.Question, ast.KindOperator)
	thenExpr := p.parseExpression(precAssign)
	if !thenExpr.IsValid() {
		p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after '?'")
		return cond
	}
	children := []ast.NodeID{cond, q, thenExpr}
	fields := []ast.FieldEntry{
		{Field: ast.FieldCondition, Child: 0},
		{Field: ast.FieldConsequence, Child: 2},
	}
	if colon := p.expect(token.Colon, ast.KindOperator, diag.SynUnexpectedToken, "expected ':' in conditional expression"); colon.IsValid() {
		children = append(children, colon)
		elseExpr := p.parseExpression(precTernary)
		if elseExpr.IsValid() {
			children = append(children, elseExpr)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldAlternative, Child: uint32(len(children) - 1)})
		} else {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected expression after ':'")
		}
	}
	return p.b.New(ast.KindTernaryExpression, source.Span{}, children, fields)
}

// parsePostfixChain applies `->` chains, adjacent subscripts, and postfix
// increment to a parsed term.
func (p *Parser) parsePostfixChain(term ast.NodeID) ast.NodeID {
	if !term.IsValid() {
		return term
	}
	for {
		switch p.cur.Kind {
		case token.Arrow:
			term = p.parseArrowSegment(term)

		case token.LBracket:
			term = p.parseIndexAccess(term)

		case token.LBrace:
			if !p.subscriptBraceFollows(term) {
				return term
			}
			term = p.parseKeyAccess(term)

		case token.LParen:
			if !p.callParenFollows(term) {
				return term
			}
			term = p.parseCallArgs(term)

		case token.PlusPlus, token.MinusMinus:
			op := p.b.Leaf(ast.KindOperator, p.cur)
			p.advance()
			term = p.b.New(ast.KindPostfixExpression, source.Span{},
				[]ast.NodeID{term, op},
				[]ast.FieldEntry{{Field: ast.FieldOperand, Child: 0}, {Field: ast.FieldOperator, Child: 1}})

		default:
			return term
		}
	}
}

// subscriptBraceFollows reports whether a '{' directly after term is a
// hash subscript rather than the start of a block or anonymous hash.
// Only variables, subscripts, and deref chains take brace subscripts.
func (p *Parser) subscriptBraceFollows(term ast.NodeID) bool {
	n := p.b.Arena().Get(uint32(term))
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.KindVariable, ast.KindElementAccess, ast.KindSliceExpression, ast.KindDereference:
		return true
	}
	return false
}

// callParenFollows reports whether '(' after term invokes it. Only code
// variables and deref results are directly callable without an arrow.
func (p *Parser) callParenFollows(term ast.NodeID) bool {
	n := p.b.Arena().Get(uint32(term))
	if n == nil {
		return false
	}
	return n.Kind == ast.KindVariable && n.Token == token.FuncVar
}

// parseArrowSegment parses one `->` postfix step.
func (p *Parser) parseArrowSegment(recv ast.NodeID) ast.NodeID {
	arrow := p.eat(token.Arrow, ast.KindOperator)

	switch p.cur.Kind {
	case token.Ident:
		method := p.b.Leaf(ast.KindBareword, p.cur)
		p.advance()
		children := []ast.NodeID{recv, arrow, method}
		fields := []ast.FieldEntry{
			{Field: ast.FieldObject, Child: 0},
			{Field: ast.FieldMethod, Child: 2},
		}
		if p.at(token.LParen) {
			lp := p.eat(token.LParen, ast.KindPunctuation)
			children = append(children, lp)
			if !p.at(token.RParen) {
				args := p.parseExpression(precComma)
				if args.IsValid() {
					children = append(children, args)
					fields = append(fields, ast.FieldEntry{Field: ast.FieldArguments, Child: uint32(len(children) - 1)})
				}
			}
			if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')' after method arguments"); rp.IsValid() {
				children = append(children, rp)
			}
		}
		return p.b.New(ast.KindMethodCallExpression, source.Span{}, children, fields)

	case token.ScalarVar:
		// Dynamic method name: $obj->$method(...).
		method := p.b.Leaf(ast.KindVariable, p.cur)
		p.advance()
		children := []ast.NodeID{recv, arrow, method}
		fields := []ast.FieldEntry{
			{Field: ast.FieldObject, Child: 0},
			{Field: ast.FieldMethod, Child: 2},
		}
		if p.at(token.LParen) {
			lp := p.eat(token.LParen, ast.KindPunctuation)
			children = append(children, lp)
			if !p.at(token.RParen) {
				args := p.parseExpression(precComma)
				if args.IsValid() {
					children = append(children, args)
					fields = append(fields, ast.FieldEntry{Field: ast.FieldArguments, Child: uint32(len(children) - 1)})
				}
			}
			if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')' after method arguments"); rp.IsValid() {
				children = append(children, rp)
			}
		}
		return p.b.New(ast.KindMethodCallExpression, source.Span{}, children, fields)

	case token.LBracket:
		return p.parseIndexAccessArrow(recv, arrow)

	case token.LBrace:
		return p.parseKeyAccessArrow(recv, arrow)

	case token.LParen:
		// Code deref call: $code->(args).
		lp := p.eat(token.LParen, ast.KindPunctuation)
		children := []ast.NodeID{recv, arrow, lp}
		fields := []ast.FieldEntry{{Field: ast.FieldFunction, Child: 0}}
		if !p.at(token.RParen) {
			args := p.parseExpression(precComma)
			if args.IsValid() {
				children = append(children, args)
				fields = append(fields, ast.FieldEntry{Field: ast.FieldArguments, Child: uint32(len(children) - 1)})
			}
		}
		if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')' after call arguments"); rp.IsValid() {
			children = append(children, rp)
		}
		return p.b.New(ast.KindCallExpression, source.Span{}, children, fields)

	case token.ArrayVar, token.HashVar, token.Star, token.Percent:
		// Postfix deref: $ref->@*, $ref->%*.
		leaf := p.b.Leaf(ast.KindOperator, p.cur)
		p.advance()
		if p.at(token.Star) {
			star := p.b.Leaf(ast.KindOperator, p.cur)
			p.advance()
			return p.b.New(ast.KindDereference, source.Span{},
				[]ast.NodeID{recv, arrow, leaf, star},
				[]ast.FieldEntry{{Field: ast.FieldOperand, Child: 0}})
		}
		return p.b.New(ast.KindDereference, source.Span{},
			[]ast.NodeID{recv, arrow, leaf},
			[]ast.FieldEntry{{Field: ast.FieldOperand, Child: 0}})

	default:
		p.emit(diag.SynUnexpectedToken, p.cur.Span, "expected method name or subscript after '->'")
		return p.b.New(ast.KindError, source.Span{}, []ast.NodeID{recv, arrow}, nil)
	}
}

func (p *Parser) parseIndexAccess(recv ast.NodeID) ast.NodeID {
	return p.parseIndexAccessArrow(recv, ast.NoNodeID)
}

func (p *Parser) parseIndexAccessArrow(recv, arrow ast.NodeID) ast.NodeID {
	lb := p.eat(token.LBracket, ast.KindPunctuation)
	children := []ast.NodeID{recv}
	if arrow.IsValid() {
		children = append(children, arrow)
	}
	children = append(children, lb)
	fields := []ast.FieldEntry{{Field: ast.FieldObject, Child: 0}}

	if !p.at(token.RBracket) {
		idx := p.parseExpression(precComma)
		if idx.IsValid() {
			children = append(children, idx)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldIndex, Child: uint32(len(children) - 1)})
		} else {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected index expression")
		}
	}
	if rb := p.expect(token.RBracket, ast.KindPunctuation, diag.SynUnclosedBracket, "expected ']' after index"); rb.IsValid() {
		children = append(children, rb)
	}
	return p.b.New(p.accessKind(recv), source.Span{}, children, fields)
}

func (p *Parser) parseKeyAccess(recv ast.NodeID) ast.NodeID {
	return p.parseKeyAccessArrow(recv, ast.NoNodeID)
}

func (p *Parser) parseKeyAccessArrow(recv, arrow ast.NodeID) ast.NodeID {
	lb := p.eat(token.LBrace, ast.KindPunctuation)
	children := []ast.NodeID{recv}
	if arrow.IsValid() {
		children = append(children, arrow)
	}
	children = append(children, lb)
	fields := []ast.FieldEntry{{Field: ast.FieldObject, Child: 0}}

	if !p.at(token.RBrace) {
		key := p.parseHashKey()
		if key.IsValid() {
			children = append(children, key)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldKey, Child: uint32(len(children) - 1)})
		} else {
			p.emit(diag.SynExpectExpression, p.cur.Span, "expected hash key")
		}
	}
	if rb := p.expect(token.RBrace, ast.KindPunctuation, diag.SynUnclosedBrace, "expected '}' after hash key"); rb.IsValid() {
		children = append(children, rb)
	}
	return p.b.New(p.accessKind(recv), source.Span{}, children, fields)
}

// parseHashKey treats a lone bareword inside `{...}` as a string key.
func (p *Parser) parseHashKey() ast.NodeID {
	if p.at(token.Ident) && p.lx.Peek().Kind == token.RBrace {
		key := p.b.Leaf(ast.KindBareword, p.cur)
		p.advance()
		return key
	}
	if p.at(token.Minus) && p.lx.Peek().Kind == token.Ident && p.lx.PeekN(1).Kind == token.RBrace {
		// `-bareword` keys keep the sign as part of the key expression.
		op := p.b.Leaf(ast.KindOperator, p.cur)
		p.advance()
		word := p.b.Leaf(ast.KindBareword, p.cur)
		p.advance()
		return p.b.New(ast.KindUnaryExpression, source.Span{},
			[]ast.NodeID{op, word},
			[]ast.FieldEntry{{Field: ast.FieldOperator, Child: 0}, {Field: ast.FieldOperand, Child: 1}})
	}
	return p.parseExpression(precComma)
}

// accessKind picks element vs slice by the receiver's sigil. An @ or %
// sigiled receiver makes the subscript a slice.
func (p *Parser) accessKind(recv ast.NodeID) ast.NodeKind {
	n := p.b.Arena().Get(uint32(recv))
	if n != nil && n.Kind == ast.KindVariable {
		switch n.Token {
		case token.ArrayVar, token.HashVar:
			return ast.KindSliceExpression
		}
	}
	return ast.KindElementAccess
}

// parseCallArgs parses `(args)` applied to a callable term.
func (p *Parser) parseCallArgs(callee ast.NodeID) ast.NodeID {
	lp := p.eat(token.LParen, ast.KindPunctuation)
	children := []ast.NodeID{callee, lp}
	fields := []ast.FieldEntry{{Field: ast.FieldFunction, Child: 0}}
	if !p.at(token.RParen) {
		args := p.parseExpression(precComma)
		if args.IsValid() {
			children = append(children, args)
			fields = append(fields, ast.FieldEntry{Field: ast.FieldArguments, Child: uint32(len(children) - 1)})
		}
	}
	if rp := p.expect(token.RParen, ast.KindPunctuation, diag.SynUnclosedParen, "expected ')' after arguments"); rp.IsValid() {
		children = append(children, rp)
	}
	return p.b.New(ast.KindCallExpression, source.Span{}, children, fields)
}
