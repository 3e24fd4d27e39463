package lexer

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// scanScalarSigil reads $name, $Foo::bar, $$ref-ish sigil chains, ${name},
// punctuation variables ($_, $0, $!, ...) and the $#array last-index form.
func (lx *Lexer) scanScalarSigil() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '$'

	// $#array / $#{...}
	if lx.cursor.Peek() == '#' && (isIdentStartByte(lx.cursor.PeekAt(1)) || lx.cursor.PeekAt(1) == '{' || lx.cursor.PeekAt(1) == '$') {
		lx.cursor.Bump()
		lx.scanVarName()
		return lx.tokenFrom(token.ArrayLenVar, start)
	}

	lx.scanVarName()
	return lx.tokenFrom(token.ScalarVar, start)
}

// scanSigil reads a @/%/&/* sigiled variable.
func (lx *Lexer) scanSigil(sigil byte, kind token.Kind) token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump()
	lx.scanVarName()
	return lx.tokenFrom(kind, start)
}

// scanVarName consumes the name part after a sigil: an identifier chain
// with :: qualifiers, a ${...}-style braced name, a chained $ deref, or a
// single punctuation variable. Consuming nothing is fine; the parser treats
// a bare sigil token as the head of a deref expression.
func (lx *Lexer) scanVarName() {
	b := lx.cursor.Peek()
	switch {
	case b == '{':
		// ${name}: only the simple braced-name form is folded into the
		// token; ${ complex expr } is left for the parser.
		save := lx.cursor.Mark()
		lx.cursor.Bump()
		if isIdentStartByte(lx.cursor.Peek()) {
			lx.scanIdentTail()
			for {
				b0, b1, ok := lx.cursor.Peek2()
				if !ok || b0 != ':' || b1 != ':' {
					break
				}
				lx.cursor.Bump()
				lx.cursor.Bump()
				lx.scanIdentTail()
			}
			if lx.cursor.Eat('}') {
				return
			}
		}
		lx.cursor.Reset(save)

	case isIdentStartByte(b) || b >= utf8RuneSelf:
		lx.scanIdentTail()
		for {
			b0, b1, ok := lx.cursor.Peek2()
			if !ok || b0 != ':' || b1 != ':' {
				break
			}
			lx.cursor.Bump()
			lx.cursor.Bump()
			lx.scanIdentTail()
		}

	case isDec(b):
		// $1, $2 ... capture variables: digits only.
		for isDec(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}

	case b == '$':
		// $$foo: chained deref sigil; fold one level and recurse.
		if lx.sigilFollows(1) {
			lx.cursor.Bump()
			lx.scanVarName()
		} else if isPunctVarByte(b) {
			lx.cursor.Bump() // $$ (pid)
		}

	case isPunctVarByte(b):
		lx.cursor.Bump()
		// $^W style control variables.
		if b == '^' && isIdentStartByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
	}
}
