package lexer

import (
	"unicode/utf8"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// scanIdentOrKeyword reads a bareword: a plain identifier, a ::-qualified
// package name, a keyword, or (in operator position) a word operator like
// x, eq, lt.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	inOperatorPos := !lx.expectTerm()

	lx.scanIdentTail()

	// Qualified names: Foo::Bar::baz, also the trailing Foo:: form.
	for {
		b0, b1, ok := lx.cursor.Peek2()
		if !ok || b0 != ':' || b1 != ':' {
			break
		}
		lx.cursor.Bump()
		lx.cursor.Bump()
		lx.scanIdentTail()
	}

	tok := lx.tokenFrom(token.Ident, start)

	if inOperatorPos {
		if opKind, ok := token.LookupWordOp(tok.Text); ok {
			tok.Kind = opKind
			return tok
		}
	} else if qtok, ok := lx.tryScanQuoteLike(tok.Text, start); ok {
		return qtok
	}

	if kw := token.LookupKeyword(tok.Text); kw != token.Ident {
		tok.Kind = kw
		return tok
	}

	// A bareword at statement start followed by a single colon is a label.
	if lx.atStatementStart() && lx.cursor.Peek() == ':' && lx.cursor.PeekAt(1) != ':' {
		tok.Kind = token.Label
	}
	return tok
}

// scanIdentTail consumes identifier continue bytes, including non-ASCII
// runes (Perl allows Unicode identifiers under `use utf8`).
func (lx *Lexer) scanIdentTail() {
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if isIdentContinueByte(b) {
			lx.cursor.Bump()
			continue
		}
		if b >= utf8RuneSelf {
			r, size := utf8.DecodeRune(lx.file.Content[lx.cursor.Off:lx.cursor.Limit])
			if r == utf8.RuneError && size <= 1 {
				return
			}
			for i := 0; i < size; i++ {
				lx.cursor.Bump()
			}
			continue
		}
		return
	}
}

// atStatementStart approximates "start of a statement" from the previous
// significant token.
func (lx *Lexer) atStatementStart() bool {
	if !lx.started {
		return true
	}
	switch lx.prev {
	case token.Semicolon, token.LBrace, token.RBrace:
		return true
	default:
		return false
	}
}
