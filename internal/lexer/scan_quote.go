package lexer

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// scanDelimitedString reads a '...'/"..."/`...` literal. Perl strings may
// span lines, so only EOF is an error.
func (lx *Lexer) scanDelimitedString(kind token.Kind, quote byte) token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // opening quote
	for !lx.cursor.EOF() {
		b := lx.cursor.Bump()
		if b == '\\' && !lx.cursor.EOF() {
			lx.cursor.Bump()
			continue
		}
		if b == quote {
			return lx.tokenFrom(kind, start)
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return lx.tokenFrom(token.Invalid, start)
}

// quoteLikeSpec describes how many delimited parts a quote-like operator
// has and whether trailing modifier letters follow.
type quoteLikeSpec struct {
	kind      token.Kind
	parts     int
	modifiers bool
}

// quoteLikeOps maps the operator word to its shape. m//, s///, tr///, y///
// take regex modifiers; q/qq/qw/qr take none except qr.
var quoteLikeOps = map[string]quoteLikeSpec{
	"q":  {kind: token.QuoteQ, parts: 1},
	"qq": {kind: token.QuoteQQ, parts: 1},
	"qw": {kind: token.QuoteQW, parts: 1},
	"qr": {kind: token.QuoteQR, parts: 1, modifiers: true},
	"m":  {kind: token.Match, parts: 1, modifiers: true},
	"s":  {kind: token.Subst, parts: 2, modifiers: true},
	"tr": {kind: token.Translit, parts: 2, modifiers: true},
	"y":  {kind: token.Translit, parts: 2, modifiers: true},
}

// tryScanQuoteLike recognizes q/qq/qw/qr/m/s/tr/y with an arbitrary
// delimiter. Called from the ident scanner before bareword handling; the
// cursor sits on the operator word's first byte. Returns false when the
// word is followed by something that cannot be a delimiter (then it is an
// ordinary bareword: `s = 1` never happens, but `m < $x` must stay a
// comparison of the bareword m... in practice, `=>` and word chars bail).
func (lx *Lexer) tryScanQuoteLike(word string, start Mark) (token.Token, bool) {
	spec, ok := quoteLikeOps[word]
	if !ok {
		return token.Token{}, false
	}

	// Optional whitespace between the word and the delimiter. A newline,
	// `=>`, `=`, or a comma means this was a bareword after all.
	save := lx.cursor.Mark()
	for isSpaceByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	delim := lx.cursor.Peek()
	if delim == 0 || delim == '\n' || delim == ',' || delim == ';' ||
		delim == '=' || isIdentContinueByte(delim) {
		lx.cursor.Reset(save)
		return token.Token{}, false
	}

	if !lx.scanDelimitedPart(delim, start) {
		return lx.tokenFrom(token.Invalid, start), true
	}
	if spec.parts == 2 {
		if isPairedDelimiter(delim) {
			// s{...}{...}: the replacement picks its own delimiter.
			for isSpaceByte(lx.cursor.Peek()) || lx.cursor.Peek() == '\n' {
				lx.cursor.Bump()
			}
			delim = lx.cursor.Peek()
			if delim == 0 {
				sp := lx.cursor.SpanFrom(start)
				lx.errLex(diag.LexBadDelimiter, sp, "missing replacement delimiter")
				return lx.tokenFrom(token.Invalid, start), true
			}
			if !lx.scanDelimitedPart(delim, start) {
				return lx.tokenFrom(token.Invalid, start), true
			}
		} else {
			// Non-paired s/.../.../: the middle delimiter already closed
			// part one; scan to the final one.
			if !lx.scanToDelimiter(delim, delim, false) {
				sp := lx.cursor.SpanFrom(start)
				lx.errLex(diag.LexUnterminatedQuoteLike, sp, "unterminated "+word+" operator")
				return lx.tokenFrom(token.Invalid, start), true
			}
		}
	}

	if spec.modifiers {
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
	}
	return lx.tokenFrom(spec.kind, start), true
}

// scanDelimitedPart consumes one delimited section including both
// delimiters, handling nesting for paired delimiters.
func (lx *Lexer) scanDelimitedPart(open byte, start Mark) bool {
	lx.cursor.Bump() // opening delimiter
	closing := closingDelimiter(open)
	if !lx.scanToDelimiter(open, closing, isPairedDelimiter(open)) {
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnterminatedQuoteLike, sp, "unterminated quote-like operator")
		return false
	}
	return true
}

// scanToDelimiter consumes up to and including the closing delimiter,
// honoring backslash escapes and, for paired delimiters, nesting.
func (lx *Lexer) scanToDelimiter(open, closing byte, paired bool) bool {
	depth := 1
	for !lx.cursor.EOF() {
		b := lx.cursor.Bump()
		switch {
		case b == '\\' && !lx.cursor.EOF():
			lx.cursor.Bump()
		case paired && b == open:
			depth++
		case b == closing:
			depth--
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// scanBareMatch reads /pattern/mods in term position.
func (lx *Lexer) scanBareMatch() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '/'
	if !lx.scanToDelimiter('/', '/', false) {
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnterminatedQuoteLike, sp, "unterminated pattern match")
		return lx.tokenFrom(token.Invalid, start)
	}
	for isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	return lx.tokenFrom(token.Match, start)
}
