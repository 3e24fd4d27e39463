package lexer

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// scanNumber reads decimal, float, hex (0x), octal (0o or leading 0),
// binary (0b) literals with _ separators, plus dotted version literals
// (5.10.0, v5.36).
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()

	if lx.cursor.Peek() == '0' {
		switch lx.cursor.PeekAt(1) {
		case 'x', 'X':
			lx.cursor.Bump()
			lx.cursor.Bump()
			if !lx.scanDigits(isHex) {
				lx.errLex(diag.LexBadNumber, lx.cursor.SpanFrom(start), "hex literal needs digits")
			}
			return lx.tokenFrom(token.NumberLit, start)
		case 'b', 'B':
			lx.cursor.Bump()
			lx.cursor.Bump()
			if !lx.scanDigits(func(b byte) bool { return b == '0' || b == '1' }) {
				lx.errLex(diag.LexBadNumber, lx.cursor.SpanFrom(start), "binary literal needs digits")
			}
			return lx.tokenFrom(token.NumberLit, start)
		case 'o', 'O':
			lx.cursor.Bump()
			lx.cursor.Bump()
			if !lx.scanDigits(func(b byte) bool { return b >= '0' && b <= '7' }) {
				lx.errLex(diag.LexBadNumber, lx.cursor.SpanFrom(start), "octal literal needs digits")
			}
			return lx.tokenFrom(token.NumberLit, start)
		}
	}

	lx.scanDigits(isDec)

	dots := 0
	for lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
		dots++
		lx.cursor.Bump()
		lx.scanDigits(isDec)
		if dots >= 2 {
			// 5.10.0 style version literal: keep consuming dotted groups.
			for lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
				lx.cursor.Bump()
				lx.scanDigits(isDec)
			}
			return lx.tokenFrom(token.VersionLit, start)
		}
		if lx.cursor.Peek() != '.' {
			break
		}
	}

	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		next := lx.cursor.PeekAt(1)
		if isDec(next) || ((next == '+' || next == '-') && isDec(lx.cursor.PeekAt(2))) {
			lx.cursor.Bump()
			if b := lx.cursor.Peek(); b == '+' || b == '-' {
				lx.cursor.Bump()
			}
			lx.scanDigits(isDec)
		}
	}

	return lx.tokenFrom(token.NumberLit, start)
}

// scanDigits consumes a run of digits with _ separators; reports whether at
// least one digit was read.
func (lx *Lexer) scanDigits(valid func(byte) bool) bool {
	seen := false
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if valid(b) {
			seen = true
			lx.cursor.Bump()
			continue
		}
		if b == '_' && valid(lx.cursor.PeekAt(1)) {
			lx.cursor.Bump()
			continue
		}
		break
	}
	return seen
}

// scanVString reads a v5.36.0 literal; the caller has checked the leading
// 'v' and a following digit.
func (lx *Lexer) scanVString() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // 'v'
	lx.scanDigits(isDec)
	for lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
		lx.cursor.Bump()
		lx.scanDigits(isDec)
	}
	return lx.tokenFrom(token.VersionLit, start)
}
