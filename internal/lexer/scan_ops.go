package lexer

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// scanOperatorOrPunct reads the longest operator or punctuation token at
// the cursor. Unknown bytes produce an Invalid token with a diagnostic.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	b0 := lx.cursor.Bump()
	b1 := lx.cursor.Peek()

	var kind token.Kind
	switch b0 {
	case '-':
		switch b1 {
		case '>':
			lx.cursor.Bump()
			kind = token.Arrow
		case '-':
			lx.cursor.Bump()
			kind = token.MinusMinus
		case '=':
			lx.cursor.Bump()
			kind = token.MinusAssign
		default:
			kind = token.Minus
		}
	case '+':
		switch b1 {
		case '+':
			lx.cursor.Bump()
			kind = token.PlusPlus
		case '=':
			lx.cursor.Bump()
			kind = token.PlusAssign
		default:
			kind = token.Plus
		}
	case '*':
		switch b1 {
		case '*':
			lx.cursor.Bump()
			if lx.cursor.Eat('=') {
				kind = token.StarStarAssign
			} else {
				kind = token.StarStar
			}
		case '=':
			lx.cursor.Bump()
			kind = token.StarAssign
		default:
			kind = token.Star
		}
	case '/':
		switch b1 {
		case '/':
			lx.cursor.Bump()
			if lx.cursor.Eat('=') {
				kind = token.SlashSlashAssign
			} else {
				kind = token.SlashSlash
			}
		case '=':
			lx.cursor.Bump()
			kind = token.SlashAssign
		default:
			kind = token.Slash
		}
	case '%':
		if b1 == '=' {
			lx.cursor.Bump()
			kind = token.PercentAssign
		} else {
			kind = token.Percent
		}
	case '.':
		switch {
		case b1 == '.' && lx.cursor.PeekAt(1) == '.':
			lx.cursor.Bump()
			lx.cursor.Bump()
			kind = token.DotDotDot
		case b1 == '.':
			lx.cursor.Bump()
			kind = token.DotDot
		case b1 == '=':
			lx.cursor.Bump()
			kind = token.DotAssign
		default:
			kind = token.Dot
		}
	case '=':
		switch b1 {
		case '=':
			lx.cursor.Bump()
			kind = token.EqEq
		case '~':
			lx.cursor.Bump()
			kind = token.BindMatch
		case '>':
			lx.cursor.Bump()
			kind = token.FatComma
		default:
			kind = token.Assign
		}
	case '!':
		switch b1 {
		case '=':
			lx.cursor.Bump()
			kind = token.BangEq
		case '~':
			lx.cursor.Bump()
			kind = token.BindNotMatch
		default:
			kind = token.Bang
		}
	case '<':
		switch {
		case b1 == '=' && lx.cursor.PeekAt(1) == '>':
			lx.cursor.Bump()
			lx.cursor.Bump()
			kind = token.Spaceship
		case b1 == '=':
			lx.cursor.Bump()
			kind = token.LtEq
		case b1 == '<':
			lx.cursor.Bump()
			if lx.cursor.Eat('=') {
				kind = token.ShlAssign
			} else {
				kind = token.Shl
			}
		default:
			kind = token.Lt
		}
	case '>':
		switch b1 {
		case '=':
			lx.cursor.Bump()
			kind = token.GtEq
		case '>':
			lx.cursor.Bump()
			if lx.cursor.Eat('=') {
				kind = token.ShrAssign
			} else {
				kind = token.Shr
			}
		default:
			kind = token.Gt
		}
	case '&':
		switch b1 {
		case '&':
			lx.cursor.Bump()
			if lx.cursor.Eat('=') {
				kind = token.AndAndAssign
			} else {
				kind = token.AndAnd
			}
		case '=':
			lx.cursor.Bump()
			kind = token.AmpAssign
		default:
			kind = token.Amp
		}
	case '|':
		switch b1 {
		case '|':
			lx.cursor.Bump()
			if lx.cursor.Eat('=') {
				kind = token.OrOrAssign
			} else {
				kind = token.OrOr
			}
		case '=':
			lx.cursor.Bump()
			kind = token.PipeAssign
		default:
			kind = token.Pipe
		}
	case '^':
		if b1 == '=' {
			lx.cursor.Bump()
			kind = token.CaretAssign
		} else {
			kind = token.Caret
		}
	case '~':
		if b1 == '~' {
			lx.cursor.Bump()
			kind = token.SmartMatch
		} else {
			kind = token.Tilde
		}
	case '?':
		kind = token.Question
	case ':':
		if b1 == ':' {
			lx.cursor.Bump()
			kind = token.ColonColon
		} else {
			kind = token.Colon
		}
	case '\\':
		kind = token.Backslash
	case ',':
		kind = token.Comma
	case ';':
		kind = token.Semicolon
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '{':
		kind = token.LBrace
	case '}':
		kind = token.RBrace
	case '[':
		kind = token.LBracket
	case ']':
		kind = token.RBracket
	default:
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, "unknown character")
		return lx.tokenFrom(token.Invalid, start)
	}

	return lx.tokenFrom(kind, start)
}
