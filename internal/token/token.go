package token

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
)

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// IsLiteral reports whether the token is a numeric or string-like literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case NumberLit, VersionLit, StringSingle, StringDouble, StringBacktick,
		QuoteQ, QuoteQQ, QuoteQW, QuoteQR, Match, Subst, Translit, HeredocStart:
		return true
	default:
		return false
	}
}

// IsVariable reports whether the token is a sigiled variable.
func (t Token) IsVariable() bool {
	switch t.Kind {
	case ScalarVar, ArrayVar, HashVar, ArrayLenVar, FuncVar, GlobVar:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool {
	switch t.Kind {
	case KwMy, KwOur, KwLocal, KwState, KwSub, KwPackage, KwUse, KwNo,
		KwRequire, KwIf, KwElsif, KwElse, KwUnless, KwWhile, KwUntil, KwFor,
		KwForeach, KwDo, KwEval, KwReturn, KwLast, KwNext, KwRedo, KwGoto,
		KwAnd, KwOr, KwNot, KwXor:
		return true
	default:
		return false
	}
}

// IsAssignOp reports whether the token is an assignment operator.
func (t Token) IsAssignOp() bool {
	switch t.Kind {
	case Assign, PlusAssign, MinusAssign, StarAssign, SlashAssign, DotAssign,
		PercentAssign, XAssign, StarStarAssign, AndAndAssign, OrOrAssign,
		SlashSlashAssign, AmpAssign, PipeAssign, CaretAssign, ShlAssign,
		ShrAssign:
		return true
	default:
		return false
	}
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }
