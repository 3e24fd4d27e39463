package lexer

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// Lexer turns Perl source into a token stream. It is a byte-level scanner
// with one token of lookahead; leading trivia (whitespace, comments, POD,
// heredoc bodies) is attached to the following significant token.
//
// Perl cannot be tokenized without context: '/', '%', '*', '&', '<' and '{'
// mean different things depending on whether a term or an operator is
// expected. The lexer tracks the previous significant token and exposes the
// same expectation heuristic perl's own tokenizer uses.
type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	look   []token.Token // lookahead queue
	hold   []token.Trivia

	prev     token.Kind // last significant token kind
	prevText string     // its text, for bareword heuristics
	started  bool

	heredocs []heredocSpec // openers waiting for their body
}

// New creates a lexer over the whole file.
func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// NewAt creates a lexer over the byte window [off, limit) of file. Used by
// the incremental engine to re-lex only a damaged region.
func NewAt(file *source.File, off, limit uint32, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursorAt(file, off, limit),
		opts:   opts,
	}
}

// Next returns the next significant token with its leading trivia. After
// EOF it always returns EOF.
func (lx *Lexer) Next() token.Token {
	if len(lx.look) > 0 {
		tok := lx.look[0]
		lx.look = lx.look[1:]
		lx.remember(tok)
		return tok
	}
	return lx.scanNext()
}

func (lx *Lexer) scanNext() token.Token {
	lx.collectLeadingTrivia()

	if lx.cursor.EOF() {
		tok := token.Token{
			Kind: token.EOF,
			Span: lx.EmptySpan(),
		}
		tok.Leading = lx.hold
		lx.hold = nil
		return tok
	}

	tok := lx.scanToken()
	tok.Leading = lx.hold
	lx.hold = nil
	lx.remember(tok)
	return tok
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	return lx.PeekN(0)
}

// PeekN returns the token n positions ahead (0 = next) without consuming
// input. Lookahead tokens are scanned with the current expectation context;
// after EOF the queue repeats EOF.
func (lx *Lexer) PeekN(n int) token.Token {
	for len(lx.look) <= n {
		if len(lx.look) > 0 && lx.look[len(lx.look)-1].Kind == token.EOF {
			return lx.look[len(lx.look)-1]
		}
		lx.look = append(lx.look, lx.scanNext())
	}
	return lx.look[n]
}

// EmptySpan returns a zero-length span at the current position.
func (lx *Lexer) EmptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) remember(tok token.Token) {
	if tok.Kind == token.EOF {
		return
	}
	lx.prev = tok.Kind
	lx.prevText = tok.Text
	lx.started = true
}

func (lx *Lexer) scanToken() token.Token {
	ch := lx.cursor.Peek()

	switch {
	case ch == '$':
		return lx.scanScalarSigil()
	case ch == '@':
		return lx.scanSigil('@', token.ArrayVar)
	case ch == '%' && lx.expectTerm() && lx.sigilFollows(1):
		return lx.scanSigil('%', token.HashVar)
	case ch == '&' && lx.expectTerm() && lx.sigilFollows(1):
		return lx.scanSigil('&', token.FuncVar)
	case ch == '*' && lx.expectTerm() && lx.sigilFollows(1):
		return lx.scanSigil('*', token.GlobVar)

	case ch == 'v' && isDec(lx.cursor.PeekAt(1)) && lx.expectTerm():
		save := lx.cursor.Mark()
		tok := lx.scanVString()
		if isIdentContinueByte(lx.cursor.Peek()) {
			// v5compat is a bareword, not a version literal.
			lx.cursor.Reset(save)
			return lx.scanIdentOrKeyword()
		}
		return tok

	case isIdentStartByte(ch) || ch >= utf8RuneSelf:
		return lx.scanIdentOrKeyword()

	case isDec(ch):
		return lx.scanNumber()
	case ch == '.' && isDec(lx.cursor.PeekAt(1)) && lx.expectTerm():
		return lx.scanNumber()

	case ch == '\'':
		return lx.scanDelimitedString(token.StringSingle, '\'')
	case ch == '"':
		return lx.scanDelimitedString(token.StringDouble, '"')
	case ch == '`':
		return lx.scanDelimitedString(token.StringBacktick, '`')

	case ch == '/' && lx.expectTermForSlash():
		return lx.scanBareMatch()
	case ch == '<' && lx.expectTerm():
		if tok, ok := lx.tryScanHeredocOrReadline(); ok {
			return tok
		}
		return lx.scanOperatorOrPunct()

	default:
		return lx.scanOperatorOrPunct()
	}
}

// expectTerm reports whether the next token should be read as a term
// (operand) rather than an operator. This is the classic perl tokenizer
// disposition: at statement start and after operators / opening brackets a
// term is expected; after values an operator is expected.
func (lx *Lexer) expectTerm() bool {
	if !lx.started {
		return true
	}
	switch lx.prev {
	case token.ScalarVar, token.ArrayVar, token.HashVar, token.ArrayLenVar,
		token.FuncVar, token.GlobVar,
		token.NumberLit, token.VersionLit,
		token.StringSingle, token.StringDouble, token.StringBacktick,
		token.QuoteQ, token.QuoteQQ, token.QuoteQW, token.QuoteQR,
		token.Match, token.Subst, token.Translit, token.HeredocStart,
		token.ReadLine,
		token.RParen, token.RBracket,
		token.PlusPlus, token.MinusMinus:
		return false
	case token.RBrace:
		// Closing a block starts a new statement (term position). Hash
		// subscripts are the losing case of this heuristic.
		return true
	default:
		// Barewords expect call arguments; keywords and operators expect
		// their operand.
		return true
	}
}

// expectTermForSlash is expectTerm specialized for '/': after a bareword a
// slash is a division (`$n/2`-style code far outnumbers bare patterns)
// unless the bareword is a builtin that takes a pattern first (split,
// grep, map by default; overridable via Options.RegexFuncs).
func (lx *Lexer) expectTermForSlash() bool {
	if lx.started && lx.prev == token.Ident {
		return lx.opts.regexFuncs()[lx.prevText]
	}
	return lx.expectTerm()
}

// sigilFollows reports whether the byte after a & or * sigil candidate can
// begin a variable name or a deref block.
func (lx *Lexer) sigilFollows(ahead uint32) bool {
	b := lx.cursor.PeekAt(ahead)
	return isIdentStartByte(b) || b == '{' || b == '$'
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		lx.opts.Reporter.Report(code, diag.SevError, sp, msg, nil)
	}
}

func (lx *Lexer) tokenFrom(kind token.Kind, start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}
