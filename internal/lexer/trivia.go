package lexer

import (
	"bytes"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// collectLeadingTrivia accumulates whitespace, comments, POD sections,
// pending heredoc bodies, and __END__/__DATA__ tails into lx.hold.
func (lx *Lexer) collectLeadingTrivia() {
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()

		switch {
		case isSpaceByte(b):
			start := lx.cursor.Mark()
			for !lx.cursor.EOF() && isSpaceByte(lx.cursor.Peek()) {
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaSpace, start)

		case b == '\n':
			start := lx.cursor.Mark()
			lx.cursor.Bump()
			lx.pushTrivia(token.TriviaNewline, start)
			// A newline releases any heredoc bodies queued on this line.
			lx.consumePendingHeredocs()

		case b == '#':
			start := lx.cursor.Mark()
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
			lx.pushTrivia(token.TriviaComment, start)

		case b == '=' && lx.atLineStart() && isIdentStartByte(lx.cursor.PeekAt(1)):
			lx.consumePod()

		case b == '_' && lx.atLineStart() && lx.atDataMarker():
			start := lx.cursor.Mark()
			lx.cursor.Off = lx.cursor.Limit
			lx.pushTrivia(token.TriviaData, start)

		default:
			return
		}
	}
}

func (lx *Lexer) pushTrivia(kind token.TriviaKind, start Mark) {
	sp := lx.cursor.SpanFrom(start)
	lx.hold = append(lx.hold, token.Trivia{
		Kind: kind,
		Span: sp,
		Text: string(lx.file.Content[sp.Start:sp.End]),
	})
}

func (lx *Lexer) atLineStart() bool {
	return lx.cursor.Off == 0 || lx.file.Content[lx.cursor.Off-1] == '\n'
}

func (lx *Lexer) atDataMarker() bool {
	rest := lx.file.Content[lx.cursor.Off:lx.cursor.Limit]
	return bytes.HasPrefix(rest, []byte("__END__")) || bytes.HasPrefix(rest, []byte("__DATA__"))
}

// consumePod eats a =word ... =cut section, including the =cut line and its
// newline. A missing =cut swallows the rest of the file with a diagnostic.
func (lx *Lexer) consumePod() {
	start := lx.cursor.Mark()
	for !lx.cursor.EOF() {
		if lx.atLineStart() && lx.lineStartsWith("=cut") {
			lx.skipLine()
			lx.pushTrivia(token.TriviaPod, start)
			return
		}
		lx.skipLine()
	}
	lx.errLex(diag.LexUnterminatedPod, lx.cursor.SpanFrom(start), "POD section is missing =cut")
	lx.pushTrivia(token.TriviaPod, start)
}

func (lx *Lexer) lineStartsWith(prefix string) bool {
	rest := lx.file.Content[lx.cursor.Off:lx.cursor.Limit]
	return bytes.HasPrefix(rest, []byte(prefix))
}

// skipLine advances past the current line, consuming its trailing newline.
func (lx *Lexer) skipLine() {
	for !lx.cursor.EOF() {
		if lx.cursor.Bump() == '\n' {
			return
		}
	}
}
