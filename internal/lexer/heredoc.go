package lexer

import (
	"bytes"

	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/token"
)

// heredocSpec is a heredoc opener whose body has not been consumed yet.
type heredocSpec struct {
	terminator string
	indented   bool // <<~EOT allows an indented terminator
}

// tryScanHeredocOrReadline disambiguates '<' in term position between a
// heredoc opener (<<EOT, <<~EOT, <<"EOT", <<'EOT'), a readline diamond
// (<FH>, <$fh>, <>, <<>>), and a plain comparison.
func (lx *Lexer) tryScanHeredocOrReadline() (token.Token, bool) {
	start := lx.cursor.Mark()

	if lx.cursor.PeekAt(1) == '<' {
		if tok, ok := lx.tryScanHeredoc(start); ok {
			return tok, true
		}
	}
	return lx.tryScanReadline(start)
}

func (lx *Lexer) tryScanHeredoc(start Mark) (token.Token, bool) {
	lx.cursor.Bump() // '<'
	lx.cursor.Bump() // '<'

	indented := false
	if lx.cursor.Peek() == '~' {
		indented = true
		lx.cursor.Bump()
	}

	var terminator string
	switch b := lx.cursor.Peek(); {
	case b == '"' || b == '\'':
		quote := lx.cursor.Bump()
		nameStart := lx.cursor.Mark()
		for !lx.cursor.EOF() && lx.cursor.Peek() != quote && lx.cursor.Peek() != '\n' {
			lx.cursor.Bump()
		}
		name := lx.cursor.SpanFrom(nameStart)
		if !lx.cursor.Eat(quote) {
			lx.cursor.Reset(start)
			return token.Token{}, false
		}
		terminator = string(lx.file.Content[name.Start:name.End])

	case isIdentStartByte(b):
		nameStart := lx.cursor.Mark()
		lx.scanIdentTail()
		name := lx.cursor.SpanFrom(nameStart)
		terminator = string(lx.file.Content[name.Start:name.End])

	default:
		lx.cursor.Reset(start)
		return token.Token{}, false
	}

	lx.heredocs = append(lx.heredocs, heredocSpec{terminator: terminator, indented: indented})
	return lx.tokenFrom(token.HeredocStart, start), true
}

// consumePendingHeredocs eats queued heredoc bodies right after a newline,
// attaching each body (terminator line included) as trivia.
func (lx *Lexer) consumePendingHeredocs() {
	for len(lx.heredocs) > 0 {
		spec := lx.heredocs[0]
		lx.heredocs = lx.heredocs[1:]

		start := lx.cursor.Mark()
		found := false
		for !lx.cursor.EOF() {
			lineStart := lx.cursor.Off
			lx.skipLine()
			line := lx.file.Content[lineStart:lx.cursor.Off]
			line = bytes.TrimSuffix(line, []byte("\n"))
			if spec.indented {
				line = bytes.TrimLeft(line, " \t")
			}
			if string(line) == spec.terminator {
				found = true
				break
			}
		}
		if !found {
			lx.errLex(diag.LexUnterminatedHeredoc, lx.cursor.SpanFrom(start),
				"heredoc terminator "+spec.terminator+" not found")
		}
		lx.pushTrivia(token.TriviaHeredocBody, start)
	}
}

// tryScanReadline reads <FH>, <$fh>, <> or <<>>. The cursor sits on '<'.
func (lx *Lexer) tryScanReadline(start Mark) (token.Token, bool) {
	lx.cursor.Reset(start)
	lx.cursor.Bump() // '<'

	// <<>> secure ARGV form.
	if lx.cursor.Peek() == '<' && lx.cursor.PeekAt(1) == '>' && lx.cursor.PeekAt(2) == '>' {
		lx.cursor.Bump()
		lx.cursor.Bump()
		lx.cursor.Bump()
		return lx.tokenFrom(token.ReadLine, start), true
	}

	if lx.cursor.Peek() == '$' {
		lx.cursor.Bump()
		if !isIdentStartByte(lx.cursor.Peek()) {
			lx.cursor.Reset(start)
			return token.Token{}, false
		}
		lx.scanIdentTail()
	} else {
		for isIdentContinueByte(lx.cursor.Peek()) || lx.cursor.Peek() == ':' {
			lx.cursor.Bump()
		}
	}
	if lx.cursor.Eat('>') {
		return lx.tokenFrom(token.ReadLine, start), true
	}
	lx.cursor.Reset(start)
	return token.Token{}, false
}
