package token

import "github.com/EffortlessMetrics/perl-lsp-sub018/internal/source"

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	TriviaNewline
	TriviaComment
	TriviaPod
	TriviaHeredocBody
	TriviaData // everything after __END__ / __DATA__
)

func (k TriviaKind) String() string {
	switch k {
	case TriviaSpace:
		return "space"
	case TriviaNewline:
		return "newline"
	case TriviaComment:
		return "comment"
	case TriviaPod:
		return "pod"
	case TriviaHeredocBody:
		return "heredoc_body"
	case TriviaData:
		return "data"
	default:
		return "unknown"
	}
}

// Trivia is non-semantic text attached to the following token: whitespace,
// comments, POD sections, heredoc bodies, and trailing __END__ data.
type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}
