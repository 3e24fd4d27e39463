package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Lexical.
	LexInfo                  Code = 1000
	LexUnknownChar           Code = 1001
	LexUnterminatedString    Code = 1002
	LexUnterminatedQuoteLike Code = 1003
	LexBadNumber             Code = 1004
	LexUnterminatedHeredoc   Code = 1005
	LexBadDelimiter          Code = 1006
	LexUnterminatedPod       Code = 1007

	// Syntactic.
	SynInfo                Code = 2000
	SynUnexpectedToken     Code = 2001
	SynExpectSemicolon     Code = 2002
	SynExpectIdentifier    Code = 2003
	SynExpectExpression    Code = 2004
	SynUnclosedParen       Code = 2005
	SynUnclosedBrace       Code = 2006
	SynUnclosedBracket     Code = 2007
	SynExpectBlock         Code = 2008
	SynExpectVariable      Code = 2009
	SynExpectPackageName   Code = 2010
	SynBadDeclarationList  Code = 2011
	SynExpectConditional   Code = 2012
	SynBadForHeader        Code = 2013
	SynExpectModuleName    Code = 2014
	SynTrailingExpression  Code = 2015

	// Semantic.
	SemInfo               Code = 3000
	SemUndeclaredVariable Code = 3001
	SemUnusedLexical      Code = 3002
	SemMasksEarlier       Code = 3003
	SemDeprecatedConstruct Code = 3004

	// Workspace / index.
	IdxInfo            Code = 4000
	IdxStaleVersion    Code = 4001
	IdxFileUnreadable  Code = 4002
	IdxScanTimeout     Code = 4003
	IdxResultCapped    Code = 4004
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown diagnostic",

	LexInfo:                  "lexer note",
	LexUnknownChar:           "unknown character",
	LexUnterminatedString:    "unterminated string literal",
	LexUnterminatedQuoteLike: "unterminated quote-like operator",
	LexBadNumber:             "malformed numeric literal",
	LexUnterminatedHeredoc:   "heredoc terminator not found",
	LexBadDelimiter:          "missing quote-like delimiter",
	LexUnterminatedPod:       "pod section without =cut",

	SynInfo:               "parser note",
	SynUnexpectedToken:    "unexpected token",
	SynExpectSemicolon:    "expected ';'",
	SynExpectIdentifier:   "expected identifier",
	SynExpectExpression:   "expected expression",
	SynUnclosedParen:      "unclosed '('",
	SynUnclosedBrace:      "unclosed '{'",
	SynUnclosedBracket:    "unclosed '['",
	SynExpectBlock:        "expected block",
	SynExpectVariable:     "expected variable",
	SynExpectPackageName:  "expected package name",
	SynBadDeclarationList: "malformed declaration list",
	SynExpectConditional:  "expected condition",
	SynBadForHeader:       "malformed loop header",
	SynExpectModuleName:   "expected module name",
	SynTrailingExpression: "expression is not terminated",

	SemInfo:                "semantic note",
	SemUndeclaredVariable:  "variable is not declared",
	SemUnusedLexical:       "lexical variable is never used",
	SemMasksEarlier:        "declaration masks earlier declaration",
	SemDeprecatedConstruct: "deprecated construct",

	IdxInfo:           "index note",
	IdxStaleVersion:   "stale document version",
	IdxFileUnreadable: "file could not be read",
	IdxScanTimeout:    "workspace scan timed out",
	IdxResultCapped:   "result list truncated",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IDX%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
