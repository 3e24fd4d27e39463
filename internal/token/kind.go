package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents a bareword identifier, possibly package-qualified
	// (foo, Foo::Bar, SUPER::method).
	Ident
	// Label represents a loop label identifier followed by a colon.
	Label

	// ScalarVar is a $-sigiled variable ($x, $Foo::bar, $_ and punctuation
	// variables like $0, $@, $!).
	ScalarVar
	// ArrayVar is a @-sigiled variable (@x, @ARGV).
	ArrayVar
	// HashVar is a %-sigiled variable (%h, %ENV).
	HashVar
	// ArrayLenVar is a $#-sigiled last-index variable ($#list).
	ArrayLenVar
	// FuncVar is a &-sigiled code reference (&foo).
	FuncVar
	// GlobVar is a *-sigiled typeglob (*STDOUT).
	GlobVar

	// NumberLit is any numeric literal (decimal, float, hex, octal, binary).
	NumberLit
	// VersionLit is a v-string or dotted version literal (v5.36, 5.010).
	VersionLit
	// StringSingle is a '...' literal.
	StringSingle
	// StringDouble is a "..." literal.
	StringDouble
	// StringBacktick is a `...` command literal.
	StringBacktick
	// QuoteQ is a q{...} literal with arbitrary delimiters.
	QuoteQ
	// QuoteQQ is a qq{...} literal with arbitrary delimiters.
	QuoteQQ
	// QuoteQW is a qw(...) word list.
	QuoteQW
	// QuoteQR is a qr/.../ compiled regex.
	QuoteQR
	// Match is an m/.../ or bare /.../ pattern match.
	Match
	// Subst is an s/.../.../ substitution.
	Subst
	// Translit is a tr/.../.../ or y/.../.../ transliteration.
	Translit
	// HeredocStart is a heredoc opener (<<EOT, <<~"EOT", <<'EOT').
	HeredocStart

	// Keywords.

	// KwMy represents the 'my' keyword.
	KwMy
	// KwOur represents the 'our' keyword.
	KwOur
	// KwLocal represents the 'local' keyword.
	KwLocal
	// KwState represents the 'state' keyword.
	KwState
	// KwSub represents the 'sub' keyword.
	KwSub
	// KwPackage represents the 'package' keyword.
	KwPackage
	// KwUse represents the 'use' keyword.
	KwUse
	// KwNo represents the 'no' keyword.
	KwNo
	// KwRequire represents the 'require' keyword.
	KwRequire
	// KwIf represents the 'if' keyword.
	KwIf
	// KwElsif represents the 'elsif' keyword.
	KwElsif
	// KwElse represents the 'else' keyword.
	KwElse
	// KwUnless represents the 'unless' keyword.
	KwUnless
	// KwWhile represents the 'while' keyword.
	KwWhile
	// KwUntil represents the 'until' keyword.
	KwUntil
	// KwFor represents the 'for' keyword.
	KwFor
	// KwForeach represents the 'foreach' keyword.
	KwForeach
	// KwDo represents the 'do' keyword.
	KwDo
	// KwEval represents the 'eval' keyword.
	KwEval
	// KwReturn represents the 'return' keyword.
	KwReturn
	// KwLast represents the 'last' keyword.
	KwLast
	// KwNext represents the 'next' keyword.
	KwNext
	// KwRedo represents the 'redo' keyword.
	KwRedo
	// KwGoto represents the 'goto' keyword.
	KwGoto
	// KwAnd represents the low-precedence 'and' operator.
	KwAnd
	// KwOr represents the low-precedence 'or' operator.
	KwOr
	// KwNot represents the low-precedence 'not' operator.
	KwNot
	// KwXor represents the low-precedence 'xor' operator.
	KwXor

	// Operators and punctuation.

	Arrow         // ->
	PlusPlus      // ++
	MinusMinus    // --
	StarStar      // **
	Bang          // !
	Tilde         // ~
	Backslash     // \
	Plus          // +
	Minus         // -
	BindMatch     // =~
	BindNotMatch  // !~
	Star          // *
	Slash         // /
	Percent       // %
	KwX           // x (repetition)
	Dot           // .
	Shl           // <<
	Shr           // >>
	Lt            // <
	Gt            // >
	LtEq          // <=
	GtEq          // >=
	KwLtStr       // lt
	KwGtStr       // gt
	KwLeStr       // le
	KwGeStr       // ge
	EqEq          // ==
	BangEq        // !=
	Spaceship     // <=>
	KwEqStr       // eq
	KwNeStr       // ne
	KwCmpStr      // cmp
	SmartMatch    // ~~
	Amp           // &
	Pipe          // |
	Caret         // ^
	AndAnd        // &&
	OrOr          // ||
	SlashSlash    // //
	DotDot        // ..
	DotDotDot     // ...
	Question      // ?
	Colon         // :
	ColonColon    // ::
	Assign        // =
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	DotAssign     // .=
	PercentAssign // %=
	XAssign       // x=
	StarStarAssign// **=
	AndAndAssign  // &&=
	OrOrAssign    // ||=
	SlashSlashAssign // //=
	AmpAssign     // &=
	PipeAssign    // |=
	CaretAssign   // ^=
	ShlAssign     // <<=
	ShrAssign     // >>=
	Comma         // ,
	FatComma      // =>
	Semicolon     // ;
	LParen        // (
	RParen        // )
	LBrace        // {
	RBrace        // }
	LBracket      // [
	RBracket      // ]
	ReadLine      // <STDIN>, <$fh>, <>
)

var kindNames = map[Kind]string{
	Invalid: "invalid", EOF: "eof",
	Ident: "ident", Label: "label",
	ScalarVar: "scalar_variable", ArrayVar: "array_variable", HashVar: "hash_variable",
	ArrayLenVar: "arraylen_variable", FuncVar: "func_variable", GlobVar: "glob_variable",
	NumberLit: "number", VersionLit: "version", StringSingle: "string_single",
	StringDouble: "string_double", StringBacktick: "string_backtick",
	QuoteQ: "q", QuoteQQ: "qq", QuoteQW: "qw", QuoteQR: "qr",
	Match: "match", Subst: "subst", Translit: "translit", HeredocStart: "heredoc_start",
	KwMy: "my", KwOur: "our", KwLocal: "local", KwState: "state", KwSub: "sub",
	KwPackage: "package", KwUse: "use", KwNo: "no", KwRequire: "require",
	KwIf: "if", KwElsif: "elsif", KwElse: "else", KwUnless: "unless",
	KwWhile: "while", KwUntil: "until", KwFor: "for", KwForeach: "foreach",
	KwDo: "do", KwEval: "eval", KwReturn: "return", KwLast: "last", KwNext: "next",
	KwRedo: "redo", KwGoto: "goto",
	KwAnd: "and", KwOr: "or", KwNot: "not", KwXor: "xor",
	Arrow: "->", PlusPlus: "++", MinusMinus: "--", StarStar: "**", Bang: "!",
	Tilde: "~", Backslash: "\\", Plus: "+", Minus: "-", BindMatch: "=~",
	BindNotMatch: "!~", Star: "*", Slash: "/", Percent: "%", KwX: "x", Dot: ".",
	Shl: "<<", Shr: ">>", Lt: "<", Gt: ">", LtEq: "<=", GtEq: ">=",
	KwLtStr: "lt", KwGtStr: "gt", KwLeStr: "le", KwGeStr: "ge",
	EqEq: "==", BangEq: "!=", Spaceship: "<=>", KwEqStr: "eq", KwNeStr: "ne",
	KwCmpStr: "cmp", SmartMatch: "~~", Amp: "&", Pipe: "|", Caret: "^",
	AndAnd: "&&", OrOr: "||", SlashSlash: "//", DotDot: "..", DotDotDot: "...",
	Question: "?", Colon: ":", ColonColon: "::", Assign: "=",
	PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	DotAssign: ".=", PercentAssign: "%=", XAssign: "x=", StarStarAssign: "**=",
	AndAndAssign: "&&=", OrOrAssign: "||=", SlashSlashAssign: "//=",
	AmpAssign: "&=", PipeAssign: "|=", CaretAssign: "^=", ShlAssign: "<<=",
	ShrAssign: ">>=", Comma: ",", FatComma: "=>", Semicolon: ";",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[",
	RBracket: "]", ReadLine: "readline",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}
