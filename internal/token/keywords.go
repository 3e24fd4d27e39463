package token

// keywords maps bareword spellings to their keyword kinds. Word operators
// (x, lt, eq, ...) are included: in operator position the lexer turns a
// bareword into one of these; in term position they stay Ident.
var keywords = map[string]Kind{
	"my":      KwMy,
	"our":     KwOur,
	"local":   KwLocal,
	"state":   KwState,
	"sub":     KwSub,
	"package": KwPackage,
	"use":     KwUse,
	"no":      KwNo,
	"require": KwRequire,
	"if":      KwIf,
	"elsif":   KwElsif,
	"else":    KwElse,
	"unless":  KwUnless,
	"while":   KwWhile,
	"until":   KwUntil,
	"for":     KwFor,
	"foreach": KwForeach,
	"do":      KwDo,
	"eval":    KwEval,
	"return":  KwReturn,
	"last":    KwLast,
	"next":    KwNext,
	"redo":    KwRedo,
	"goto":    KwGoto,
	"and":     KwAnd,
	"or":      KwOr,
	"not":     KwNot,
	"xor":     KwXor,
}

// wordOps are barewords that act as operators only in operator position.
var wordOps = map[string]Kind{
	"x":   KwX,
	"lt":  KwLtStr,
	"gt":  KwGtStr,
	"le":  KwLeStr,
	"ge":  KwGeStr,
	"eq":  KwEqStr,
	"ne":  KwNeStr,
	"cmp": KwCmpStr,
}

// LookupKeyword returns the keyword kind for a bareword, or Ident.
func LookupKeyword(word string) Kind {
	if k, ok := keywords[word]; ok {
		return k
	}
	return Ident
}

// LookupWordOp returns the operator kind for a bareword in operator
// position, or Invalid when the word is not an operator.
func LookupWordOp(word string) (Kind, bool) {
	k, ok := wordOps[word]
	return k, ok
}
