package sema

// builtinVars are the special variables that resolve regardless of any
// lexical declaration. Punctuation variables the lexer folds into one
// token ($!, $@, ...) are covered by isPunctVarName.
var builtinVars = map[string]SymbolKind{
	"$_":    SymbolScalar,
	"@_":    SymbolArray,
	"$0":    SymbolScalar,
	"%ENV":  SymbolHash,
	"@ARGV": SymbolArray,
	"@INC":  SymbolArray,
	"%INC":  SymbolHash,
	"%SIG":  SymbolHash,
	"@F":    SymbolArray,
	"$a":    SymbolScalar, // sort comparators
	"$b":    SymbolScalar,
}

// builtinHandles are the always-open filehandles.
var builtinHandles = map[string]bool{
	"STDIN":  true,
	"STDOUT": true,
	"STDERR": true,
	"ARGV":   true,
	"DATA":   true,
}

// isPunctVarName reports whether name is a sigil plus punctuation or a
// capture group variable ($1, $2, ...), which are all built in.
func isPunctVarName(name string) bool {
	if len(name) < 2 {
		return len(name) == 1 // bare sigil heads a deref, not a name
	}
	c := name[1]
	if c >= '0' && c <= '9' {
		return true
	}
	switch c {
	case '_', '&', '`', '\'', '+', '!', '@', '/', '\\', ',', ';', '.',
		'<', '>', '$', '?', ':', '"', '^', '-', '[', ']', '|', '%', '=', '~':
		// $_ and @_ are named builtins too, but land here as well.
		return len(name) == 2 || c == '^'
	}
	return false
}

// builtinKindFor classifies a builtin variable name, or SymbolInvalid.
func builtinKindFor(name string) SymbolKind {
	if k, ok := builtinVars[name]; ok {
		return k
	}
	if len(name) >= 2 && isPunctVarName(name) {
		switch name[0] {
		case '$':
			return SymbolScalar
		case '@':
			return SymbolArray
		case '%':
			return SymbolHash
		}
	}
	return SymbolInvalid
}
