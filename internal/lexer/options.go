package lexer

import (
	"github.com/EffortlessMetrics/perl-lsp-sub018/internal/diag"
)

// Options configure a Lexer instance.
type Options struct {
	// Reporter receives lexical diagnostics. Nil means diagnostics are
	// dropped; scanning itself never stops on malformed input.
	Reporter diag.Reporter
	// RegexFuncs overrides the set of barewords after which a '/' starts a
	// pattern rather than a division. Nil selects the default set.
	RegexFuncs map[string]bool
}

// defaultRegexFuncs lists builtins whose first argument is commonly a bare
// /.../ pattern.
var defaultRegexFuncs = map[string]bool{
	"split": true,
	"grep":  true,
	"map":   true,
}

func (o *Options) regexFuncs() map[string]bool {
	if o.RegexFuncs != nil {
		return o.RegexFuncs
	}
	return defaultRegexFuncs
}
