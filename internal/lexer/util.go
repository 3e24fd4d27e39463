package lexer

const utf8RuneSelf = 0x80

func isDec(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHex(b byte) bool {
	return isDec(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentContinueByte(b byte) bool {
	return isIdentStartByte(b) || isDec(b)
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r'
}

// isPunctVarByte lists the punctuation characters that form special scalar
// variables after $: $_, $0, $@, $!, $/, $\, $,, $;, $., $&, $`, $', $+.
func isPunctVarByte(b byte) bool {
	switch b {
	case '_', '0', '@', '!', '/', '\\', ',', ';', '.', '&', '`', '\'', '+',
		'$', '?', '<', '>', '(', ')', '[', ']', '^':
		return true
	default:
		return false
	}
}

// closingDelimiter maps an opening paired delimiter to its closing one; for
// non-paired delimiters it returns the byte itself.
func closingDelimiter(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	case '<':
		return '>'
	default:
		return open
	}
}

func isPairedDelimiter(open byte) bool {
	return closingDelimiter(open) != open
}
