package ast

// NodeKind is the closed set of syntax node kinds. Names mirror the
// tree-sitter Perl grammar so consumers can treat the two trees as
// interchangeable shapes.
type NodeKind uint8

const (
	KindInvalid NodeKind = iota
	KindSourceFile

	// Statements.
	KindPackageStatement
	KindUseStatement
	KindRequireStatement
	KindSubroutineDeclaration
	KindVariableDeclaration
	KindExpressionStatement
	KindBlock
	KindIfStatement
	KindElsifClause
	KindElseClause
	KindUnlessStatement
	KindWhileStatement
	KindUntilStatement
	KindForStatement
	KindForeachStatement
	KindDoBlock
	KindEvalBlock
	KindReturnStatement
	KindLoopControlStatement
	KindLabeledStatement
	KindStatementModifier
	KindEmptyStatement

	// Expressions.
	KindBinaryExpression
	KindUnaryExpression
	KindTernaryExpression
	KindAssignmentExpression
	KindListExpression
	KindParenExpression
	KindCallExpression
	KindMethodCallExpression
	KindElementAccess
	KindSliceExpression
	KindDereference
	KindReferenceExpression
	KindAnonymousArray
	KindAnonymousHash
	KindAnonymousSubroutine
	KindHashConstructor
	KindPostfixExpression

	// Leaves.
	KindVariable
	KindBareword
	KindPackageName
	KindNumberLiteral
	KindVersionLiteral
	KindStringLiteral
	KindQuoteLike
	KindWordList
	KindRegexMatch
	KindSubstitution
	KindTransliteration
	KindHeredoc
	KindReadline
	KindOperator
	KindPunctuation
	KindKeyword
	KindLabel

	KindError
)

var kindNames = [...]string{
	KindInvalid:               "invalid",
	KindSourceFile:            "source_file",
	KindPackageStatement:      "package_statement",
	KindUseStatement:          "use_statement",
	KindRequireStatement:      "require_statement",
	KindSubroutineDeclaration: "subroutine_declaration_statement",
	KindVariableDeclaration:   "variable_declaration",
	KindExpressionStatement:   "expression_statement",
	KindBlock:                 "block",
	KindIfStatement:           "conditional_statement",
	KindElsifClause:           "elsif_clause",
	KindElseClause:            "else_clause",
	KindUnlessStatement:       "unless_statement",
	KindWhileStatement:        "while_statement",
	KindUntilStatement:        "until_statement",
	KindForStatement:          "for_statement",
	KindForeachStatement:      "foreach_statement",
	KindDoBlock:               "do_block",
	KindEvalBlock:             "eval_block",
	KindReturnStatement:       "return_statement",
	KindLoopControlStatement:  "loop_control_statement",
	KindLabeledStatement:      "labeled_statement",
	KindStatementModifier:     "statement_modifier",
	KindEmptyStatement:        "empty_statement",
	KindBinaryExpression:      "binary_expression",
	KindUnaryExpression:       "unary_expression",
	KindTernaryExpression:     "ternary_expression",
	KindAssignmentExpression:  "assignment_expression",
	KindListExpression:        "list_expression",
	KindParenExpression:       "parenthesized_expression",
	KindCallExpression:        "call_expression",
	KindMethodCallExpression:  "method_call_expression",
	KindElementAccess:         "element_access",
	KindSliceExpression:       "slice_expression",
	KindDereference:           "dereference_expression",
	KindReferenceExpression:   "reference_expression",
	KindAnonymousArray:        "anonymous_array",
	KindAnonymousHash:         "anonymous_hash",
	KindAnonymousSubroutine:   "anonymous_subroutine",
	KindHashConstructor:       "hash_constructor",
	KindPostfixExpression:     "postfix_expression",
	KindVariable:              "variable",
	KindBareword:              "bareword",
	KindPackageName:           "package_name",
	KindNumberLiteral:         "number",
	KindVersionLiteral:        "version",
	KindStringLiteral:         "string",
	KindQuoteLike:             "quote_like",
	KindWordList:              "word_list",
	KindRegexMatch:            "regex_match",
	KindSubstitution:          "substitution",
	KindTransliteration:       "transliteration",
	KindHeredoc:               "heredoc",
	KindReadline:              "readline",
	KindOperator:              "operator",
	KindPunctuation:           "punctuation",
	KindKeyword:               "keyword",
	KindLabel:                 "label",
	KindError:                 "ERROR",
}

func (k NodeKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsStatement reports whether the kind is a statement-level construct.
func (k NodeKind) IsStatement() bool {
	switch k {
	case KindPackageStatement, KindUseStatement, KindRequireStatement,
		KindSubroutineDeclaration, KindVariableDeclaration,
		KindExpressionStatement, KindBlock, KindIfStatement,
		KindUnlessStatement, KindWhileStatement, KindUntilStatement,
		KindForStatement, KindForeachStatement, KindReturnStatement,
		KindLoopControlStatement, KindLabeledStatement,
		KindStatementModifier, KindEmptyStatement, KindError:
		return true
	default:
		return false
	}
}

// IsLeaf reports whether nodes of this kind never carry children.
func (k NodeKind) IsLeaf() bool {
	switch k {
	case KindVariable, KindBareword, KindPackageName, KindNumberLiteral,
		KindVersionLiteral, KindStringLiteral, KindQuoteLike, KindWordList,
		KindRegexMatch, KindSubstitution, KindTransliteration, KindHeredoc,
		KindReadline, KindOperator, KindPunctuation, KindKeyword, KindLabel:
		return true
	default:
		return false
	}
}
