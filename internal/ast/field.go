package ast

// FieldName tags a child with its grammatical role, the way tree-sitter
// field names do.
type FieldName uint8

const (
	FieldNone FieldName = iota
	FieldName_
	FieldValue
	FieldCondition
	FieldConsequence
	FieldAlternative
	FieldLeft
	FieldRight
	FieldOperand
	FieldOperator
	FieldBody
	FieldArguments
	FieldFunction
	FieldObject
	FieldMethod
	FieldVariable
	FieldVariables
	FieldModule
	FieldList
	FieldKey
	FieldIndex
	FieldLabel
	FieldInit
	FieldUpdate
	FieldDeclarator
	FieldVersion
)

var fieldNames = [...]string{
	FieldNone:        "",
	FieldName_:       "name",
	FieldValue:       "value",
	FieldCondition:   "condition",
	FieldConsequence: "consequence",
	FieldAlternative: "alternative",
	FieldLeft:        "left",
	FieldRight:       "right",
	FieldOperand:     "operand",
	FieldOperator:    "operator",
	FieldBody:        "body",
	FieldArguments:   "arguments",
	FieldFunction:    "function",
	FieldObject:      "object",
	FieldMethod:      "method",
	FieldVariable:    "variable",
	FieldVariables:   "variables",
	FieldModule:      "module",
	FieldList:        "list",
	FieldKey:         "key",
	FieldIndex:       "index",
	FieldLabel:       "label",
	FieldInit:        "init",
	FieldUpdate:      "update",
	FieldDeclarator:  "declarator",
	FieldVersion:     "version",
}

func (f FieldName) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return ""
}

// FieldEntry binds a field name to an index within a node's Children.
type FieldEntry struct {
	Field FieldName
	Child uint32
}
