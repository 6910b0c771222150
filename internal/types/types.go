// Package types provides the filter tree domain model shared across
// QueryForge components.
//
// Zero-dependency design for the model itself: node and value types use only
// encoding/json so embedding applications can depend on the tree model
// without pulling in the compiler or persistence stacks. ID utilities in
// ids.go import uuid but are isolated for selective inclusion.
package types

// BooleanOperator joins the children of a Group node.
type BooleanOperator string

const (
	BoolAnd BooleanOperator = "and"
	BoolOr  BooleanOperator = "or"
	BoolNot BooleanOperator = "not"
)

// IsValid reports whether the boolean operator is one of and/or/not.
func (op BooleanOperator) IsValid() bool {
	switch op {
	case BoolAnd, BoolOr, BoolNot:
		return true
	}
	return false
}

// Operator is a comparison operator on a Condition node.
type Operator string

const (
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpGreaterThan  Operator = "greater_than"
	OpLessThan     Operator = "less_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessEqual    Operator = "less_equal"
	OpContains     Operator = "contains"
	OpNotContains  Operator = "not_contains"
	OpStartsWith   Operator = "starts_with"
	OpEndsWith     Operator = "ends_with"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpIsNull       Operator = "is_null"
	OpIsNotNull    Operator = "is_not_null"
	OpBetween      Operator = "between"
	OpMatchesRegex Operator = "matches_regex"
	OpFuzzyMatch   Operator = "fuzzy_match"
)

// Operators lists every supported comparison operator.
func Operators() []Operator {
	return []Operator{
		OpEquals, OpNotEquals,
		OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpIn, OpNotIn,
		OpIsNull, OpIsNotNull,
		OpBetween, OpMatchesRegex, OpFuzzyMatch,
	}
}

// IsValid reports whether the operator is one of the supported set.
func (op Operator) IsValid() bool {
	switch op {
	case OpEquals, OpNotEquals,
		OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith,
		OpIn, OpNotIn,
		OpIsNull, OpIsNotNull,
		OpBetween, OpMatchesRegex, OpFuzzyMatch:
		return true
	}
	return false
}

// RequiresArray reports whether the operator's comparison value must be an
// array (between needs exactly two elements, in/not_in at least one).
func (op Operator) RequiresArray() bool {
	switch op {
	case OpBetween, OpIn, OpNotIn:
		return true
	}
	return false
}

// IgnoresValue reports whether the operator takes no comparison value.
func (op Operator) IgnoresValue() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// IsNumericComparison reports whether the operator orders its operands.
// Ordering operators require number or date fields.
func (op Operator) IsNumericComparison() bool {
	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterEqual, OpLessEqual, OpBetween:
		return true
	}
	return false
}

// IsStringOperator reports whether the operator only makes sense on text.
func (op Operator) IsStringOperator() bool {
	switch op {
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpMatchesRegex:
		return true
	}
	return false
}

// CompatibleWith reports whether the operator may be applied to a field of
// the given data type. Ordering operators require number/date; string
// operators require string; everything else is unrestricted.
func (op Operator) CompatibleWith(dt DataType) bool {
	if op.IsNumericComparison() {
		return dt == TypeNumber || dt == TypeDate
	}
	if op.IsStringOperator() {
		return dt == TypeString
	}
	return true
}

// DataType declares the expected runtime shape of a condition value.
type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeBoolean DataType = "boolean"
	TypeDate    DataType = "date"
	TypeArray   DataType = "array"
)

// IsValid reports whether the data type is one of the supported set.
func (dt DataType) IsValid() bool {
	switch dt {
	case TypeString, TypeNumber, TypeBoolean, TypeDate, TypeArray:
		return true
	}
	return false
}

// Resource limits enforced across the tree model to prevent stack exhaustion
// and unbounded evaluation cost.
const (
	// MaxTreeDepth is the hard ceiling on tree depth (root = depth 1).
	// Exceeding it is a validation error: recursive compilation of deeper
	// trees risks call-stack exhaustion downstream.
	MaxTreeDepth = 20

	// WarnTreeDepth is the depth above which validation emits a warning.
	// Trees this deep are legal but usually indicate a filter that should
	// be restructured.
	WarnTreeDepth = 8

	// MaxTreeNodes caps total node count per tree. Resource-exhaustion
	// guard: 1,000 nodes keeps compilation and validation in the
	// low-millisecond range.
	MaxTreeNodes = 1000

	// DefaultBuilderMaxDepth is the builder-local soft depth ceiling.
	// Stricter than MaxTreeDepth so interactive construction rejects
	// runaway nesting before validation ever sees it. Configurable.
	DefaultBuilderMaxDepth = 10

	// DefaultBuilderMaxConditions is the builder-local soft ceiling on
	// condition count. Configurable.
	DefaultBuilderMaxConditions = 100

	// MaxDecodeDepth bounds recursion while decoding serialized trees.
	// Adversarial inputs may nest far beyond MaxTreeDepth; decoding must
	// fail cleanly instead of overflowing the stack.
	MaxDecodeDepth = 64
)
