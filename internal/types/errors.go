package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for QueryForge operations, grouped by taxonomy.
//
// Builder and compiler operations fail fast with one of these; validation
// collects diagnostics instead. Callers distinguish kinds with errors.Is.
var (
	// Structural errors: the requested mutation does not fit the tree shape.

	// ErrNotAGroup indicates a child insert targeted a condition node.
	ErrNotAGroup = errors.New("node is not a group")

	// ErrNodeNotFound indicates the referenced node id is absent from the tree.
	ErrNodeNotFound = errors.New("node not found")

	// ErrTargetNotAGroup indicates a move targeted a condition node.
	ErrTargetNotAGroup = errors.New("move target is not a group")

	// ErrCannotDuplicateRoot indicates an attempt to duplicate the root node.
	ErrCannotDuplicateRoot = errors.New("cannot duplicate root node")

	// ErrMoveIntoSelf indicates a move whose destination lies inside the
	// moved subtree. Allowing it would detach the destination with the node.
	ErrMoveIntoSelf = errors.New("cannot move node into its own subtree")

	// Limit errors: a resource ceiling would be breached.

	// ErrDepthExceeded indicates an insert would breach the depth ceiling.
	ErrDepthExceeded = errors.New("tree depth limit exceeded")

	// ErrTooManyConditions indicates an insert would breach the condition
	// count ceiling.
	ErrTooManyConditions = errors.New("condition count limit exceeded")

	// ErrTooManyNodes indicates the tree exceeds MaxTreeNodes.
	ErrTooManyNodes = errors.New("node count limit exceeded")

	// Semantic errors: node content is internally inconsistent.

	// ErrOperatorMismatch indicates an operator incompatible with the
	// condition's data type.
	ErrOperatorMismatch = errors.New("operator incompatible with data type")

	// ErrMalformedValue indicates a value whose shape does not fit the
	// operator (e.g. a scalar for between, an empty array for in).
	ErrMalformedValue = errors.New("malformed value for operator")

	// Security errors: relational compilation only.

	// ErrInvalidIdentifier indicates a table or field name outside the
	// allow-list. The identifier is never embedded in generated text.
	ErrInvalidIdentifier = errors.New("identifier not in allow-list")

	// Compiler errors.

	// ErrUnsupportedOperator indicates a target compiler received an
	// operator it cannot render.
	ErrUnsupportedOperator = errors.New("operator not supported by target")

	// ErrUnknownTarget indicates a compile request for an unknown target.
	ErrUnknownTarget = errors.New("unknown compilation target")

	// ErrDecodeTooDeep indicates serialized tree input nested beyond
	// MaxDecodeDepth.
	ErrDecodeTooDeep = errors.New("serialized tree nested too deeply")
)

// NodeError wraps a sentinel with the id of the offending node.
type NodeError struct {
	Node NodeID
	Err  error
}

// Error implements error.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *NodeError) Unwrap() error { return e.Err }

// NodeErr attaches a node id to a sentinel error.
func NodeErr(id NodeID, err error) error {
	return &NodeError{Node: id, Err: err}
}

// IdentifierError wraps ErrInvalidIdentifier with the rejected identifier.
// The identifier is reported back to the caller but never reaches generated
// query text.
type IdentifierError struct {
	Identifier string
	Err        error
}

// Error implements error.
func (e *IdentifierError) Error() string {
	return fmt.Sprintf("identifier %q: %v", e.Identifier, e.Err)
}

// Unwrap exposes the sentinel for errors.Is.
func (e *IdentifierError) Unwrap() error { return e.Err }
