// internal/tree/builder.go
package tree

import (
	"github.com/solatis/queryforge/internal/types"
)

/*
 * Filter tree construction and mutation.
 *
 * Every mutation clones the input tree and returns the modified clone, so
 * concurrent holders of a tree value never observe partial mutation
 * (copy-on-write semantics). Operations fail fast with the specific
 * sentinel and offending node id; they never coerce or silently drop
 * invalid input. The one documented exception is RemoveChild, which is a
 * no-op when the id is absent.
 *
 * Soft limits: the builder enforces its own depth and condition-count
 * ceilings (stricter than the validator's hard limits) so interactive
 * construction rejects runaway trees at insert time. Both are configurable
 * via Limits.
 */

// Limits holds the builder-local soft ceilings.
type Limits struct {
	MaxDepth      int
	MaxConditions int
}

// DefaultLimits returns the standard builder ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:      types.DefaultBuilderMaxDepth,
		MaxConditions: types.DefaultBuilderMaxConditions,
	}
}

// ConditionOpts carries the optional condition fields.
type ConditionOpts struct {
	CaseSensitive bool
	Label         string
}

// NewTree returns the canonical empty tree: a single AND group.
func NewTree() *types.Group {
	return &types.Group{
		NodeID:   types.NewNodeID(),
		Operator: types.BoolAnd,
		Children: []types.Node{},
	}
}

// NewCondition creates a condition with a fresh id. Always succeeds: the
// value is normalized to the data type where possible (numeric strings to
// numbers, RFC 3339 strings to dates); shapes that cannot normalize are
// kept as-is for the validator to flag.
func NewCondition(field string, op types.Operator, value types.Value, dt types.DataType, opts ConditionOpts) *types.Condition {
	return &types.Condition{
		NodeID:        types.NewNodeID(),
		Field:         field,
		Operator:      op,
		Value:         normalizeValue(value, dt),
		DataType:      dt,
		CaseSensitive: opts.CaseSensitive,
		Label:         opts.Label,
	}
}

// NewGroup creates a group with a fresh id over the given children.
// Children are adopted as-is; callers hand over ownership.
func NewGroup(op types.BooleanOperator, children []types.Node, meta types.GroupMeta) *types.Group {
	if children == nil {
		children = []types.Node{}
	}
	return &types.Group{
		NodeID:   types.NewNodeID(),
		Operator: op,
		Children: children,
		Meta:     meta,
	}
}

// normalizeValue coerces value toward dt. Array values normalize
// element-wise against the element type (between/in compare elements, not
// the array itself). Coercion failures keep the original value.
func normalizeValue(v types.Value, dt types.DataType) types.Value {
	if v.Kind() == types.KindArray && dt != types.TypeArray {
		elems := v.Array()
		out := make([]types.Value, len(elems))
		for i, e := range elems {
			if coerced, err := e.Coerce(dt); err == nil {
				out[i] = coerced
			} else {
				out[i] = e
			}
		}
		return types.ArrayValue(out...)
	}
	if coerced, err := v.Coerce(dt); err == nil {
		return coerced
	}
	return v
}

// AddChild inserts child under the group identified by parentID at index
// (negative or out-of-range appends) and returns the new tree.
// Fails with ErrNodeNotFound, ErrNotAGroup, ErrDepthExceeded, or
// ErrTooManyConditions.
func AddChild(limits Limits, root types.Node, parentID types.NodeID, child types.Node, index int) (types.Node, error) {
	clone := root.Clone()

	target := FindNode(clone, parentID)
	if target == nil {
		return nil, types.NodeErr(parentID, types.ErrNodeNotFound)
	}
	group, ok := target.(*types.Group)
	if !ok {
		return nil, types.NodeErr(parentID, types.ErrNotAGroup)
	}

	parentDepth := depthOf(clone, parentID)
	if parentDepth+Depth(child) > limits.MaxDepth {
		return nil, types.NodeErr(parentID, types.ErrDepthExceeded)
	}
	if CountConditions(clone)+CountConditions(child) > limits.MaxConditions {
		return nil, types.NodeErr(parentID, types.ErrTooManyConditions)
	}

	group.Children = insertAt(group.Children, child.Clone(), index)
	return clone, nil
}

// RemoveChild removes the first node matching id in pre-order and returns
// the new tree. Absent ids (and the root itself, which has no parent) are
// a no-op: the input tree is returned unchanged.
func RemoveChild(root types.Node, id types.NodeID) types.Node {
	if FindParent(root, id) == nil {
		return root
	}
	clone := root.Clone()
	parent := FindParent(clone, id)
	parent.Children = removeByID(parent.Children, id)
	return clone
}

// Patch carries partial updates for UpdateNode. Nil fields are preserved.
// Condition-only fields are ignored on groups and vice versa; Label applies
// to both kinds.
type Patch struct {
	Field         *string
	Operator      *types.Operator
	Value         *types.Value
	DataType      *types.DataType
	CaseSensitive *bool
	Label         *string

	BoolOperator *types.BooleanOperator
	Collapsed    *bool
}

// UpdateNode merges the patch into the first node matching id and returns
// the new tree. Fails with ErrNodeNotFound.
func UpdateNode(root types.Node, id types.NodeID, p Patch) (types.Node, error) {
	clone := root.Clone()
	node := FindNode(clone, id)
	if node == nil {
		return nil, types.NodeErr(id, types.ErrNodeNotFound)
	}

	switch n := node.(type) {
	case *types.Condition:
		if p.Field != nil {
			n.Field = *p.Field
		}
		if p.Operator != nil {
			n.Operator = *p.Operator
		}
		if p.DataType != nil {
			n.DataType = *p.DataType
		}
		if p.Value != nil {
			n.Value = normalizeValue(*p.Value, n.DataType)
		}
		if p.CaseSensitive != nil {
			n.CaseSensitive = *p.CaseSensitive
		}
		if p.Label != nil {
			n.Label = *p.Label
		}
	case *types.Group:
		if p.BoolOperator != nil {
			n.Operator = *p.BoolOperator
		}
		if p.Label != nil {
			n.Meta.Label = *p.Label
		}
		if p.Collapsed != nil {
			n.Meta.Collapsed = *p.Collapsed
		}
	}

	return clone, nil
}

// MoveNode relocates the node matching id under the group matching
// newParentID at index, as an atomic remove-then-insert on a fresh clone.
// Fails with ErrNodeNotFound, ErrTargetNotAGroup, or ErrMoveIntoSelf.
func MoveNode(root types.Node, id, newParentID types.NodeID, index int) (types.Node, error) {
	moved := FindNode(root, id)
	if moved == nil || FindParent(root, id) == nil {
		// Root included: it has no parent to detach from
		return nil, types.NodeErr(id, types.ErrNodeNotFound)
	}

	target := FindNode(root, newParentID)
	if target == nil {
		return nil, types.NodeErr(newParentID, types.ErrNodeNotFound)
	}
	if _, ok := target.(*types.Group); !ok {
		return nil, types.NodeErr(newParentID, types.ErrTargetNotAGroup)
	}
	if ContainsNode(moved, newParentID) {
		return nil, types.NodeErr(id, types.ErrMoveIntoSelf)
	}

	clone := root.Clone()
	oldParent := FindParent(clone, id)
	detached := FindNode(clone, id)
	oldParent.Children = removeByID(oldParent.Children, id)

	newParent := FindNode(clone, newParentID).(*types.Group)
	newParent.Children = insertAt(newParent.Children, detached, index)
	return clone, nil
}

// DuplicateNode deep-clones the subtree matching id with fresh ids on every
// cloned node and inserts the clone as the next sibling of the original.
// Fails with ErrCannotDuplicateRoot or ErrNodeNotFound.
func DuplicateNode(root types.Node, id types.NodeID) (types.Node, error) {
	if root.ID() == id {
		return nil, types.NodeErr(id, types.ErrCannotDuplicateRoot)
	}
	if FindNode(root, id) == nil {
		return nil, types.NodeErr(id, types.ErrNodeNotFound)
	}

	clone := root.Clone()
	parent := FindParent(clone, id)
	original := FindNode(clone, id)

	dup := original.Clone()
	reassignIDs(dup)

	idx := indexOf(parent.Children, id)
	parent.Children = insertAt(parent.Children, dup, idx+1)
	return clone, nil
}

// reassignIDs walks the subtree iteratively and gives every node a fresh id.
func reassignIDs(n types.Node) {
	stack := []types.Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch node := cur.(type) {
		case *types.Condition:
			node.NodeID = types.NewNodeID()
		case *types.Group:
			node.NodeID = types.NewNodeID()
			stack = append(stack, node.Children...)
		}
	}
}

// depthOf returns the depth of the node matching id (root = 1), or 0.
func depthOf(root types.Node, id types.NodeID) int {
	found := 0
	Walk(root, func(n types.Node, _ *types.Group, depth int) bool {
		if n.ID() == id {
			found = depth
			return false
		}
		return true
	})
	return found
}

// insertAt inserts n at index, appending for negative or out-of-range
// indices, preserving sibling order.
func insertAt(children []types.Node, n types.Node, index int) []types.Node {
	if index < 0 || index > len(children) {
		return append(children, n)
	}
	out := make([]types.Node, 0, len(children)+1)
	out = append(out, children[:index]...)
	out = append(out, n)
	out = append(out, children[index:]...)
	return out
}

// removeByID drops the first child matching id, preserving order.
func removeByID(children []types.Node, id types.NodeID) []types.Node {
	for i, c := range children {
		if c.ID() == id {
			return append(children[:i:i], children[i+1:]...)
		}
	}
	return children
}

// indexOf returns the position of id among children, or -1.
func indexOf(children []types.Node, id types.NodeID) int {
	for i, c := range children {
		if c.ID() == id {
			return i
		}
	}
	return -1
}
