// internal/tree/traverse.go
package tree

import (
	"github.com/solatis/queryforge/internal/types"
)

/*
 * Read-only tree traversal.
 *
 * All traversals are depth-first pre-order and iterative with an explicit
 * stack. The depth and node-count ceilings only cap valid trees; traversal
 * must not rely on the call stack because it runs on trees validation has
 * not yet rejected.
 */

// VisitFunc receives each node with its parent group (nil for the root) and
// depth (root = 1). Returning false stops the walk.
type VisitFunc func(n types.Node, parent *types.Group, depth int) bool

type frame struct {
	node   types.Node
	parent *types.Group
	depth  int
}

// Walk visits every node in depth-first pre-order, preserving sibling order.
func Walk(root types.Node, visit VisitFunc) {
	if root == nil {
		return
	}

	stack := []frame{{node: root, depth: 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visit(f.node, f.parent, f.depth) {
			return
		}

		if g, ok := f.node.(*types.Group); ok {
			// Push children in reverse so they pop in sibling order
			for i := len(g.Children) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: g.Children[i], parent: g, depth: f.depth + 1})
			}
		}
	}
}

// FindNode returns the first node matching id in pre-order, or nil.
func FindNode(root types.Node, id types.NodeID) types.Node {
	var found types.Node
	Walk(root, func(n types.Node, _ *types.Group, _ int) bool {
		if n.ID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindParent returns the group containing the first node matching id, or
// nil when the id is absent or names the root.
func FindParent(root types.Node, id types.NodeID) *types.Group {
	var parent *types.Group
	Walk(root, func(n types.Node, p *types.Group, _ int) bool {
		if n.ID() == id {
			parent = p
			return false
		}
		return true
	})
	return parent
}

// Conditions returns every condition node in pre-order.
func Conditions(root types.Node) []*types.Condition {
	var out []*types.Condition
	Walk(root, func(n types.Node, _ *types.Group, _ int) bool {
		if c, ok := n.(*types.Condition); ok {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Groups returns every group node in pre-order, including the root when it
// is a group.
func Groups(root types.Node) []*types.Group {
	var out []*types.Group
	Walk(root, func(n types.Node, _ *types.Group, _ int) bool {
		if g, ok := n.(*types.Group); ok {
			out = append(out, g)
		}
		return true
	})
	return out
}

// Depth returns the maximum depth of the tree (root = 1, empty = 0).
func Depth(root types.Node) int {
	max := 0
	Walk(root, func(_ types.Node, _ *types.Group, depth int) bool {
		if depth > max {
			max = depth
		}
		return true
	})
	return max
}

// CountNodes returns the total number of nodes in the tree.
func CountNodes(root types.Node) int {
	n := 0
	Walk(root, func(_ types.Node, _ *types.Group, _ int) bool {
		n++
		return true
	})
	return n
}

// CountConditions returns the number of condition leaves in the tree.
func CountConditions(root types.Node) int {
	n := 0
	Walk(root, func(node types.Node, _ *types.Group, _ int) bool {
		if _, ok := node.(*types.Condition); ok {
			n++
		}
		return true
	})
	return n
}

// ContainsNode reports whether id occurs anywhere in the subtree rooted at
// root, including root itself.
func ContainsNode(root types.Node, id types.NodeID) bool {
	return FindNode(root, id) != nil
}
